package domain

import "go.trai.ch/zerr"

var (
	// ErrConfiguration is returned when a resource declaration is invalid for its kind.
	ErrConfiguration = zerr.New("invalid resource configuration")

	// ErrDuplicateLabel is returned when two resources in a build set share a label.
	ErrDuplicateLabel = zerr.New("duplicate resource label")

	// ErrUnresolvedDependency is returned when a resource depends on a label that is not declared.
	ErrUnresolvedDependency = zerr.New("unresolved dependency")

	// ErrCyclicDependency is returned when the dependency relation contains a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrFetchFailed is returned when an artifact cannot be fetched from its source.
	ErrFetchFailed = zerr.New("failed to fetch artifact")

	// ErrAgreementRequired is returned when a resource requires an agreement that was not granted.
	ErrAgreementRequired = zerr.New("agreement required")

	// ErrInstallFailed is returned when a resource install step fails.
	ErrInstallFailed = zerr.New("failed to install resource")

	// ErrUnknownResourceType is returned when a declaration names a type that is not supported.
	ErrUnknownResourceType = zerr.New("unknown resource type")

	// ErrMissingField is returned when a declaration omits a field its type requires.
	ErrMissingField = zerr.New("missing required field")

	// ErrNotDownloaded is returned when install is attempted before a successful download.
	ErrNotDownloaded = zerr.New("resource has not been downloaded")

	// ErrIllegalTransition is returned when a lifecycle transition is not permitted.
	ErrIllegalTransition = zerr.New("illegal lifecycle transition")

	// ErrBuildIncomplete is returned by the CLI when at least one resource did not install.
	ErrBuildIncomplete = zerr.New("build finished with failed or skipped resources")

	// ErrBuildCancelled is returned when a build was interrupted before every resource started.
	ErrBuildCancelled = zerr.New("build cancelled")

	// ErrNoResources is returned when a build is requested without any declarations.
	ErrNoResources = zerr.New("no resources declared")

	// ErrUnsupportedPlanFormat is returned when a plan is requested in an unknown format.
	ErrUnsupportedPlanFormat = zerr.New("unsupported plan format")

	// ErrUnsupportedSource is returned when a source location uses an unsupported scheme.
	ErrUnsupportedSource = zerr.New("unsupported source location")

	// ErrUnsafeArchivePath is returned when an archive entry would escape the extraction directory.
	ErrUnsafeArchivePath = zerr.New("archive entry escapes destination")

	// ErrUnsupportedArchive is returned when an archive format cannot be detected.
	ErrUnsupportedArchive = zerr.New("unsupported archive format")

	// ErrPackageManagerNotFound is returned when a resource needs a package manager that is not registered.
	ErrPackageManagerNotFound = zerr.New("package manager not available")

	// ErrCommandFailed is returned when an external command exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")

	// ErrStoreCreateFailed is returned when the receipt store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create receipt store directory")

	// ErrStoreReadFailed is returned when a receipt cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read receipt")

	// ErrStoreUnmarshalFailed is returned when a receipt cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal receipt")

	// ErrStoreMarshalFailed is returned when a receipt cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal receipt")

	// ErrStoreWriteFailed is returned when a receipt cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write receipt")

	// ErrConfigReadFailed is returned when a resource file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read resource file")

	// ErrConfigParseFailed is returned when a resource file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse resource file")

	// ErrUnknownCatalogEntry is returned when a catalog entry is requested that does not exist for the platform.
	ErrUnknownCatalogEntry = zerr.New("unknown catalog entry")

	// ErrFileHashFailed is returned when hashing an artifact fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrNixCacheCreateFailed is returned when the NixHub cache directory cannot be created.
	ErrNixCacheCreateFailed = zerr.New("failed to create Nix cache directory")

	// ErrNixCacheWriteFailed is returned when writing to the NixHub cache fails.
	ErrNixCacheWriteFailed = zerr.New("failed to write to Nix cache")

	// ErrNixCacheMarshalFailed is returned when marshaling NixHub cache data fails.
	ErrNixCacheMarshalFailed = zerr.New("failed to marshal Nix cache data")

	// ErrNixAPIRequestFailed is returned when a NixHub API request fails.
	ErrNixAPIRequestFailed = zerr.New("failed to make NixHub API request")

	// ErrNixAPIParseFailed is returned when parsing a NixHub API response fails.
	ErrNixAPIParseFailed = zerr.New("failed to parse NixHub API response")

	// ErrNixPackageNotFound is returned when a package version is not found in NixHub.
	ErrNixPackageNotFound = zerr.New("package version not found in NixHub")

	// ErrInvalidPackageSpec is returned when a versioned package is not written as name@version.
	ErrInvalidPackageSpec = zerr.New("invalid package specification, expected format: package@version")
)

// Tag attaches metadata to err while keeping it matchable with errors.Is.
// err is wrapped first because zerr copies an error when metadata is added to it.
// kv is read as alternating keys and values; a trailing key without a value is ignored.
func Tag(err error, kv ...any) error {
	err = zerr.Wrap(err, "")
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		err = zerr.With(err, key, kv[i+1])
	}
	return err
}

// Metadata merges the metadata of every zerr error in the chain of err.
// Keys closer to the root of the chain win.
func Metadata(err error) map[string]any {
	out := make(map[string]any)
	for err != nil {
		if z, ok := err.(*zerr.Error); ok {
			for k, v := range z.Metadata() {
				if _, exists := out[k]; !exists {
					out[k] = v
				}
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return out
}

// Because returns an error that matches both sentinel and cause with errors.Is.
// Its message is the sentinel's and cause is reported as the next link of the chain.
func Because(sentinel, cause error, kv ...any) error {
	if cause == nil {
		return Tag(sentinel, kv...)
	}
	return Tag(&causedError{sentinel: sentinel, cause: cause}, kv...)
}

type causedError struct {
	sentinel error
	cause    error
}

func (e *causedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

// Message returns the sentinel message without the cause.
func (e *causedError) Message() string {
	return e.sentinel.Error()
}

func (e *causedError) Unwrap() error {
	return e.cause
}

func (e *causedError) Is(target error) bool {
	return target == e.sentinel
}
