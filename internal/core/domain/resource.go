// Package domain contains the resource model, the dependency resolver and the build outcome types.
package domain

import (
	"slices"
	"strings"
)

// Kind identifies the variant of a resource and decides how it is downloaded and installed.
type Kind string

const (
	// KindExe is a binary installer executed with its arguments.
	KindExe Kind = "exe"
	// KindMSI is a Windows Installer package run through msiexec.
	KindMSI Kind = "msi"
	// KindZip is a zip archive extracted in place.
	KindZip Kind = "zip"
	// KindTarball is a compressed tar archive extracted in place.
	KindTarball Kind = "tarball"
	// KindStatic is an asset that only needs to be present on disk.
	KindStatic Kind = "static"
	// KindDeb is a local Debian package installed through apt.
	KindDeb Kind = "deb"
	// KindApt is a set of packages installed from the configured apt sources.
	KindApt Kind = "apt"
	// KindPPA is a set of packages installed after adding a personal package archive.
	KindPPA Kind = "ppa"
	// KindNix is a set of packages installed into the user's Nix profile.
	KindNix Kind = "nix"
)

// Package manager names used to serialize installs.
const (
	ManagerApt     = "apt"
	ManagerNix     = "nix"
	ManagerMSIExec = "msiexec"
)

var kinds = []Kind{KindExe, KindMSI, KindZip, KindTarball, KindStatic, KindDeb, KindApt, KindPPA, KindNix}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// ParseKind maps a declaration type name to a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(kinds, k) {
		return k, true
	}
	return "", false
}

// DefaultExtension returns the artifact suffix used when a declaration does not name one.
func (k Kind) DefaultExtension() string {
	switch k {
	case KindExe:
		return ".exe"
	case KindMSI:
		return ".msi"
	case KindZip:
		return ".zip"
	case KindTarball:
		return ".tar.gz"
	case KindDeb:
		return ".deb"
	default:
		return ""
	}
}

// IsPackageSet reports whether the kind installs named packages instead of a downloaded artifact.
func (k Kind) IsPackageSet() bool {
	return k == KindApt || k == KindPPA || k == KindNix
}

// Manager returns the package manager that installs this kind, or "" when installs need no lock.
func (k Kind) Manager() string {
	switch k {
	case KindDeb, KindApt, KindPPA:
		return ManagerApt
	case KindNix:
		return ManagerNix
	case KindMSI:
		return ManagerMSIExec
	default:
		return ""
	}
}

// Resource is a single declared installable unit.
// It is immutable once constructed; lifecycle state lives in the build run.
type Resource struct {
	Label              InternedString
	Kind               Kind
	Source             string
	Extension          string
	Arguments          []string
	RequiresAgreement  bool
	Dependencies       []InternedString
	RemoveAfterInstall bool
	// Downloaded marks Source as an artifact already present on the local filesystem.
	Downloaded  bool
	Destination string
	Packages    []string
	Repository  string
}

// NewResource validates r for its kind and returns a normalized copy.
// Missing extensions are filled with the kind default.
func NewResource(r Resource) (*Resource, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	out := r
	out.Kind, _ = ParseKind(string(r.Kind))
	if out.Extension == "" {
		out.Extension = out.Kind.DefaultExtension()
	}
	if out.Extension != "" && !strings.HasPrefix(out.Extension, ".") {
		out.Extension = "." + out.Extension
	}
	if out.Kind == KindStatic {
		out.RemoveAfterInstall = false
	}
	out.Arguments = slices.Clone(r.Arguments)
	out.Dependencies = slices.Clone(r.Dependencies)
	out.Packages = slices.Clone(r.Packages)
	return &out, nil
}

// Validate checks that the declaration carries every field its kind needs.
func (r *Resource) Validate() error {
	label := r.Label.String()
	if strings.TrimSpace(label) == "" {
		return Tag(ErrConfiguration, "reason", "label must not be empty")
	}
	kind, ok := ParseKind(string(r.Kind))
	if !ok {
		return Tag(ErrConfiguration, "label", label, "field", "kind", "type", string(r.Kind))
	}

	switch {
	case !kind.IsPackageSet() && strings.TrimSpace(r.Source) == "":
		return Tag(ErrConfiguration, "label", label, "field", "source")
	case kind == KindStatic && r.Extension == "":
		return Tag(ErrConfiguration, "label", label, "field", "extension")
	case kind.IsPackageSet() && len(r.Packages) == 0:
		return Tag(ErrConfiguration, "label", label, "field", "packages")
	case kind == KindPPA && strings.TrimSpace(r.Repository) == "":
		return Tag(ErrConfiguration, "label", label, "field", "repository")
	}

	for _, p := range r.Packages {
		if strings.TrimSpace(p) == "" {
			return Tag(ErrConfiguration, "label", label, "field", "packages", "reason", "empty package name")
		}
	}
	return nil
}

// ArtifactName returns the file name used for the downloaded artifact.
// Path separators in the label are replaced so the artifact stays inside its directory.
func (r *Resource) ArtifactName() string {
	name := strings.NewReplacer("/", "-", "\\", "-").Replace(r.Label.String())
	return name + r.Extension
}
