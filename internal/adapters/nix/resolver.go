// Package nix installs Nix profile packages, resolving pinned versions through NixHub.
package nix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

const (
	nixHubResolveURL = "https://search.devbox.sh/v2/resolve"
	nixHubTimeout    = 30 * time.Second
)

// pinnedSystems are the platforms kept in a pin file; NixHub also answers for others.
var pinnedSystems = map[string]bool{
	"x86_64-linux":   true,
	"aarch64-linux":  true,
	"x86_64-darwin":  true,
	"aarch64-darwin": true,
}

// Resolver turns name@version package specs into nixpkgs pins. Answers from NixHub
// are kept as one JSON pin file per spec under the cache directory.
type Resolver struct {
	pinDir string
	client *http.Client
	system string
}

var _ ports.PackageResolver = (*Resolver)(nil)

// NewResolver creates a Resolver keeping pins under pinDir.
func NewResolver(pinDir string) (*Resolver, error) {
	return NewResolverWithClient(pinDir, &http.Client{Timeout: nixHubTimeout})
}

// NewResolverWithClient is NewResolver with a caller-supplied HTTP client.
func NewResolverWithClient(pinDir string, client *http.Client) (*Resolver, error) {
	dir := filepath.Clean(pinDir)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, domain.Because(domain.ErrNixCacheCreateFailed, err, "path", dir)
	}
	return &Resolver{pinDir: dir, client: client, system: CurrentSystem()}, nil
}

// Resolve returns the nixpkgs commit and attribute path that provide name at version
// on the running platform. A stored pin is used when present.
func (r *Resolver) Resolve(ctx context.Context, name, version string) (commit, attrPath string, err error) {
	file := r.pinFile(name, version)
	if pin, ok := r.readPin(file); ok {
		return pin.Ref.Rev, pin.AttrPath, nil
	}

	answer, err := r.ask(ctx, name, version)
	if err != nil {
		return "", "", err
	}

	pin, ok := answer.Systems[r.system]
	if !ok {
		return "", "", domain.Tag(domain.ErrNixPackageNotFound, "package", name, "version", version, "system", r.system)
	}

	// Without a stored pin the next build asks NixHub again.
	_ = r.writePin(file, name, version, answer)

	return pin.FlakeInstallable.Ref.Rev, pin.FlakeInstallable.AttrPath, nil
}

func pinKey(name, version string) string {
	sum := sha256.Sum256([]byte(name + "@" + version))
	return hex.EncodeToString(sum[:])
}

func (r *Resolver) pinFile(name, version string) string {
	return filepath.Join(r.pinDir, pinKey(name, version)+".json")
}

// readPin reports false for a missing, unreadable or foreign-platform pin file.
func (r *Resolver) readPin(file string) (FlakeInstallable, bool) {
	data, err := os.ReadFile(file) //nolint:gosec // file is the pin directory joined with a hash
	if err != nil {
		return FlakeInstallable{}, false
	}
	var rec pinRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return FlakeInstallable{}, false
	}
	pin, ok := rec.Systems[r.system]
	return pin.FlakeInstallable, ok
}

func (r *Resolver) writePin(file, name, version string, answer *NixHubResponse) error {
	rec := pinRecord{
		Package:  name,
		Version:  version,
		Systems:  make(map[string]SystemCache, len(pinnedSystems)),
		Resolved: time.Now(),
	}
	for system, pin := range answer.Systems {
		if pinnedSystems[system] {
			rec.Systems[system] = SystemCache{FlakeInstallable: pin.FlakeInstallable}
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return domain.Because(domain.ErrNixCacheMarshalFailed, err, "package", name)
	}
	if err := replaceFile(file, data); err != nil {
		return domain.Because(domain.ErrNixCacheWriteFailed, err, "path", file)
	}
	return nil
}

// replaceFile swaps data into path through a temporary sibling, so readers see
// either the old pin or the new one.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "pin-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ask queries NixHub for name at version.
func (r *Resolver) ask(ctx context.Context, name, version string) (*NixHubResponse, error) {
	query := url.Values{"name": {name}, "version": {version}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nixHubResolveURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, domain.Because(domain.ErrNixAPIRequestFailed, err, "package", name)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.Because(domain.ErrNixAPIRequestFailed, err, "package", name, "version", version)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.Tag(domain.ErrNixPackageNotFound, "package", name, "version", version)
	default:
		return nil, domain.Tag(domain.ErrNixAPIRequestFailed, "package", name, "version", version, "status_code", resp.StatusCode)
	}

	var answer NixHubResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, domain.Because(domain.ErrNixAPIParseFailed, err, "package", name, "version", version)
	}
	if len(answer.Systems) == 0 {
		return nil, domain.Tag(domain.ErrNixPackageNotFound, "package", name, "version", version)
	}
	return &answer, nil
}

// CurrentSystem returns the running platform in Nix system notation.
func CurrentSystem() string {
	arch := "x86_64"
	if runtime.GOARCH == "arm64" {
		arch = "aarch64"
	}
	if runtime.GOOS == "darwin" {
		return arch + "-darwin"
	}
	return arch + "-linux"
}
