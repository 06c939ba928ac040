// Package catalog provides ready-made resource declarations for common software.
package catalog

import (
	"embed"
	"os"
	"runtime"
	"slices"
	"strings"

	"go.trai.ch/stall/internal/adapters/config"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

//go:embed data/*.yml
var data embed.FS

// Platforms with a catalog of their own.
const (
	PlatformWindows = "windows"
	PlatformDebian  = "debian"
	PlatformNix     = "nix"
)

// debianFamily lists os-release identifiers that use apt.
var debianFamily = []string{"debian", "ubuntu", "linuxmint", "pop", "zorin", "parrot", "elementary", "kali", "raspbian"}

// Catalog implements ports.Catalog over the embedded declarations of one platform.
type Catalog struct {
	platform string
	loader   *config.Loader
	dtos     []config.ResourceDTO
}

var _ ports.Catalog = (*Catalog)(nil)

// New loads the catalog for platform.
func New(loader *config.Loader, platform string) (*Catalog, error) {
	name := "data/" + platform + ".yml"
	raw, err := data.ReadFile(name)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "no catalog for platform"), "platform", platform)
	}

	dtos, err := config.DecodeYAML(raw, name)
	if err != nil {
		return nil, err
	}

	return &Catalog{platform: platform, loader: loader, dtos: dtos}, nil
}

// Platform returns the platform the entries were selected for.
func (c *Catalog) Platform() string {
	return c.platform
}

// Entries lists the catalog sorted by name.
func (c *Catalog) Entries() []ports.CatalogEntry {
	entries := make([]ports.CatalogEntry, 0, len(c.dtos))
	for _, dto := range c.dtos {
		kind, _ := domain.ParseKind(dto.Type)
		entries = append(entries, ports.CatalogEntry{
			Name:        dto.Label,
			Kind:        kind,
			Description: dto.Description,
		})
	}
	slices.SortFunc(entries, func(a, b ports.CatalogEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries
}

// Select builds the named entries in the order given. Repeated names are included once.
func (c *Catalog) Select(names []string) (*domain.BuildSet, error) {
	selected := make([]config.ResourceDTO, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		idx := slices.IndexFunc(c.dtos, func(d config.ResourceDTO) bool { return d.Label == name })
		if idx < 0 {
			return nil, domain.Tag(domain.ErrUnknownCatalogEntry, "name", name, "platform", c.platform)
		}
		seen[name] = true
		selected = append(selected, c.dtos[idx])
	}

	return c.loader.BuildSet(selected, "", "catalog:"+c.platform)
}

// DetectPlatform picks the catalog for the running system.
// Linux distributions outside the Debian family fall back to Nix packages.
func DetectPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "linux":
		osRelease, err := os.ReadFile("/etc/os-release")
		if err != nil {
			return PlatformNix
		}
		return PlatformFromOSRelease(string(osRelease))
	default:
		return PlatformNix
	}
}

// PlatformFromOSRelease maps the ID and ID_LIKE fields of an os-release file to a platform.
func PlatformFromOSRelease(content string) string {
	var ids []string
	for line := range strings.Lines(content) {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || (key != "ID" && key != "ID_LIKE") {
			continue
		}
		ids = append(ids, strings.Fields(strings.Trim(value, `"'`))...)
	}

	for _, id := range ids {
		if slices.Contains(debianFamily, strings.ToLower(id)) {
			return PlatformDebian
		}
	}
	return PlatformNix
}
