// Package config loads resource declarations from YAML and HCL files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// resourcesKey is the top-level key of a YAML resource file.
const resourcesKey = "Resources"

// Loader implements ports.ResourceLoader.
type Loader struct {
	Logger ports.Logger
}

var _ ports.ResourceLoader = (*Loader)(nil)

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the resource file at path. Files ending in .hcl are parsed as HCL, everything else as YAML.
// Any invalid declaration fails the whole file.
func (l *Loader) Load(path string) (*domain.BuildSet, error) {
	var (
		dtos []ResourceDTO
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		dtos, err = readHCL(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path) //nolint:gosec // path is provided by the operator
		if err != nil {
			return nil, domain.Because(domain.ErrConfigReadFailed, err, "path", path)
		}
		dtos, err = DecodeYAML(data, path)
	}
	if err != nil {
		return nil, err
	}

	return l.BuildSet(dtos, filepath.Dir(path), path)
}

// BuildSet converts declarations into a build set. Relative local paths are resolved against baseDir;
// origin names the declarations' source in errors.
func (l *Loader) BuildSet(dtos []ResourceDTO, baseDir, origin string) (*domain.BuildSet, error) {
	set := domain.NewBuildSet()
	seen := make(map[string]bool, len(dtos))

	for i := range dtos {
		dto := &dtos[i]
		if seen[dto.Label] {
			return nil, domain.Tag(domain.ErrDuplicateLabel, "label", dto.Label, "path", origin)
		}
		seen[dto.Label] = true

		r, err := l.toResource(dto, baseDir)
		if err != nil {
			return nil, domain.Tag(err, "path", origin)
		}
		set.Add(r)
		if dto.OverwriteAgreement {
			set.Grant(dto.Label)
		}
	}

	return set, nil
}

// DecodeYAML parses the Resources mapping of a YAML document, keeping declaration order.
func DecodeYAML(data []byte, path string) ([]ResourceDTO, error) {
	var file ResourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, domain.Because(domain.ErrConfigParseFailed, err, "path", path)
	}

	node := &file.Resources
	if node.Kind == 0 {
		return nil, domain.Tag(domain.ErrMissingField, "field", resourcesKey, "path", path)
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, domain.Tag(domain.ErrConfigParseFailed, "path", path, "line", node.Line,
			"reason", resourcesKey+" must be a mapping of label to declaration")
	}

	dtos := make([]ResourceDTO, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var dto ResourceDTO
		if value.Kind != yaml.MappingNode {
			return nil, domain.Tag(domain.ErrConfigParseFailed, "path", path, "label", key.Value, "line", value.Line,
				"reason", "declaration must be a mapping")
		}
		if err := value.Decode(&dto); err != nil {
			return nil, zerr.With(domain.Because(domain.ErrConfigParseFailed, err, "path", path), "label", key.Value)
		}
		dto.Label = key.Value
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

func readHCL(path string) ([]ResourceDTO, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, domain.Because(domain.ErrConfigReadFailed, statErr, "path", path)
		}
		return nil, domain.Because(domain.ErrConfigParseFailed, diags, "path", path)
	}

	var hf hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &hf); diags.HasErrors() {
		return nil, domain.Because(domain.ErrConfigParseFailed, diags, "path", path)
	}
	return hf.Resources, nil
}

// toResource checks the fields each type requires and builds the domain resource.
func (l *Loader) toResource(dto *ResourceDTO, baseDir string) (*domain.Resource, error) {
	label := dto.Label

	if strings.TrimSpace(dto.Type) == "" {
		return nil, missingField("type", label)
	}
	kind, ok := domain.ParseKind(dto.Type)
	if !ok {
		return nil, domain.Tag(domain.ErrUnknownResourceType, "label", label, "type", dto.Type)
	}
	if field := firstMissingField(kind, dto); field != "" {
		return nil, missingField(field, label)
	}

	remove := true
	if dto.Remove != nil {
		remove = *dto.Remove
	}
	if kind == domain.KindStatic && dto.Remove != nil && *dto.Remove && l.Logger != nil {
		l.Logger.Warn(fmt.Sprintf("%s: static assets are kept on disk, 'remove' has no effect", label))
	}

	r := domain.Resource{
		Label:              domain.NewInternedString(label),
		Kind:               kind,
		Source:             resolveLocal(dto.Location, baseDir),
		Extension:          dto.Extension,
		Arguments:          dto.Arguments,
		RequiresAgreement:  dto.Agreement,
		Dependencies:       domain.NewInternedStrings(dto.Dependencies),
		RemoveAfterInstall: remove,
		Downloaded:         dto.Downloaded,
		Packages:           dto.Packages,
		Repository:         dto.PPA,
	}
	if dto.Destination != "" {
		r.Destination = resolvePath(dto.Destination, baseDir)
	}

	return domain.NewResource(r)
}

// firstMissingField returns the first required field of kind that dto leaves empty.
func firstMissingField(kind domain.Kind, dto *ResourceDTO) string {
	switch kind {
	case domain.KindPPA:
		if strings.TrimSpace(dto.PPA) == "" {
			return "ppa"
		}
		if len(dto.Packages) == 0 {
			return "packages"
		}
	case domain.KindApt, domain.KindNix:
		if len(dto.Packages) == 0 {
			return "packages"
		}
	case domain.KindStatic:
		if strings.TrimSpace(dto.Extension) == "" {
			return "extension"
		}
		if strings.TrimSpace(dto.Location) == "" {
			return "location"
		}
	default:
		if strings.TrimSpace(dto.Location) == "" {
			return "location"
		}
	}
	return ""
}

func missingField(field, label string) error {
	return domain.Tag(domain.ErrMissingField, "field", field, "label", label)
}

// resolveLocal makes relative local sources relative to the resource file.
// Remote URLs are returned unchanged.
func resolveLocal(source, baseDir string) string {
	if source == "" || strings.Contains(source, "://") {
		return source
	}
	return resolvePath(source, baseDir)
}

func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return expandHome(path)
	}
	return filepath.Join(baseDir, path)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
