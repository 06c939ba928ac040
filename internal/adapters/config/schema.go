package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ResourceFile represents the top level of a YAML resource file.
// Resources stays a node so the declaration order of the mapping is preserved.
type ResourceFile struct {
	Resources yaml.Node `yaml:"Resources"`
}

// ResourceDTO represents one resource declaration in YAML or HCL.
type ResourceDTO struct {
	Label              string     `yaml:"-"                   hcl:"label,label"`
	Type               string     `yaml:"type"                hcl:"type,optional"`
	Location           string     `yaml:"location"            hcl:"location,optional"`
	Extension          string     `yaml:"extension"           hcl:"extension,optional"`
	Arguments          StringList `yaml:"arguments"           hcl:"arguments,optional"`
	Downloaded         bool       `yaml:"downloaded"          hcl:"downloaded,optional"`
	Remove             *bool      `yaml:"remove"              hcl:"remove,optional"`
	OverwriteAgreement bool       `yaml:"overwrite_agreement" hcl:"overwrite_agreement,optional"`
	Agreement          bool       `yaml:"agreement"           hcl:"agreement,optional"`
	Packages           StringList `yaml:"packages"            hcl:"packages,optional"`
	PPA                string     `yaml:"ppa"                 hcl:"ppa,optional"`
	Dependencies       []string   `yaml:"dependencies"        hcl:"dependencies,optional"`
	Destination        string     `yaml:"destination"         hcl:"destination,optional"`
	Description        string     `yaml:"description"         hcl:"description,optional"`
}

// hclFile represents an HCL resource file made of `resource "<label>" { ... }` blocks.
type hclFile struct {
	Resources []ResourceDTO `hcl:"resource,block"`
}

// StringList accepts either a YAML sequence or a whitespace separated scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*s = strings.Fields(value.Value)
		return nil
	}

	var items []string
	if err := value.Decode(&items); err != nil {
		return err
	}
	*s = items
	return nil
}
