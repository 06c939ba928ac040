package nix

import "time"

// pinRecord is the content of one pin file: the NixHub answer for a package spec,
// narrowed to the platforms stall runs on.
type pinRecord struct {
	Package  string                 `json:"package"`
	Version  string                 `json:"version"`
	Systems  map[string]SystemCache `json:"systems"`
	Resolved time.Time              `json:"resolved"`
}

// SystemCache is the pinned flake reference for one platform.
type SystemCache struct {
	FlakeInstallable FlakeInstallable `json:"flake_installable"`
}

// NixHubResponse represents the API response from NixHub v2/resolve.
type NixHubResponse struct {
	Name    string                    `json:"name"`
	Version string                    `json:"version"`
	Summary string                    `json:"summary"`
	Systems map[string]SystemResponse `json:"systems"`
}

// SystemResponse represents package information for a specific system architecture.
type SystemResponse struct {
	FlakeInstallable FlakeInstallable `json:"flake_installable"`
	LastUpdated      string           `json:"last_updated"`
}

// FlakeInstallable represents the flake reference information.
type FlakeInstallable struct {
	Ref      FlakeRef `json:"ref"`
	AttrPath string   `json:"attr_path"`
}

// FlakeRef represents the git reference for the flake.
type FlakeRef struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Rev   string `json:"rev"`
}
