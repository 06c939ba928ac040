package resource

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/apt"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/archive" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/fetch"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/nix"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/shell"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

// NodeID is the unique identifier for the unit factory Graft node.
const NodeID graft.ID = "engine.resource_factory"

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fetch.NodeID,
			archive.NodeID,
			shell.NodeID,
			apt.NodeID,
			nix.ManagerNodeID,
		},
		Run: func(ctx context.Context) (*Factory, error) {
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}

			extractor, err := graft.Dep[ports.Extractor](ctx)
			if err != nil {
				return nil, err
			}

			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return nil, err
			}

			aptManager, err := graft.Dep[apt.ManagerNode](ctx)
			if err != nil {
				return nil, err
			}

			nixManager, err := graft.Dep[nix.ManagerNode](ctx)
			if err != nil {
				return nil, err
			}

			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}

			return NewFactory(
				fetcher,
				extractor,
				runner,
				[]ports.PackageManager{aptManager, nixManager},
				domain.DefaultDownloadPath(home),
			), nil
		},
	})
}
