package nix

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/shell"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

const (
	// ResolverNodeID is the unique identifier for the NixHub resolver Graft node.
	ResolverNodeID graft.ID = "adapter.nix.resolver"
	// ManagerNodeID is the unique identifier for the Nix package manager Graft node.
	ManagerNodeID graft.ID = "adapter.nix.manager"
)

// ManagerNode wraps the Nix package manager so it has a Graft output type of its own.
type ManagerNode struct {
	ports.PackageManager
}

func init() {
	graft.Register(graft.Node[ports.PackageResolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.PackageResolver, error) {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			return NewResolver(domain.DefaultNixHubCachePath(home))
		},
	})

	graft.Register(graft.Node[ManagerNode]{
		ID:        ManagerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, ResolverNodeID},
		Run: func(ctx context.Context) (ManagerNode, error) {
			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return ManagerNode{}, err
			}
			resolver, err := graft.Dep[ports.PackageResolver](ctx)
			if err != nil {
				return ManagerNode{}, err
			}
			return ManagerNode{NewManager(runner, resolver)}, nil
		},
	})
}
