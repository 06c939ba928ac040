package apt

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/shell"
	"go.trai.ch/stall/internal/core/ports"
)

// NodeID is the unique identifier for the apt package manager Graft node.
const NodeID graft.ID = "adapter.apt"

// ManagerNode wraps the apt package manager so it has a Graft output type of its own.
type ManagerNode struct {
	ports.PackageManager
}

func init() {
	graft.Register(graft.Node[ManagerNode]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ManagerNode, error) {
			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return ManagerNode{}, err
			}
			return ManagerNode{NewManager(runner)}, nil
		},
	})
}
