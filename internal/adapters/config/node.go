package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/logger"
	"go.trai.ch/stall/internal/core/ports"
)

// NodeID is the unique identifier for the resource loader Graft node.
const NodeID graft.ID = "adapter.resource_loader"

func init() {
	graft.Register(graft.Node[ports.ResourceLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.PortNodeID},
		Run: func(ctx context.Context) (ports.ResourceLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})
}
