package catalog

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/config"
	"go.trai.ch/stall/internal/adapters/logger"
	"go.trai.ch/stall/internal/core/ports"
)

// NodeID is the unique identifier for the catalog Graft node.
const NodeID graft.ID = "adapter.catalog"

func init() {
	graft.Register(graft.Node[ports.Catalog]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.PortNodeID},
		Run: func(ctx context.Context) (ports.Catalog, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(config.NewLoader(log), DetectPlatform())
		},
	})
}
