package orchestrator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/cas"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/engine/resource"
)

// NodeID is the unique identifier for the orchestrator Graft node.
const NodeID graft.ID = "engine.orchestrator"

func init() {
	graft.Register(graft.Node[*Orchestrator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			resource.NodeID,
			telemetry.TracerNodeID,
			cas.NodeID,
			fs.HasherNodeID,
			logger.PortNodeID,
		},
		Run: func(ctx context.Context) (*Orchestrator, error) {
			factory, err := graft.Dep[*resource.Factory](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.ReceiptStore](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(factory, tracer, store, hasher, log), nil
		},
	})
}
