package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/stall/internal/adapters/catalog"   //nolint:depguard // Wired in app layer
	"go.trai.ch/stall/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stall/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stall/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/engine/orchestrator"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			catalog.NodeID,
			orchestrator.NodeID,
			telemetry.TracerNodeID,
			cas.NodeID,
			logger.PortNodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.PortNodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ResourceLoader](ctx)
	if err != nil {
		return nil, err
	}

	cat, err := graft.Dep[ports.Catalog](ctx)
	if err != nil {
		return nil, err
	}

	orch, err := graft.Dep[*orchestrator.Orchestrator](ctx)
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

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, cat, orch, tracer, store, log), nil
}
