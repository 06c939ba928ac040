// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/stall/internal/adapters/apt"
	_ "go.trai.ch/stall/internal/adapters/archive"
	_ "go.trai.ch/stall/internal/adapters/cas"
	_ "go.trai.ch/stall/internal/adapters/catalog"
	_ "go.trai.ch/stall/internal/adapters/config"
	_ "go.trai.ch/stall/internal/adapters/fetch"
	_ "go.trai.ch/stall/internal/adapters/fs"
	_ "go.trai.ch/stall/internal/adapters/logger"
	_ "go.trai.ch/stall/internal/adapters/nix"
	_ "go.trai.ch/stall/internal/adapters/shell"
	_ "go.trai.ch/stall/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/stall/internal/app"
	_ "go.trai.ch/stall/internal/engine/orchestrator"
	_ "go.trai.ch/stall/internal/engine/resource"
)
