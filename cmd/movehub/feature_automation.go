//go:build !no_automation

package main

import (
	"log/slog"

	"movehub/internal/automation"
	"movehub/internal/fleet"
)

type autoStopper struct {
	engine *automation.Engine
}

func (a *autoStopper) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
}

func initAutomation(mgr *fleet.Manager, cfg *Config, logger *slog.Logger) *autoStopper {
	engine := automation.NewEngine(mgr, cfg.ScriptsDir, logger)
	engine.Start()
	return &autoStopper{engine: engine}
}
