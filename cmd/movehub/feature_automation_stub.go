//go:build no_automation

package main

import (
	"log/slog"

	"movehub/internal/fleet"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *fleet.Manager, _ *Config, _ *slog.Logger) *autoStopper {
	return &autoStopper{}
}
