//go:build no_automation

package automation

import (
	"log/slog"

	"movehub/internal/fleet"
)

// Fleet is the subset of the fleet manager exposed to scripts.
type Fleet interface {
	SetRumble(id int, amount float32) bool
	ResetPose(id int) bool
	Events() *fleet.EventBus
}

// Engine is a no-op stub when automation is disabled.
type Engine struct{}

// NewEngine returns a no-op engine when automation is disabled.
func NewEngine(_ Fleet, _ string, _ *slog.Logger) *Engine {
	return &Engine{}
}

// Start is a no-op.
func (e *Engine) Start() {}

// Stop is a no-op.
func (e *Engine) Stop() {}
