//go:build no_mqtt

package main

import (
	"log/slog"

	"movehub/internal/fleet"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *fleet.Manager, _ *fleet.Fanout, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
