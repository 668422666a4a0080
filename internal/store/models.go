package store

import "time"

// Default scheduling intervals in milliseconds.
const (
	DefaultPollIntervalMS      = 2
	DefaultReconnectIntervalMS = 1000
)

// FleetSettings holds the persisted fleet manager options.
type FleetSettings struct {
	// How often open controllers are polled for new sensor data.
	PollIntervalMS int `json:"controller_poll_interval"`
	// How often the slot pool is reconciled against attached devices.
	ReconnectIntervalMS int `json:"controller_reconnect_interval"`
}

// DefaultFleetSettings returns the built-in defaults.
func DefaultFleetSettings() *FleetSettings {
	return &FleetSettings{
		PollIntervalMS:      DefaultPollIntervalMS,
		ReconnectIntervalMS: DefaultReconnectIntervalMS,
	}
}

// Normalize replaces unset or invalid values with the defaults.
func (s *FleetSettings) Normalize() {
	if s.PollIntervalMS <= 0 {
		s.PollIntervalMS = DefaultPollIntervalMS
	}
	if s.ReconnectIntervalMS <= 0 {
		s.ReconnectIntervalMS = DefaultReconnectIntervalMS
	}
}

// KnownController is one controller ever opened on this host. Key is the
// device serial when available, otherwise the platform device path.
type KnownController struct {
	Key       string    `json:"key"`
	Path      string    `json:"path"`
	Serial    string    `json:"serial,omitempty"`
	Product   string    `json:"product,omitempty"`
	VendorID  uint16    `json:"vendor_id"`
	ProductID uint16    `json:"product_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
