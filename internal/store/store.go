package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Fleet settings, loaded at startup and saved at shutdown.
	GetFleetSettings() (*FleetSettings, error)
	SaveFleetSettings(s *FleetSettings) error

	// Registry of controllers ever seen on this host.
	SaveController(c *KnownController) error
	GetController(key string) (*KnownController, error)
	ListControllers() ([]*KnownController, error)

	// Close the store
	Close() error
}
