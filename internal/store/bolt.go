package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSettings    = []byte("settings")
	bucketControllers = []byte("controllers")
	keyFleetSettings  = []byte("fleet")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSettings, bucketControllers} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) GetFleetSettings() (*FleetSettings, error) {
	var settings FleetSettings
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSettings)
		}
		data := b.Get(keyFleetSettings)
		if data == nil {
			return fmt.Errorf("fleet settings: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &settings)
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *BoltStore) SaveFleetSettings(settings *FleetSettings) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSettings)
		}
		data, err := json.Marshal(settings)
		if err != nil {
			return err
		}
		return b.Put(keyFleetSettings, data)
	})
}

func (s *BoltStore) SaveController(c *KnownController) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketControllers)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketControllers)
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return b.Put([]byte(c.Key), data)
	})
}

func (s *BoltStore) GetController(key string) (*KnownController, error) {
	var c KnownController
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketControllers)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketControllers)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("controller %s: %w", key, ErrNotFound)
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *BoltStore) ListControllers() ([]*KnownController, error) {
	var list []*KnownController
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketControllers)
		if b == nil {
			return nil // no bucket = no controllers
		}
		list = make([]*KnownController, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var c KnownController
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			list = append(list, &c)
			return nil
		})
	})
	return list, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
