package fleet

import (
	"movehub/internal/hid"
)

// Controller is one logical controller slot occupant. All MaxControllers
// handles are allocated once at manager construction and live for the whole
// process; only their open/closed state and device-path binding change.
// A Controller is owned by exactly one slot of the pool; its ID always
// mirrors the index of that slot.
type Controller struct {
	id     int
	path   string
	dev    hid.Device // nil while closed
	sample hid.Sample
}

func newController(id int) *Controller {
	return &Controller{id: id}
}

// ID returns the logical controller ID (the owning slot index).
func (c *Controller) ID() int { return c.id }

// SetID relabels the controller when it moves to a different slot.
func (c *Controller) SetID(id int) { c.id = id }

// IsOpen reports whether the underlying device link is open.
func (c *Controller) IsOpen() bool { return c.dev != nil }

// Path returns the bound device path, empty while unbound.
func (c *Controller) Path() string { return c.path }

// Matches reports whether this controller is bound to the device the
// descriptor refers to. Path equality is the identity across enumeration
// passes.
func (c *Controller) Matches(info hid.DeviceInfo) bool {
	return c.path != "" && c.path == info.Path
}

// Open binds the descriptor's path and opens the device. On failure the
// handle stays closed but keeps the path binding for the rest of the
// reconciliation pass, so the slot still accounts for the device; the open
// is retried naturally on a later pass.
func (c *Controller) Open(tr hid.Transport, info hid.DeviceInfo) error {
	c.path = info.Path
	dev, err := tr.Open(info)
	if err != nil {
		return err
	}
	c.dev = dev
	return nil
}

// Close closes the device link and clears the path binding so a stale path
// can never produce a false match later. Idempotent.
func (c *Controller) Close() {
	if c.dev != nil {
		c.dev.Close()
		c.dev = nil
	}
	c.path = ""
}

// clearBinding drops a path left behind by a failed open. Only meaningful
// on closed handles.
func (c *Controller) clearBinding() {
	if c.dev == nil {
		c.path = ""
	}
}

// Read performs one non-blocking read. On ReadNewData the latest sample has
// been updated in place.
func (c *Controller) Read() hid.ReadStatus {
	if c.dev == nil {
		return hid.ReadNoData
	}
	return c.dev.Read(&c.sample)
}

// Sample returns the latest decoded sensor state.
func (c *Controller) Sample() hid.Sample { return c.sample }

// SetRumble sets the rumble intensity on the open device.
func (c *Controller) SetRumble(amount float32) error {
	if c.dev == nil {
		return errNotOpen
	}
	if amount < 0 {
		amount = 0
	} else if amount > 1 {
		amount = 1
	}
	return c.dev.SetRumble(uint8(amount * 255))
}

// ResetPose re-bases the stored pose to the identity orientation at the
// origin. The next input report overwrites it with fresh data.
func (c *Controller) ResetPose() {
	c.sample.Orientation = [4]float32{1, 0, 0, 0}
	c.sample.Position = [3]float32{}
}
