// Package hid defines the interface to the USB HID transport used to talk
// to motion controllers. Backend: hidapi via github.com/sstallion/go-hid.
package hid

// ReadStatus is the tri-state result of a non-blocking device read.
// Failure is a normal, locally handled outcome (the link is gone), not an
// exceptional one.
type ReadStatus int

const (
	ReadNoData ReadStatus = iota
	ReadNewData
	ReadFailure
)

func (r ReadStatus) String() string {
	switch r {
	case ReadNoData:
		return "no_data"
	case ReadNewData:
		return "new_data"
	case ReadFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one attached controller from a single enumeration
// pass. The Path is stable for as long as the device stays plugged in and
// is the identity used to match devices across passes. DeviceInfo is not
// retained beyond the pass that produced it.
type DeviceInfo struct {
	Path      string
	VendorID  uint16
	ProductID uint16
	Serial    string
	Product   string
}

// ButtonState holds the decoded per-button booleans from the latest input
// report.
type ButtonState struct {
	Triangle bool
	Circle   bool
	Cross    bool
	Square   bool
	Select   bool
	Start    bool
	PS       bool
	Move     bool
}

// Sample is the latest decoded sensor state of one controller.
type Sample struct {
	// Orientation quaternion, w/x/y/z order.
	Orientation [4]float32 `json:"orientation"`
	// Position vector, x/y/z.
	Position [3]float32 `json:"position"`
	Buttons  ButtonState `json:"-"`
	// Trigger value normalized to 0..1.
	Trigger float32 `json:"trigger"`
}

// Device is an open controller handle capable of report I/O.
// Read must not block: it either returns immediately with ReadNoData or
// decodes a pending input report into sample. A blocking implementation
// would stall the whole host loop.
type Device interface {
	Read(sample *Sample) ReadStatus
	SetRumble(amount uint8) error
	Close() error
}

// Transport enumerates and opens controller devices. Enumerate produces
// one finite pass over the currently attached devices; ordering may change
// between passes.
type Transport interface {
	Initialize() error
	Shutdown()
	Enumerate() ([]DeviceInfo, error)
	Open(info DeviceInfo) (Device, error)
}

// VendorProduct is one supported VID/PID pair.
type VendorProduct struct {
	VendorID  uint16
	ProductID uint16
}
