package fleet

import (
	"sync"

	"movehub/internal/hid"
)

// Published button bit indices within Frame.ButtonBitmask.
const (
	ButtonTriangle = iota
	ButtonCircle
	ButtonCross
	ButtonSquare
	ButtonSelect
	ButtonStart
	ButtonPS
	ButtonMove
)

// Frame is one published sensor/button snapshot for one logical controller.
// SequenceNum is shared across the whole fleet and increases by exactly one
// per published frame, giving consumers a total order for drop detection.
type Frame struct {
	ControllerID    int        `json:"controller_id"`
	SequenceNum     uint64     `json:"sequence_num"`
	Connected       bool       `json:"connected"`
	TrackingEnabled bool       `json:"tracking_enabled"`
	TrackingActive  bool       `json:"tracking_active"`
	Orientation     [4]float32 `json:"orientation"` // w, x, y, z
	Position        [3]float32 `json:"position"`    // x, y, z
	ButtonBitmask   uint32     `json:"button_bitmask"`
	TriggerValue    float32    `json:"trigger_value"`
}

// buttonBitmask folds the per-button booleans into the published bitmask.
func buttonBitmask(b hid.ButtonState) uint32 {
	var mask uint32
	set := func(bit int, down bool) {
		if down {
			mask |= 1 << bit
		}
	}
	set(ButtonTriangle, b.Triangle)
	set(ButtonCircle, b.Circle)
	set(ButtonCross, b.Cross)
	set(ButtonSquare, b.Square)
	set(ButtonSelect, b.Select)
	set(ButtonStart, b.Start)
	set(ButtonPS, b.PS)
	set(ButtonMove, b.Move)
	return mask
}

// Publisher accepts completed frames for downstream fan-out. Publish is
// fire-and-forget and must not block the caller meaningfully; delivery
// failure to any subscriber is invisible to the fleet manager.
type Publisher interface {
	Publish(frame Frame)
}

// Fanout replicates each frame to every attached sink.
type Fanout struct {
	mu    sync.RWMutex
	sinks []Publisher
}

// NewFanout creates an empty fan-out publisher.
func NewFanout() *Fanout {
	return &Fanout{}
}

// Add attaches a sink. Safe to call while publishing.
func (f *Fanout) Add(p Publisher) {
	f.mu.Lock()
	f.sinks = append(f.sinks, p)
	f.mu.Unlock()
}

// Publish hands the frame to every sink in attach order.
func (f *Fanout) Publish(frame Frame) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()
	for _, p := range sinks {
		p.Publish(frame)
	}
}
