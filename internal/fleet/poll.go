package fleet

import (
	"movehub/internal/hid"
)

// pollControllers performs one non-blocking read on every open slot and
// publishes a frame for each new sample. A read failure means the link is
// gone: the handle closes immediately instead of waiting for the next
// reconciliation pass.
func (m *Manager) pollControllers() {
	for id, c := range m.controllers {
		if c == nil || !c.IsOpen() {
			continue
		}
		switch c.Read() {
		case hid.ReadNoData:
			// Nothing pending this tick.
		case hid.ReadNewData:
			m.publishFrame(c)
		case hid.ReadFailure:
			m.logger.Info("controller closing due to failed read", "id", id)
			c.Close()
			m.events.Emit(Event{Type: EventReadFailure, Data: map[string]interface{}{
				"id": id,
			}})
			m.publishSnapshot()
		}
	}
}

// publishFrame assembles a frame from the controller's latest sample,
// stamps it with the next fleet-wide sequence number and hands it off.
// The hand-off is synchronous, so no reordering can occur between
// assembly and publish.
func (m *Manager) publishFrame(c *Controller) {
	s := c.Sample()
	frame := Frame{
		ControllerID:    c.ID(),
		SequenceNum:     m.seq,
		Connected:       true,
		TrackingEnabled: true,
		TrackingActive:  false,
		Orientation:     s.Orientation,
		Position:        s.Position,
		ButtonBitmask:   buttonBitmask(s.Buttons),
		TriggerValue:    s.Trigger,
	}
	m.seq++
	m.publisher.Publish(frame)
}
