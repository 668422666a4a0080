package fleet

import (
	"movehub/internal/hid"
)

// reconcile rewrites the slot pool so that connected devices occupy slots
// in enumeration order. No controller handles are created or destroyed:
// handles are shuffled between slots and opened or closed as needed.
//
// Walk order decides logical IDs for connected devices; disconnected
// handles sort after all connected ones, keeping their relative original
// order. A device whose ID changes gets a controller_id_changed event;
// consumers must tolerate reassignment between passes, never within one.
func (m *Manager) reconcile() {
	infos, err := m.transport.Enumerate()
	if err != nil {
		// Leave the pool as-is; the poll path still catches dead links.
		m.logger.Error("device enumeration", "err", err)
		return
	}

	var dest [MaxControllers]*Controller
	next := 0
	capacityHit := false

	for _, info := range infos {
		// Known device: an open handle already bound to this path.
		if idx := m.findOpen(info); idx != -1 {
			c := m.controllers[idx]
			if idx != next {
				c.SetID(next)
				m.logger.Info("controller moved", "from", idx, "to", next, "path", info.Path)
				m.events.Emit(Event{Type: EventControllerMoved, Data: map[string]interface{}{
					"from": idx,
					"to":   next,
					"path": info.Path,
				}})
			}
			dest[next] = c
			m.controllers[idx] = nil
			next++
			continue
		}

		// New device: host it on any closed handle, they are fungible.
		idx := m.findFirstClosed()
		if idx == -1 {
			// Pool exhausted. Skip this device but keep walking the
			// enumerator so devices we already track keep their IDs.
			if !capacityHit {
				capacityHit = true
				m.logger.Error("too many controllers attached, pool exhausted",
					"slots", MaxControllers, "path", info.Path)
				m.events.Emit(Event{Type: EventCapacityExceeded, Data: map[string]interface{}{
					"slots": MaxControllers,
				}})
			}
			continue
		}

		c := m.controllers[idx]
		m.controllers[idx] = nil
		c.SetID(next)
		if err := c.Open(m.transport, info); err != nil {
			// The handle keeps the path so the slot accounts for this
			// device; the open retries on the next pass.
			m.logger.Warn("controller open failed", "id", next, "path", info.Path, "err", err)
			m.events.Emit(Event{Type: EventControllerOpenFailed, Data: map[string]interface{}{
				"id":   next,
				"path": info.Path,
			}})
		} else {
			m.logger.Info("controller connected", "id", next, "path", info.Path, "serial", info.Serial)
			m.events.Emit(Event{Type: EventControllerConnected, Data: map[string]interface{}{
				"id":     next,
				"path":   info.Path,
				"serial": info.Serial,
			}})
			m.recordSeen(info)
		}
		dest[next] = c
		next++
	}

	// Any handle still in the old pool was absent from this pass. Open
	// ones vanished without the poll path noticing; force-close them.
	// Closed ones trail behind in original-index order.
	for idx := 0; idx < MaxControllers; idx++ {
		c := m.controllers[idx]
		if c == nil {
			continue
		}
		if c.IsOpen() {
			m.logger.Warn("controller vanished from device list, closing", "id", idx)
			c.Close()
			m.events.Emit(Event{Type: EventControllerVanished, Data: map[string]interface{}{
				"id": idx,
			}})
		} else {
			c.clearBinding()
		}
		c.SetID(next)
		dest[next] = c
		m.controllers[idx] = nil
		next++
	}

	m.controllers = dest
	m.publishSnapshot()
}

// findOpen returns the slot index of the open controller bound to the
// descriptor's path, or -1.
func (m *Manager) findOpen(info hid.DeviceInfo) int {
	for i, c := range m.controllers {
		if c != nil && c.IsOpen() && c.Matches(info) {
			return i
		}
	}
	return -1
}

// findFirstClosed returns the lowest slot index holding a closed
// controller, or -1 when every handle is open.
func (m *Manager) findFirstClosed() int {
	for i, c := range m.controllers {
		if c != nil && !c.IsOpen() {
			return i
		}
	}
	return -1
}
