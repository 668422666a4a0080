package fleet

import (
	"testing"

	"movehub/internal/hid"
)

func TestPollPublishesGloballySequencedFrames(t *testing.T) {
	tr := newFakeTransport([]hid.DeviceInfo{dev("A"), dev("B")})
	h := startHarness(t, tr)
	h.m.reconcile()

	devA := tr.lastOpened("A")
	devB := tr.lastOpened("B")
	devA.reads = []hid.ReadStatus{hid.ReadNewData, hid.ReadNewData}
	devB.reads = []hid.ReadStatus{hid.ReadNewData, hid.ReadNewData}

	h.m.pollControllers()
	h.m.pollControllers()

	if len(h.pub.frames) != 4 {
		t.Fatalf("frames = %d, want 4", len(h.pub.frames))
	}
	// Sequence numbers start at 0 and increase by exactly 1 per publish,
	// shared across the whole fleet.
	for i, f := range h.pub.frames {
		if f.SequenceNum != uint64(i) {
			t.Errorf("frame %d sequence = %d", i, f.SequenceNum)
		}
	}
	wantIDs := []int{0, 1, 0, 1}
	for i, f := range h.pub.frames {
		if f.ControllerID != wantIDs[i] {
			t.Errorf("frame %d controller = %d, want %d", i, f.ControllerID, wantIDs[i])
		}
	}
}

func TestPollFrameContents(t *testing.T) {
	tr := newFakeTransport([]hid.DeviceInfo{dev("A")})
	h := startHarness(t, tr)
	h.m.reconcile()

	devA := tr.lastOpened("A")
	devA.sample = hid.Sample{
		Orientation: [4]float32{0.7, 0, 0.7, 0},
		Position:    [3]float32{1, 2, 3},
		Buttons:     hid.ButtonState{Cross: true, Move: true},
		Trigger:     0.5,
	}
	devA.reads = []hid.ReadStatus{hid.ReadNewData}

	h.m.pollControllers()

	if len(h.pub.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(h.pub.frames))
	}
	f := h.pub.frames[0]
	if !f.Connected || !f.TrackingEnabled || f.TrackingActive {
		t.Errorf("flags = connected %v, enabled %v, active %v", f.Connected, f.TrackingEnabled, f.TrackingActive)
	}
	if f.Orientation != devA.sample.Orientation {
		t.Errorf("orientation = %v", f.Orientation)
	}
	if f.Position != devA.sample.Position {
		t.Errorf("position = %v", f.Position)
	}
	// The computed bitmask is published, not zero.
	want := uint32(1<<ButtonCross | 1<<ButtonMove)
	if f.ButtonBitmask != want {
		t.Errorf("bitmask = %#x, want %#x", f.ButtonBitmask, want)
	}
	if f.TriggerValue != 0.5 {
		t.Errorf("trigger = %v, want 0.5", f.TriggerValue)
	}
}

func TestPollNoDataPublishesNothing(t *testing.T) {
	tr := newFakeTransport([]hid.DeviceInfo{dev("A")})
	h := startHarness(t, tr)
	h.m.reconcile()

	h.m.pollControllers()

	if len(h.pub.frames) != 0 {
		t.Errorf("frames = %d, want 0", len(h.pub.frames))
	}
}

func TestPollReadFailureClosesImmediately(t *testing.T) {
	tr := newFakeTransport(
		[]hid.DeviceInfo{dev("A")},
		[]hid.DeviceInfo{},
	)
	h := startHarness(t, tr)
	h.m.reconcile()

	devA := tr.lastOpened("A")
	devA.reads = []hid.ReadStatus{hid.ReadFailure}
	h.log.reset()

	h.m.pollControllers()

	if !devA.closed {
		t.Fatal("device not closed after read failure")
	}
	if n := len(h.log.byType(EventReadFailure)); n != 1 {
		t.Errorf("read_failure events = %d, want 1", n)
	}
	if snap := h.m.Snapshot(); snap.Controllers[0].Connected {
		t.Error("snapshot still shows controller connected")
	}

	// Device stays absent: the next pass leaves it closed with no
	// duplicate vanished event.
	h.log.reset()
	h.m.reconcile()
	if n := len(h.log.byType(EventControllerVanished)); n != 0 {
		t.Errorf("vanished events after read-failure close = %d, want 0", n)
	}
}

func TestPollReadFailureFastReconnect(t *testing.T) {
	tr := newFakeTransport([]hid.DeviceInfo{dev("A")})
	h := startHarness(t, tr)
	h.m.reconcile()

	tr.lastOpened("A").reads = []hid.ReadStatus{hid.ReadFailure}
	h.m.pollControllers()

	// The descriptor is back on the next pass: treated as a new device
	// and reopened.
	h.log.reset()
	h.m.reconcile()

	got := openPaths(h.m)
	if len(got) != 1 || got[0] != "A" {
		t.Fatalf("open paths = %v, want [A]", got)
	}
	if len(tr.opened["A"]) != 2 {
		t.Errorf("device opened %d times, want 2", len(tr.opened["A"]))
	}
	if n := len(h.log.byType(EventControllerConnected)); n != 1 {
		t.Errorf("connected events = %d, want 1", n)
	}
}
