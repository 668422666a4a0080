package hid

import (
	"encoding/binary"
	"math"
	"testing"
)

func buildReport(t *testing.T, quat [4]float32, pos [3]float32, mask uint16, trigger uint8) []byte {
	t.Helper()
	b := make([]byte, InputReportLen)
	b[0] = inputReportID
	for i, v := range quat {
		binary.LittleEndian.PutUint32(b[1+4*i:], math.Float32bits(v))
	}
	for i, v := range pos {
		binary.LittleEndian.PutUint32(b[17+4*i:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint16(b[29:], mask)
	b[31] = trigger
	return b
}

func TestDecodeInputReport(t *testing.T) {
	quat := [4]float32{1, 0, 0.5, -0.5}
	pos := [3]float32{10.5, -2.25, 300}
	b := buildReport(t, quat, pos, bitCross|bitMove|bitStart, 255)

	var s Sample
	if err := DecodeInputReport(b, &s); err != nil {
		t.Fatal(err)
	}

	if s.Orientation != quat {
		t.Errorf("orientation = %v, want %v", s.Orientation, quat)
	}
	if s.Position != pos {
		t.Errorf("position = %v, want %v", s.Position, pos)
	}
	if !s.Buttons.Cross || !s.Buttons.Move || !s.Buttons.Start {
		t.Errorf("buttons = %+v, want cross+move+start down", s.Buttons)
	}
	if s.Buttons.Triangle || s.Buttons.Circle || s.Buttons.Square || s.Buttons.Select || s.Buttons.PS {
		t.Errorf("buttons = %+v, unexpected buttons down", s.Buttons)
	}
	if s.Trigger != 1.0 {
		t.Errorf("trigger = %v, want 1.0", s.Trigger)
	}
}

func TestDecodeInputReportTriggerScaling(t *testing.T) {
	b := buildReport(t, [4]float32{1, 0, 0, 0}, [3]float32{}, 0, 51)

	var s Sample
	if err := DecodeInputReport(b, &s); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Trigger, float32(51)/255; got != want {
		t.Errorf("trigger = %v, want %v", got, want)
	}
}

func TestDecodeInputReportRejectsShort(t *testing.T) {
	var s Sample
	s.Trigger = 0.75
	if err := DecodeInputReport(make([]byte, 10), &s); err == nil {
		t.Fatal("expected error for short report")
	}
	// Sample untouched on failure.
	if s.Trigger != 0.75 {
		t.Errorf("trigger modified on failed decode: %v", s.Trigger)
	}
}

func TestDecodeInputReportRejectsForeignID(t *testing.T) {
	b := buildReport(t, [4]float32{}, [3]float32{}, 0, 0)
	b[0] = 0x7F
	var s Sample
	if err := DecodeInputReport(b, &s); err == nil {
		t.Fatal("expected error for foreign report ID")
	}
}

func TestEncodeRumbleReport(t *testing.T) {
	b := EncodeRumbleReport(200)
	if len(b) != 2 || b[0] != outputReportID || b[1] != 200 {
		t.Errorf("rumble report = %v", b)
	}
}
