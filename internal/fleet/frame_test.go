package fleet

import (
	"testing"

	"movehub/internal/hid"
)

func TestButtonBitmask(t *testing.T) {
	tests := []struct {
		name    string
		buttons hid.ButtonState
		want    uint32
	}{
		{"none", hid.ButtonState{}, 0},
		{"triangle", hid.ButtonState{Triangle: true}, 1 << ButtonTriangle},
		{"move", hid.ButtonState{Move: true}, 1 << ButtonMove},
		{"combo", hid.ButtonState{Cross: true, Start: true, PS: true},
			1<<ButtonCross | 1<<ButtonStart | 1<<ButtonPS},
		{"all", hid.ButtonState{
			Triangle: true, Circle: true, Cross: true, Square: true,
			Select: true, Start: true, PS: true, Move: true,
		}, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buttonBitmask(tt.buttons); got != tt.want {
				t.Errorf("bitmask = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestFanout(t *testing.T) {
	f := NewFanout()
	a := &capturePublisher{}
	b := &capturePublisher{}
	f.Add(a)

	f.Publish(Frame{SequenceNum: 1})

	f.Add(b)
	f.Publish(Frame{SequenceNum: 2})

	if len(a.frames) != 2 {
		t.Errorf("first sink got %d frames, want 2", len(a.frames))
	}
	if len(b.frames) != 1 || b.frames[0].SequenceNum != 2 {
		t.Errorf("late sink frames = %v, want just sequence 2", b.frames)
	}
}
