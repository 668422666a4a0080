package hid

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Input report layout (little-endian), 32 bytes:
//
//	offset 0     report ID (0x01)
//	offset 1-16  orientation quaternion, 4 x float32 (w, x, y, z)
//	offset 17-28 position, 3 x float32 (x, y, z)
//	offset 29-30 button bitmask, uint16
//	offset 31    trigger, uint8 (0-255)
const (
	inputReportID  = 0x01
	InputReportLen = 32

	outputReportID = 0x02
)

// Wire button bit positions within the report bitmask.
const (
	bitTriangle = 1 << iota
	bitCircle
	bitCross
	bitSquare
	bitSelect
	bitStart
	bitPS
	bitMove
)

// DecodeInputReport decodes one input report into sample. The sample is
// only modified on success.
func DecodeInputReport(b []byte, sample *Sample) error {
	if len(b) < InputReportLen {
		return fmt.Errorf("input report too short: %d bytes", len(b))
	}
	if b[0] != inputReportID {
		return fmt.Errorf("unexpected report ID 0x%02X", b[0])
	}

	var s Sample
	for i := 0; i < 4; i++ {
		s.Orientation[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[1+4*i:]))
	}
	for i := 0; i < 3; i++ {
		s.Position[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[17+4*i:]))
	}

	mask := binary.LittleEndian.Uint16(b[29:])
	s.Buttons = ButtonState{
		Triangle: mask&bitTriangle != 0,
		Circle:   mask&bitCircle != 0,
		Cross:    mask&bitCross != 0,
		Square:   mask&bitSquare != 0,
		Select:   mask&bitSelect != 0,
		Start:    mask&bitStart != 0,
		PS:       mask&bitPS != 0,
		Move:     mask&bitMove != 0,
	}
	s.Trigger = float32(b[31]) / 255.0

	*sample = s
	return nil
}

// EncodeRumbleReport builds the output report that sets rumble intensity.
func EncodeRumbleReport(amount uint8) []byte {
	return []byte{outputReportID, amount}
}
