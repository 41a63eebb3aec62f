// Package desk implements control of Linak-based IKEA Idasen standing desks
// over BLE: height readout, live monitoring and target-height movement.
package desk

import (
	"encoding/binary"
	"fmt"
)

// Linak DPG controller GATT profile, normalized UUID form (lowercase, no dashes).
const (
	// ServiceControl carries the movement command characteristic.
	ServiceControl = "99fa0001338a10248a49009c0215f78a"
	// CharCommand accepts little-endian uint16 movement commands.
	CharCommand = "99fa0002338a10248a49009c0215f78a"

	// ServiceReferenceOutput carries the height/speed characteristic.
	ServiceReferenceOutput = "99fa0020338a10248a49009c0215f78a"
	// CharHeight notifies <uint16 raw height, int16 raw speed> little-endian.
	CharHeight = "99fa0021338a10248a49009c0215f78a"

	// ServiceReferenceInput mirrors the desk's physical control paddle.
	ServiceReferenceInput = "99fa0030338a10248a49009c0215f78a"
	// CharReferenceInput accepts paddle-equivalent commands.
	CharReferenceInput = "99fa0031338a10248a49009c0215f78a"
)

// Movement command codes for CharCommand.
const (
	commandUp   uint16 = 71
	commandDown uint16 = 70
	commandStop uint16 = 255
)

// Paddle-equivalent command codes for CharReferenceInput.
const (
	referenceInputStop uint16 = 0x8001
	referenceInputUp   uint16 = 0x8000
	referenceInputDown uint16 = 0x7fff
)

// Height range of the desk. The raw unit is tenths of a millimeter above the
// base height; the same constants apply to all Idasen desks.
const (
	BaseHeightMM = 620
	MaxHeightMM  = 1270
)

// EncodeCommand renders a command code in the desk's wire form.
func EncodeCommand(code uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, code)
	return b
}

// HeightSpeed is one decoded height characteristic sample.
type HeightSpeed struct {
	RawHeight uint16
	RawSpeed  int16
}

// DecodeHeightSpeed parses a height characteristic value.
func DecodeHeightSpeed(data []byte) (HeightSpeed, error) {
	if len(data) < 4 {
		return HeightSpeed{}, fmt.Errorf("height data too short: got %d bytes, want 4", len(data))
	}
	return HeightSpeed{
		RawHeight: binary.LittleEndian.Uint16(data[0:2]),
		RawSpeed:  int16(binary.LittleEndian.Uint16(data[2:4])),
	}, nil
}

// Encode renders the sample back into the desk's wire form.
func (hs HeightSpeed) Encode() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], hs.RawHeight)
	binary.LittleEndian.PutUint16(b[2:4], uint16(hs.RawSpeed))
	return b
}

// Millimeters returns the absolute desk height.
func (hs HeightSpeed) Millimeters() float64 {
	return RawToMM(hs.RawHeight)
}

// SpeedMMPerSec returns the movement speed; negative values mean downward.
func (hs HeightSpeed) SpeedMMPerSec() float64 {
	return float64(hs.RawSpeed) / 100
}

// MMToRaw converts an absolute height in millimeters to the desk's raw unit.
func MMToRaw(mm float64) uint16 {
	raw := (mm - BaseHeightMM) * 10
	if raw < 0 {
		raw = 0
	}
	return uint16(raw)
}

// RawToMM converts the desk's raw unit to an absolute height in millimeters.
func RawToMM(raw uint16) float64 {
	return float64(raw)/10 + BaseHeightMM
}
