package testutils

import "encoding/binary"

// Linak controller profile in normalized UUID form, as a fake desk exposes it.
const (
	DeskServiceControl         = "99fa0001338a10248a49009c0215f78a"
	DeskCharCommand            = "99fa0002338a10248a49009c0215f78a"
	DeskServiceReferenceOutput = "99fa0020338a10248a49009c0215f78a"
	DeskCharHeight             = "99fa0021338a10248a49009c0215f78a"
	DeskServiceReferenceInput  = "99fa0030338a10248a49009c0215f78a"
	DeskCharReferenceInput     = "99fa0031338a10248a49009c0215f78a"
)

// DeskChars exposes the characteristics of a fake desk for scripting.
type DeskChars struct {
	Height   *FakeCharacteristic
	Command  *FakeCharacteristic
	RefInput *FakeCharacteristic
}

// NewFakeDesk builds a peripheral carrying the full Linak desk profile.
func NewFakeDesk(address string) (*FakePeripheral, *DeskChars) {
	p := NewFakePeripheral(address).WithName("Desk 1234")
	chars := &DeskChars{
		Command:  p.AddCharacteristic(DeskServiceControl, DeskCharCommand, false),
		Height:   p.AddCharacteristic(DeskServiceReferenceOutput, DeskCharHeight, true),
		RefInput: p.AddCharacteristic(DeskServiceReferenceInput, DeskCharReferenceInput, false),
	}
	return p, chars
}

// HeightSample renders a height notification payload from raw units.
func HeightSample(rawHeight uint16, rawSpeed int16) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], rawHeight)
	binary.LittleEndian.PutUint16(b[2:4], uint16(rawSpeed))
	return b
}
