package desk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		code     uint16
		expected []byte
	}{
		{name: "up", code: commandUp, expected: []byte{0x47, 0x00}},
		{name: "down", code: commandDown, expected: []byte{0x46, 0x00}},
		{name: "stop", code: commandStop, expected: []byte{0xff, 0x00}},
		{name: "reference input stop", code: referenceInputStop, expected: []byte{0x01, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeCommand(tt.code))
		})
	}
}

func TestDecodeHeightSpeed(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected HeightSpeed
		wantErr  bool
	}{
		{
			name:     "lowest position at rest",
			data:     []byte{0x00, 0x00, 0x00, 0x00},
			expected: HeightSpeed{RawHeight: 0, RawSpeed: 0},
		},
		{
			name:     "mid travel moving up",
			data:     []byte{0x84, 0x10, 0x64, 0x00},
			expected: HeightSpeed{RawHeight: 4228, RawSpeed: 100},
		},
		{
			name:     "moving down has negative speed",
			data:     []byte{0x84, 0x10, 0x9c, 0xff},
			expected: HeightSpeed{RawHeight: 4228, RawSpeed: -100},
		},
		{
			name:     "extra trailing bytes are ignored",
			data:     []byte{0x10, 0x27, 0x00, 0x00, 0xaa, 0xbb},
			expected: HeightSpeed{RawHeight: 10000, RawSpeed: 0},
		},
		{
			name:    "short payload",
			data:    []byte{0x84, 0x10, 0x64},
			wantErr: true,
		},
		{
			name:    "empty payload",
			data:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs, err := DecodeHeightSpeed(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, hs)
		})
	}
}

func TestHeightSpeed_Encode_RoundTrip(t *testing.T) {
	hs := HeightSpeed{RawHeight: 4228, RawSpeed: -32}
	decoded, err := DecodeHeightSpeed(hs.Encode())
	assert.NoError(t, err)
	assert.Equal(t, hs, decoded)
}

func TestHeightConversions(t *testing.T) {
	t.Run("millimeters", func(t *testing.T) {
		assert.InDelta(t, 620.0, HeightSpeed{RawHeight: 0}.Millimeters(), 0.001)
		assert.InDelta(t, 1042.8, HeightSpeed{RawHeight: 4228}.Millimeters(), 0.001)
		assert.InDelta(t, 1270.0, HeightSpeed{RawHeight: 6500}.Millimeters(), 0.001)
	})

	t.Run("speed", func(t *testing.T) {
		assert.InDelta(t, 1.0, HeightSpeed{RawSpeed: 100}.SpeedMMPerSec(), 0.001)
		assert.InDelta(t, -1.0, HeightSpeed{RawSpeed: -100}.SpeedMMPerSec(), 0.001)
	})

	t.Run("mm to raw clamps below base height", func(t *testing.T) {
		assert.Equal(t, uint16(0), MMToRaw(500))
		assert.Equal(t, uint16(0), MMToRaw(620))
		assert.Equal(t, uint16(630), MMToRaw(683))
		assert.Equal(t, uint16(6500), MMToRaw(1270))
	})

	t.Run("raw to mm inverts mm to raw", func(t *testing.T) {
		for _, mm := range []float64{620, 683, 1040, 1270} {
			assert.InDelta(t, mm, RawToMM(MMToRaw(mm)), 0.001)
		}
	})
}
