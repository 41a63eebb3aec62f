package goble

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// BLEService represents a discovered GATT service with its characteristics
// in discovery order.
type BLEService struct {
	uuid            string
	characteristics *orderedmap.OrderedMap[string, *BLECharacteristic]
}

func (s *BLEService) UUID() string {
	return s.uuid
}

func (s *BLEService) Characteristics() []device.Characteristic {
	result := make([]device.Characteristic, 0, s.characteristics.Len())
	for pair := s.characteristics.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}
