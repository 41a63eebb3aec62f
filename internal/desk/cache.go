package desk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// CachedDevice remembers a previously resolved desk so later runs can skip
// the pre-connect scan.
type CachedDevice struct {
	Address  string    `yaml:"address"`
	Name     string    `yaml:"name"`
	CachedAt time.Time `yaml:"cached_at"`
}

// Matches reports whether the cache entry refers to address.
func (c *CachedDevice) Matches(address string) bool {
	return c != nil && strings.EqualFold(c.Address, address)
}

// LoadCache reads the device cache. A missing file is not an error; a corrupt
// one is ignored and reported as a miss, since the cache is only an
// optimization.
func LoadCache(path string) (*CachedDevice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read device cache %q: %w", path, err)
	}

	var cached CachedDevice
	if err := yaml.Unmarshal(data, &cached); err != nil {
		return nil, nil
	}
	if cached.Address == "" {
		return nil, nil
	}
	return &cached, nil
}

// SaveCache persists the resolved desk for future runs.
func SaveCache(path string, dev device.DeviceInfo) error {
	cached := CachedDevice{
		Address:  dev.Address(),
		Name:     dev.Name(),
		CachedAt: time.Now().UTC(),
	}

	data, err := yaml.Marshal(&cached)
	if err != nil {
		return fmt.Errorf("failed to encode device cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device cache %q: %w", path, err)
	}
	return nil
}
