package device

import (
	"fmt"
	"strings"
)

// ValidateAddress checks that addr is a BLE hardware address in the
// six colon-separated hex byte-pair form (e.g. "E8:5B:5B:24:22:E4") and
// returns it uppercased. Validation happens before any connection attempt so
// a typo fails fast instead of hanging in the BLE stack.
func ValidateAddress(addr string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(addr))
	if s == "" {
		return "", fmt.Errorf("device address is empty")
	}

	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return "", fmt.Errorf("invalid device address %q: expected six colon-separated hex byte pairs", addr)
	}
	for _, p := range parts {
		if len(p) != 2 || !isHexByte(p) {
			return "", fmt.Errorf("invalid device address %q: %q is not a hex byte pair", addr, p)
		}
	}
	return s, nil
}

func isHexByte(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
