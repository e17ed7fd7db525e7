package lighthouse

import (
	"fmt"
	"strings"
)

// DeviceRecord is the persisted identity of a base station. The address is
// the stable key; the name is whatever the device last advertised.
type DeviceRecord struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (d DeviceRecord) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Address)
}

// Dedupe removes records sharing an address, keeping the first occurrence.
// Order is preserved.
func Dedupe(devices []DeviceRecord) []DeviceRecord {
	seen := make(map[string]bool, len(devices))
	out := make([]DeviceRecord, 0, len(devices))

	for _, dev := range devices {
		addr := strings.ToLower(dev.Address)

		if seen[addr] {
			continue
		}

		seen[addr] = true
		out = append(out, dev)
	}

	return out
}
