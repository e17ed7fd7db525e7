package lighthouse

import (
	"strings"

	"github.com/matty/go-lighthouse-manager/ble"
)

// IsLighthouse reports whether a scanned peripheral is a base station: the
// advertised name must carry the LHB prefix and the manufacturer data must
// contain the Valve company identifier. Pure advertisement inspection, no
// connection is made. A peripheral that never advertised a name can't match.
func IsLighthouse(p ble.Peripheral) bool {
	if !strings.HasPrefix(p.Name(), NamePrefix) {
		return false
	}

	_, ok := p.ManufacturerData[ManufacturerID]

	return ok
}

// Classify filters a sweep snapshot down to base stations and derives the
// persistable records for them, deduplicated by address.
func Classify(peripherals []ble.Peripheral) []DeviceRecord {
	var records []DeviceRecord

	for _, p := range peripherals {
		if !IsLighthouse(p) {
			continue
		}

		records = append(records, DeviceRecord{
			Name:    p.Name(),
			Address: p.Address,
		})
	}

	return Dedupe(records)
}
