// Package lighthouse holds the protocol knowledge for SteamVR Lighthouse
// base stations: the advertisement fingerprint used to recognize them and
// the GATT endpoint used to drive their power state.
package lighthouse

import (
	"github.com/go-ble/ble"
)

const (
	// Advertised local name prefix shared by all base stations.
	NamePrefix = "LHB"

	// Bluetooth SIG company identifier carried in base station advertisements.
	ManufacturerID uint16 = 1373
)

var (
	// Power management service exposed by base stations.
	ServiceUUID = ble.MustParse("00001523-1212-efde-1523-785feabcd124")

	// Control characteristic within the power management service. A single
	// byte written here drives the power state.
	ControlCharUUID = ble.MustParse("00001525-1212-efde-1523-785feabcd124")
)
