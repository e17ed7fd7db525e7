// Package ble wraps the host's Bluetooth Low Energy adapter: initialization,
// timed discovery sweeps and connections to individual peripherals.
package ble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci/cmd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Advertisement = ble.Advertisement
type Characteristic = ble.Characteristic
type Client = ble.Client
type Profile = ble.Profile
type UUID = ble.UUID

type Handle struct {
	dev *linux.Device
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		sweepsCounter,
		successfulConnectionsCounter,
		failedConnectionsCounter,
		disconnectsCounter,
	)
}

func Init(deviceId int, flags Flags) (*Handle, error) {
	return InitWithConnParams(deviceId, ConnParamsDefault, flags)
}

func InitWithConnParams(deviceId int, connParams ConnParams, flags Flags) (*Handle, error) {
	var scanType scanType = scanTypePassive

	if flags&FlagScanTypeActive == FlagScanTypeActive {
		scanType = scanTypeActive
	}

	log.Debug().
		Stringer("ScanType", scanType).
		Stringer("Flags", flags).
		Stringer("ConnParams", &connParams).
		Int("DeviceID", deviceId).
		Msg("Initializing Bluetooth device")

	dev, err := linux.NewDevice(
		ble.OptDeviceID(deviceId),
		ble.OptConnParams(connParams.AdapterOptions()),
		ble.OptScanParams(cmd.LESetScanParameters{
			LEScanType:           uint8(scanType), // 0x00: passive, 0x01: active
			LEScanInterval:       0x0004,          // 0x0004 - 0x4000; N * 0.625msec
			LEScanWindow:         0x0004,          // 0x0004 - 0x4000; N * 0.625msec
			OwnAddressType:       0x00,            // 0x00: public, 0x01: random
			ScanningFilterPolicy: 0x00,            // accept all advertisements
		}),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to init bluetooth device: %w", err)
	}

	ble.SetDefaultDevice(dev)

	return &Handle{dev: dev}, nil
}

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
	return ble.WithSigHandler(ctx, cancel)
}

func (h *Handle) Stop() {
	h.dev.Stop()
}
