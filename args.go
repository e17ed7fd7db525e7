package main

import (
	"flag"

	"github.com/matty/go-lighthouse-manager/ble"
)

type config struct {
	Debug, Trace bool
	JSONOutput   bool

	PowerOn, Standby bool
	ScanOnly         bool
	DevicesMode      bool
	ClearCacheMode   bool

	RegisterSteamVR   bool
	UnregisterSteamVR bool
	SteamVRStarted    bool
	SteamVRStopped    bool

	BluetoothDeviceId   int
	BluetoothConnParams ble.ConnParams
	SettingsPath        string
}

func ParseArgs() config {
	var cfg config

	flag.BoolVar(&cfg.PowerOn, "poweron", false, "Power on all detected Lighthouse devices")
	flag.BoolVar(&cfg.Standby, "standby", false, "Put all detected Lighthouse devices in standby mode")
	flag.BoolVar(&cfg.ScanOnly, "scan", false, "Scan for devices and save them to the device cache")
	flag.BoolVar(&cfg.DevicesMode, "devices", false, "Return the list of known devices")
	flag.BoolVar(&cfg.ClearCacheMode, "clear-cache", false, "Forget all cached devices")
	flag.BoolVar(&cfg.JSONOutput, "json", false, "Emit the operation result as JSON on stdout")
	flag.BoolVar(&cfg.RegisterSteamVR, "register-steamvr", false,
		"Register with SteamVR for automatic power management")
	flag.BoolVar(&cfg.UnregisterSteamVR, "unregister-steamvr", false, "Unregister from SteamVR")
	flag.BoolVar(&cfg.SteamVRStarted, "steamvr-started", false,
		"Called by SteamVR when it starts (powers on lighthouses)")
	flag.BoolVar(&cfg.SteamVRStopped, "steamvr-stopped", false,
		"Called by SteamVR when it exits (puts lighthouses in standby)")
	flag.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", -1,
		"Bluetooth (HCI) device ID (overrides the settings file)")
	cfg.BluetoothConnParams = ble.ConnParamsDefault
	flag.Var(&cfg.BluetoothConnParams, "bluetooth-connection-params",
		"Bluetooth connection parameters (one of 'default' or 'power-saving')")
	flag.StringVar(&cfg.SettingsPath, "config", "", "Path to the settings file")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
	flag.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

	flag.Parse()

	return cfg
}

func (c config) hasMode() bool {
	return c.PowerOn || c.Standby || c.ScanOnly || c.DevicesMode || c.ClearCacheMode ||
		c.RegisterSteamVR || c.UnregisterSteamVR || c.SteamVRStarted || c.SteamVRStopped
}
