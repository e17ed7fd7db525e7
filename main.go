package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	blepkg "github.com/matty/go-lighthouse-manager/ble"
	"github.com/matty/go-lighthouse-manager/cache"
	settings "github.com/matty/go-lighthouse-manager/config"
	"github.com/matty/go-lighthouse-manager/dispatch"
	"github.com/matty/go-lighthouse-manager/engine"
	"github.com/matty/go-lighthouse-manager/lighthouse"
	"github.com/matty/go-lighthouse-manager/steamvr"
)

func main() {
	zerolog.DurationFieldUnit = time.Second
	zerolog.TimeFieldFormat = time.RFC3339Nano

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05.000",
	})

	cfg := ParseArgs()
	conf := loadSettings(cfg)

	applyLogLevel(cfg, conf)

	if !cfg.hasMode() {
		flag.Usage()
		os.Exit(engine.CodeGeneralError)
	}

	registry := prometheus.NewRegistry()
	blepkg.RegisterMetrics(registry)
	dispatch.RegisterMetrics(registry)

	res := run(cfg, conf)

	if cfg.Debug || cfg.Trace {
		dumpMetrics(registry)
	}

	if cfg.JSONOutput {
		data, err := json.Marshal(res)

		if err != nil {
			log.Fatal().Err(err).Msg("Failed to serialize operation result")
		}

		fmt.Println(string(data))
	}

	os.Exit(res.ErrorCode)
}

func run(cfg config, conf settings.Settings) engine.Result {
	// ^C aborts the current sweep or connection attempt cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = blepkg.WrapContextWithSigHandler(ctx, cancel)

	var reporter engine.Reporter

	if cfg.JSONOutput {
		reporter = engine.NewSilentReporter()
	} else {
		reporter = engine.NewHumanReporter(os.Stdout, os.Stderr)
	}

	if cfg.RegisterSteamVR || cfg.UnregisterSteamVR {
		return runSteamVRRegistration(reporter, cfg.RegisterSteamVR)
	}

	store, err := cache.DefaultStore()

	if err != nil {
		reporter.Errorf("Failed to locate device cache: %v", err)
		return engine.ErrorResult(
			fmt.Sprintf("Failed to locate device cache: %v", err),
			engine.CodeGeneralError,
		)
	}

	deviceId := cfg.BluetoothDeviceId

	if deviceId < 0 {
		deviceId = conf.BluetoothDeviceID
	}

	var flags blepkg.Flags

	if !conf.PassiveScan {
		flags |= blepkg.FlagScanTypeActive
	}

	adapter := &lazyAdapter{
		deviceId:   deviceId,
		connParams: cfg.BluetoothConnParams,
		flags:      flags,
	}
	defer adapter.stop()

	eng := engine.New(adapter, dispatch.New(adapter), store, reporter)
	eng.UserScanWindow = conf.UserScanWindow()
	eng.PowerEventScanWindow = conf.PowerEventScanWindow()

	if !cfg.JSONOutput {
		eng.Prompter = &stdinPrompter{in: bufio.NewReader(os.Stdin)}
	}

	switch {
	case cfg.ClearCacheMode:
		return eng.ClearCache()
	case cfg.DevicesMode:
		return eng.ListCachedDevices(ctx)
	case cfg.ScanOnly:
		return eng.ScanAndCache(ctx)
	case cfg.SteamVRStarted:
		return eng.PowerOnAll(ctx)
	case cfg.SteamVRStopped:
		return eng.StandbyAll(ctx)
	}

	command := lighthouse.Standby

	if cfg.PowerOn {
		if cfg.Standby {
			reporter.Printf("Warning: both -standby and -poweron flags were provided.")
			reporter.Printf("These operations are mutually exclusive. Prioritizing power on command.")
		}

		command = lighthouse.PowerOn
	}

	return eng.Dispatch(ctx, command)
}

func runSteamVRRegistration(reporter engine.Reporter, register bool) engine.Result {
	integration, err := steamvr.NewIntegration()

	if err != nil {
		reporter.Errorf("Failed to prepare SteamVR integration: %v", err)
		return engine.ErrorResult(
			fmt.Sprintf("Failed to prepare SteamVR integration: %v", err),
			engine.CodeSteamVRError,
		)
	}

	if register {
		if err := integration.Register(); err != nil {
			reporter.Errorf("Failed to register with SteamVR: %v", err)
			return engine.ErrorResult(
				fmt.Sprintf("Failed to register with SteamVR: %v", err),
				engine.CodeSteamVRError,
			)
		}

		reporter.Printf("Successfully registered with SteamVR")

		return engine.SuccessResult("Successfully registered with SteamVR", nil)
	}

	if err := integration.Unregister(); err != nil {
		reporter.Errorf("Failed to unregister from SteamVR: %v", err)
		return engine.ErrorResult(
			fmt.Sprintf("Failed to unregister from SteamVR: %v", err),
			engine.CodeSteamVRError,
		)
	}

	reporter.Printf("Successfully unregistered from SteamVR")

	return engine.SuccessResult("Successfully unregistered from SteamVR", nil)
}

func loadSettings(cfg config) settings.Settings {
	path := cfg.SettingsPath

	if path == "" {
		defaultPath, err := settings.DefaultPath()

		if err != nil {
			log.Warn().Err(err).Msg("Failed to locate settings file, using defaults")
			return settings.Default()
		}

		path = defaultPath
	}

	conf, err := settings.Load(path)

	if err != nil {
		log.Warn().Err(err).Str("Path", path).Msg("Failed to load settings file, using defaults")
	}

	return conf
}

func applyLogLevel(cfg config, conf settings.Settings) {
	if cfg.Trace || os.Getenv("TRACE") != "" {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	} else if cfg.Debug || os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else if level, err := zerolog.ParseLevel(conf.LogLevel); err == nil && conf.LogLevel != "" {
		zerolog.SetGlobalLevel(level)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// lazyAdapter defers BLE initialization until an operation actually needs
// the radio, so cache-only modes work without an adapter present.
type lazyAdapter struct {
	deviceId   int
	connParams blepkg.ConnParams
	flags      blepkg.Flags
	handle     *blepkg.Handle
}

func (a *lazyAdapter) init() (*blepkg.Handle, error) {
	if a.handle == nil {
		handle, err := blepkg.InitWithConnParams(a.deviceId, a.connParams, a.flags)

		if err != nil {
			return nil, fmt.Errorf("no usable bluetooth adapter: %w", err)
		}

		a.handle = handle
	}

	return a.handle, nil
}

func (a *lazyAdapter) Sweep(ctx context.Context, window time.Duration) ([]blepkg.Peripheral, error) {
	handle, err := a.init()

	if err != nil {
		return nil, err
	}

	return handle.Sweep(ctx, window)
}

func (a *lazyAdapter) Dial(ctx context.Context, addr string) (blepkg.Client, error) {
	handle, err := a.init()

	if err != nil {
		return nil, err
	}

	return handle.Dial(ctx, addr)
}

func (a *lazyAdapter) stop() {
	if a.handle != nil {
		a.handle.Stop()
	}
}

type stdinPrompter struct {
	in *bufio.Reader
}

func (p *stdinPrompter) Confirm(question string) bool {
	fmt.Println(question)

	line, err := p.in.ReadString('\n')

	if err != nil {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func dumpMetrics(registry *prometheus.Registry) {
	families, err := registry.Gather()

	if err != nil {
		log.Warn().Err(err).Msg("Failed to gather metrics")
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				log.Debug().
					Str("Metric", family.GetName()).
					Float64("Value", counter.GetValue()).
					Msg("Final counter value")
			}
		}
	}
}
