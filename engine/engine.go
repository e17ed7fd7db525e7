// Package engine reconciles the persisted device cache against what is
// actually visible on the air and drives command dispatch over the resolved
// set. The cache is a hint, never ground truth: every dispatch path
// reconfirms device presence with a live sweep before writing.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/matty/go-lighthouse-manager/ble"
	"github.com/matty/go-lighthouse-manager/lighthouse"
	"github.com/matty/go-lighthouse-manager/utils"
)

const (
	// Sweep window for user-initiated scans.
	DefaultUserScanWindow = 5 * time.Second
	// Shorter window for automatic power-event triggered scans.
	DefaultPowerEventScanWindow = 3 * time.Second
)

// Scanner runs one timed discovery sweep.
type Scanner interface {
	Sweep(ctx context.Context, window time.Duration) ([]ble.Peripheral, error)
}

// Dispatcher sends a command to a batch of devices sequentially and returns
// how many were reached.
type Dispatcher interface {
	Batch(
		ctx context.Context,
		targets []lighthouse.DeviceRecord,
		command lighthouse.Command,
		printf func(format string, args ...any),
	) int
}

// Store persists the known device list.
type Store interface {
	Load() ([]lighthouse.DeviceRecord, error)
	Save(devices []lighthouse.DeviceRecord) error
	Clear() error
	Path() string
}

// Prompter asks the operator a yes/no question. A nil Prompter puts the
// engine in automated mode: no questions, no implicit rescans.
type Prompter interface {
	Confirm(question string) bool
}

type Engine struct {
	Scanner    Scanner
	Dispatcher Dispatcher
	Store      Store
	Reporter   Reporter

	// Optional; nil means automated mode.
	Prompter Prompter

	UserScanWindow       time.Duration
	PowerEventScanWindow time.Duration
}

func New(scanner Scanner, dispatcher Dispatcher, store Store, reporter Reporter) *Engine {
	return &Engine{
		Scanner:              scanner,
		Dispatcher:           dispatcher,
		Store:                store,
		Reporter:             reporter,
		UserScanWindow:       DefaultUserScanWindow,
		PowerEventScanWindow: DefaultPowerEventScanWindow,
	}
}

// Dispatch resolves which devices to trust and sends the command to them.
//
// With an empty cache it falls back to a fresh classified sweep. With a
// non-empty cache it sweeps unfiltered and intersects by address: cached
// devices currently visible get the command, cached devices not on the air
// are silently skipped. An empty intersection either prompts for a full
// rescan (interactive) or terminates with no-devices-found (automated).
func (e *Engine) Dispatch(ctx context.Context, command lighthouse.Command) Result {
	cached, err := e.Store.Load()

	if err != nil {
		// degrade to empty-cache behavior, a broken cache never aborts.
		log.Warn().Err(err).Msg("engine: failed to load device cache, treating as empty")
		e.Reporter.Errorf("Failed to load known devices: %v", err)
		cached = nil
	}

	if len(cached) == 0 {
		e.Reporter.Printf("No known devices found. Performing a scan automatically...")
		return e.freshDispatch(ctx, command, e.UserScanWindow)
	}

	e.Reporter.Printf("Found %d known Lighthouse devices:", len(cached))

	for i, dev := range cached {
		e.Reporter.Printf("Known device %d: %s (%s)", i+1, dev.Name, dev.Address)
	}

	e.Reporter.Printf("Using known devices automatically.")

	peripherals, err := e.Scanner.Sweep(ctx, e.UserScanWindow)

	if err != nil {
		e.Reporter.Errorf("Failed to scan for devices: %v", err)
		return ErrorResult(fmt.Sprintf("Failed to scan for devices: %v", err), CodeBluetoothError)
	}

	targets := intersectByAddress(cached, peripherals)

	if len(targets) == 0 {
		return e.emptyIntersection(ctx, command)
	}

	e.Reporter.Printf(
		"Found %d of %d known devices in the current scan",
		len(targets),
		len(cached),
	)

	log.Debug().
		Array("Targets", utils.ToZeroLogArray(targets)).
		Stringer("Command", command).
		Msg("engine: dispatching to reconciled device set")

	reached := e.Dispatcher.Batch(ctx, targets, command, e.Reporter.Printf)

	return SuccessResult(
		fmt.Sprintf("Successfully sent %v command to %d devices", command, reached),
		targets,
	)
}

// intersectByAddress keeps the cached records whose address showed up in the
// sweep, preserving cache order.
func intersectByAddress(
	cached []lighthouse.DeviceRecord,
	peripherals []ble.Peripheral,
) []lighthouse.DeviceRecord {
	visible := make(map[string]bool, len(peripherals))

	for _, p := range peripherals {
		visible[strings.ToLower(p.Address)] = true
	}

	var targets []lighthouse.DeviceRecord

	for _, dev := range cached {
		if visible[strings.ToLower(dev.Address)] {
			targets = append(targets, dev)
		}
	}

	return targets
}

func (e *Engine) emptyIntersection(ctx context.Context, command lighthouse.Command) Result {
	e.Reporter.Printf("None of the cached devices were found in the current scan.")

	if e.Prompter == nil {
		return ErrorResult("No cached devices found in the current scan", CodeNoDevicesFound)
	}

	if !e.Prompter.Confirm("Would you like to perform a new scan to find devices? (y/n)") {
		e.Reporter.Printf("Exiting without performing a new scan.")
		return ErrorResult("User chose not to perform a new scan", CodeNoDevicesFound)
	}

	e.Reporter.Printf("Performing a new scan...")

	return e.freshDispatch(ctx, command, e.UserScanWindow)
}

// freshDispatch trusts classification instead of the cache: sweep, classify,
// persist, dispatch to the classified set.
func (e *Engine) freshDispatch(
	ctx context.Context,
	command lighthouse.Command,
	window time.Duration,
) Result {
	records, errResult := e.sweepAndCache(ctx, window)

	if errResult != nil {
		return *errResult
	}

	if len(records) == 0 {
		e.Reporter.Printf("No Lighthouse devices found")
		return ErrorResult("No Lighthouse devices found", CodeNoDevicesFound)
	}

	reached := e.Dispatcher.Batch(ctx, records, command, e.Reporter.Printf)

	return SuccessResult(
		fmt.Sprintf("Successfully sent %v command to %d devices", command, reached),
		records,
	)
}

// sweepAndCache runs a fresh classified sweep and persists the classified
// set. Cache write trouble is reported but never invalidates the resolved
// set.
func (e *Engine) sweepAndCache(
	ctx context.Context,
	window time.Duration,
) ([]lighthouse.DeviceRecord, *Result) {
	e.Reporter.Printf("Scanning for Lighthouse devices...")

	peripherals, err := e.Scanner.Sweep(ctx, window)

	if err != nil {
		e.Reporter.Errorf("Failed to scan for devices: %v", err)
		res := ErrorResult(fmt.Sprintf("Failed to scan for devices: %v", err), CodeBluetoothError)
		return nil, &res
	}

	records := lighthouse.Classify(peripherals)

	for i, dev := range records {
		e.Reporter.Printf("Lighthouse %d: %s (%s)", i+1, dev.Name, dev.Address)
	}

	if err := e.Store.Save(records); err != nil {
		log.Warn().Err(err).Msg("engine: failed to save device cache")
		e.Reporter.Errorf("Failed to save device information: %v", err)
	} else {
		e.Reporter.Printf("Successfully saved device information to %s", e.Store.Path())
	}

	return records, nil
}

// ScanAndCache performs a fresh classified sweep and persists the outcome.
// Finding nothing is a normal terminal outcome here, not an error.
func (e *Engine) ScanAndCache(ctx context.Context) Result {
	records, errResult := e.sweepAndCache(ctx, e.UserScanWindow)

	if errResult != nil {
		return *errResult
	}

	if len(records) == 0 {
		e.Reporter.Printf("No Lighthouse devices found")
		return SuccessResult("No Lighthouse devices found", records)
	}

	e.Reporter.Printf("Found %d Lighthouse Base Stations", len(records))

	return SuccessResult("Successfully scanned and saved device information", records)
}

// ListCachedDevices returns the cached device list, falling back to a full
// scan-and-cache when the cache is empty.
func (e *Engine) ListCachedDevices(ctx context.Context) Result {
	devices, err := e.Store.Load()

	if err != nil {
		e.Reporter.Errorf("Failed to load device cache: %v", err)
		return ErrorResult(fmt.Sprintf("Failed to load device cache: %v", err), CodeGeneralError)
	}

	if len(devices) > 0 {
		e.Reporter.Printf("Found %d cached devices", len(devices))
		return SuccessResult("Successfully retrieved device information", devices)
	}

	e.Reporter.Printf("No cached devices found. Performing a scan...")

	return e.ScanAndCache(ctx)
}

// ClearCache forgets every known device.
func (e *Engine) ClearCache() Result {
	if err := e.Store.Clear(); err != nil {
		e.Reporter.Errorf("Failed to clear device cache: %v", err)
		return ErrorResult(fmt.Sprintf("Failed to clear device cache: %v", err), CodeGeneralError)
	}

	e.Reporter.Printf("Successfully cleared device cache")

	return SuccessResult("Successfully cleared device cache", nil)
}

// PowerOnAll is the power-event path: always a fresh classified sweep with
// the shorter window, then power on whatever was found.
func (e *Engine) PowerOnAll(ctx context.Context) Result {
	e.Reporter.Printf("Powering on lighthouses...")
	return e.freshDispatch(ctx, lighthouse.PowerOn, e.PowerEventScanWindow)
}

// StandbyAll is the power-event counterpart putting every discovered base
// station in standby.
func (e *Engine) StandbyAll(ctx context.Context) Result {
	e.Reporter.Printf("Putting lighthouses in standby mode...")
	return e.freshDispatch(ctx, lighthouse.Standby, e.PowerEventScanWindow)
}
