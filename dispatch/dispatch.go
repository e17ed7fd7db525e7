// Package dispatch drives GATT command writes against base stations: one
// connection at a time, a discover-pick-write-disconnect sequence per device
// and per-device failure isolation within a batch.
package dispatch

import (
	"context"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	blepkg "github.com/matty/go-lighthouse-manager/ble"
	"github.com/matty/go-lighthouse-manager/lighthouse"
)

var ErrNoWritableCharacteristic = errors.New("no writable characteristic found")

// Pause between devices in a batch so the adapter isn't saturated with
// back-to-back connection attempts.
var interDevicePause = 500 * time.Millisecond

var (
	commandWritesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lighthouse_dispatch_command_writes_total",
	})
	failedCommandsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lighthouse_dispatch_failed_commands_total",
	})
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(commandWritesCounter, failedCommandsCounter)
}

// Dialer resolves an address into a live GATT connection.
type Dialer interface {
	Dial(ctx context.Context, addr string) (blepkg.Client, error)
}

type Dispatcher struct {
	dialer Dialer
}

func New(dialer Dialer) *Dispatcher {
	return &Dispatcher{dialer: dialer}
}

// Batch sends the command to every target in order, strictly sequentially.
// A device failing is reported and skipped; later devices are unaffected.
// Returns the number of devices the command was written to.
func (d *Dispatcher) Batch(
	ctx context.Context,
	targets []lighthouse.DeviceRecord,
	command lighthouse.Command,
	printf func(format string, args ...any),
) int {
	printf("Sending %v command to %d Lighthouse devices...", command, len(targets))

	reached := 0

	for i, target := range targets {
		if i > 0 {
			time.Sleep(interDevicePause)
		}

		printf("Processing device %d of %d...", i+1, len(targets))

		if err := d.sendTo(ctx, target, command); err != nil {
			failedCommandsCounter.Inc()

			log.Error().
				Err(err).
				Stringer("Device", target).
				Msg("dispatch: failed to send command to device")
			printf("Failed to send %v command to %s: %v", command, target, err)

			continue
		}

		reached += 1
		printf("Successfully sent %v command to %s", command, target)
	}

	printf("%v operation completed", command)

	return reached
}

func (d *Dispatcher) sendTo(
	ctx context.Context,
	target lighthouse.DeviceRecord,
	command lighthouse.Command,
) error {
	client, err := d.dialer.Dial(ctx, target.Address)

	if err != nil {
		return errors.Wrapf(err, "failed to connect to %q", target.Name)
	}

	defer client.CancelConnection()

	return Send(client, target.Name, command)
}

// Send writes the command byte to an already-connected device. The exact
// lighthouse control characteristic is preferred; any writable
// characteristic serves as a fallback. The write itself is unacknowledged
// (write-without-response), so a nil return means the command was written,
// not that the device honored it. Sending the same command twice is safe.
func Send(client blepkg.Client, name string, command lighthouse.Command) error {
	profile, err := client.DiscoverProfile(true)

	if err != nil {
		return errors.Wrapf(err, "cannot discover profile for %q", name)
	}

	char := pickControlCharacteristic(profile)

	if char == nil {
		return errors.Wrapf(ErrNoWritableCharacteristic, "device %q", name)
	}

	log.Debug().
		Str("Device", name).
		Stringer("Characteristic", char.UUID).
		Stringer("Command", command).
		Msg("dispatch: writing command byte")

	if err := client.WriteCharacteristic(char, []byte{command.Byte()}, true); err != nil {
		return errors.Wrapf(err, "failed to write %v command to %q", command, name)
	}

	commandWritesCounter.Inc()

	return nil
}

// pickControlCharacteristic returns the lighthouse control characteristic
// when the device exposes the well-known service/characteristic pair, and
// otherwise falls back to the first characteristic on any service that
// supports a write.
func pickControlCharacteristic(profile *ble.Profile) *ble.Characteristic {
	var fallback *ble.Characteristic

	for _, svc := range profile.Services {
		for _, char := range svc.Characteristics {
			if svc.UUID.Equal(lighthouse.ServiceUUID) && char.UUID.Equal(lighthouse.ControlCharUUID) {
				return char
			}

			if fallback == nil && char.Property&(ble.CharWrite|ble.CharWriteNR) != 0 {
				fallback = char
			}
		}
	}

	return fallback
}
