package ble

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/matty/go-lighthouse-manager/utils"
)

const unknownName = "Unknown"

// Peripheral is a snapshot of everything a single address advertised during
// one sweep. It holds no platform resources: peripherals are re-resolved by
// address when a connection is needed, so a snapshot must not be retained
// past the operation that produced it.
type Peripheral struct {
	Address          string
	LocalName        string
	Connectable      bool
	ManufacturerData map[uint16][]byte
	Services         []UUID
}

// Name returns the advertised local name, or a sentinel when the device
// never advertised one.
func (p Peripheral) Name() string {
	if p.LocalName == "" {
		return unknownName
	}

	return p.LocalName
}

func (p Peripheral) String() string {
	return fmt.Sprintf("%s (%s)", p.Name(), p.Address)
}

// Sweep scans for the given window and returns a snapshot of every
// peripheral seen, merging advertisements and scan responses per address.
// The window elapsing is how a sweep normally ends and is not an error.
func (h *Handle) Sweep(parentCtx context.Context, window time.Duration) ([]Peripheral, error) {
	sweepsCounter.Inc()

	log.Debug().
		Dur("Window", window).
		Msg("ble: starting discovery sweep")

	seen := make(map[string]*Peripheral)
	var order []string

	ctx, cancel := context.WithTimeout(parentCtx, window)
	defer cancel()

	var eg errgroup.Group

	eg.Go(func() error {
		return h.dev.Scan(ctx, false, func(a Advertisement) {
			mergeAdvertisement(seen, &order, a)
		})
	})

	err := eg.Wait()

	if utils.ErrorIsAnyOf(err, context.Canceled, context.DeadlineExceeded) {
		err = nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}

	out := make([]Peripheral, 0, len(order))

	for _, addr := range order {
		out = append(out, *seen[addr])
	}

	log.Debug().
		Int("Found", len(out)).
		Msg("ble: discovery sweep finished")

	return out, nil
}

// mergeAdvertisement folds one advertisement into the sweep snapshot.
// Devices are kept in first-seen order; later advertisements only fill in
// fields the earlier ones were missing.
func mergeAdvertisement(seen map[string]*Peripheral, order *[]string, a Advertisement) {
	addr := strings.ToLower(a.Addr().String())

	p := seen[addr]

	if p == nil {
		p = &Peripheral{
			Address:          addr,
			ManufacturerData: make(map[uint16][]byte),
		}

		seen[addr] = p
		*order = append(*order, addr)
	}

	if p.LocalName == "" {
		p.LocalName = a.LocalName()
	}

	p.Connectable = a.Connectable()

	if id, payload, ok := splitManufacturerData(a.ManufacturerData()); ok {
		p.ManufacturerData[id] = payload
	}

	for _, uuid := range a.Services() {
		known := false

		for _, existing := range p.Services {
			if existing.Equal(uuid) {
				known = true
				break
			}
		}

		if !known {
			p.Services = append(p.Services, uuid)
		}
	}

	log.Trace().
		Str("Addr", addr).
		Str("Name", a.LocalName()).
		Bool("Connectable", a.Connectable()).
		Interface("ManufacturerIDs", maps.Keys(p.ManufacturerData)).
		Hex("ManufacturerData", a.ManufacturerData()).
		Msg("ble: received device advertisement")
}

// splitManufacturerData extracts the little-endian company identifier that
// prefixes advertisement manufacturer data.
func splitManufacturerData(data []byte) (id uint16, payload []byte, ok bool) {
	if len(data) < 2 {
		return 0, nil, false
	}

	return binary.LittleEndian.Uint16(data), append([]byte(nil), data[2:]...), true
}
