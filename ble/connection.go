package ble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	sweepsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lighthouse_ble_sweeps_total",
	})
	successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lighthouse_ble_successful_connections_total",
	})
	failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lighthouse_ble_failed_connections_total",
	})
	disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lighthouse_ble_disconnections_total",
	})
)

// Dial opens a connection to the peripheral with the given address. Only one
// connection is held at a time by the pipeline; the caller tears it down
// before dialing the next device.
func (h *Handle) Dial(ctx context.Context, addr string) (Client, error) {
	conn, err := ble.Dial(ctx, ble.NewAddr(addr))

	if err != nil {
		failedConnectionsCounter.Inc()
		return nil, err
	}

	successfulConnectionsCounter.Inc()
	log.Debug().Str("Addr", addr).Msg("ble: successfully opened connection to device")

	go func() {
		<-conn.Disconnected()

		disconnectsCounter.Inc()
		log.Debug().Str("Addr", addr).Msg("ble: connection with device closed")
	}()

	return conn, nil
}
