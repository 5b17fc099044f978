// Package influx mirrors ingested readings into an InfluxDB bucket.
package influx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	sinkName           = "influx"
	defaultMeasurement = "machine_telemetry"
	writeTimeout       = 5 * time.Second
)

// SinkObserver counts forward attempts.
type SinkObserver interface {
	ObserveSink(sink string, err error)
}

// Option configures a Writer.
type Option func(*influxdb2.Options)

// WithHTTPClient sends requests through client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *influxdb2.Options) { o.SetHTTPClient(client) }
}

// Writer stores one point per reading.
type Writer struct {
	client      influxdb2.Client
	api         api.WriteAPIBlocking
	measurement string
	observer    SinkObserver
	log         logger.Logger
}

// NewWriter creates a blocking write client. Caller should call Close when done.
func NewWriter(settings *conf.InfluxSettings, observer SinkObserver, log logger.Logger, opts ...Option) *Writer {
	if log == nil {
		log = logger.Global()
	}
	options := influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(writeTimeout / time.Second))
	for _, opt := range opts {
		opt(options)
	}
	client := influxdb2.NewClientWithOptions(settings.URL, settings.Token, options)

	measurement := settings.Measurement
	if measurement == "" {
		measurement = defaultMeasurement
	}
	return &Writer{
		client:      client,
		api:         client.WriteAPIBlocking(settings.Org, settings.Bucket),
		measurement: measurement,
		observer:    observer,
		log:         log.Module("influx"),
	}
}

// Point builds the point for one logged reading.
func (w *Writer) Point(outcome *cbm.Outcome) *write.Point {
	entry := outcome.LogEntry
	return influxdb2.NewPointWithMeasurement(w.measurement).
		AddTag("equipment_id", entry.EquipmentID).
		AddTag("parameter", entry.Parameter).
		AddField("value", entry.Value).
		AddField("is_anomaly", entry.IsAnomaly).
		AddField("tickets", len(outcome.Tickets)).
		SetTime(entry.ObservedAt)
}

// Write stores one outcome.
func (w *Writer) Write(ctx context.Context, outcome *cbm.Outcome) error {
	if err := w.api.WritePoint(ctx, w.Point(outcome)); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Handle is a cbm.OutcomeHandler. Failures are logged and counted, never retried.
func (w *Writer) Handle(outcome *cbm.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := w.Write(ctx, outcome)
	if w.observer != nil {
		w.observer.ObserveSink(sinkName, err)
	}
	if err != nil {
		w.log.Warn("failed to mirror reading",
			logger.String("equipment_id", outcome.LogEntry.EquipmentID),
			logger.Error(err))
	}
}

// Health checks that InfluxDB is reachable.
func (w *Writer) Health(ctx context.Context) error {
	_, err := w.client.Health(ctx)
	return err
}

// Close releases the client.
func (w *Writer) Close() {
	w.client.Close()
}
