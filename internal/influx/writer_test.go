package influx

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "http://influx.test"

type sinkCounter struct {
	mu         sync.Mutex
	ok, failed int
}

func (s *sinkCounter) ObserveSink(_ string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failed++
		return
	}
	s.ok++
}

type capturedWrite struct {
	org, bucket string
	body        string
}

// newMockedWriter routes the client through an httpmock transport and records write requests.
func newMockedWriter(t *testing.T, status int) (*Writer, *httpmock.MockTransport, *sinkCounter, func() []capturedWrite) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	var (
		mu     sync.Mutex
		writes []capturedWrite
	)
	transport.RegisterResponder(http.MethodPost, testURL+"/api/v2/write",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			mu.Lock()
			writes = append(writes, capturedWrite{
				org:    req.URL.Query().Get("org"),
				bucket: req.URL.Query().Get("bucket"),
				body:   string(body),
			})
			mu.Unlock()
			if status >= 400 {
				return httpmock.NewJsonResponse(status, map[string]string{"code": "internal error", "message": "write failed"})
			}
			return httpmock.NewStringResponse(status, ""), nil
		})

	sink := &sinkCounter{}
	w := NewWriter(&conf.InfluxSettings{
		URL:    testURL,
		Token:  "token",
		Org:    "gearguard",
		Bucket: "telemetry",
	}, sink, logger.NewDiscardLogger(), WithHTTPClient(&http.Client{Transport: transport}))
	t.Cleanup(w.Close)

	return w, transport, sink, func() []capturedWrite {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedWrite(nil), writes...)
	}
}

func testOutcome(anomaly bool) *cbm.Outcome {
	return &cbm.Outcome{
		LogEntry: entities.TelemetryLog{
			ID: "log-1", EquipmentID: "eq1", Parameter: "temperature", Value: 85.5,
			ObservedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), IsAnomaly: anomaly, ProcessedFlag: true,
		},
		Tickets: []entities.MaintenanceRequest{{ID: "req-1"}},
	}
}

func TestWriter_WritesLineProtocol(t *testing.T) {
	t.Parallel()

	w, _, sink, writes := newMockedWriter(t, http.StatusNoContent)

	w.Handle(testOutcome(true))

	got := writes()
	require.Len(t, got, 1)
	assert.Equal(t, "gearguard", got[0].org)
	assert.Equal(t, "telemetry", got[0].bucket)

	line := strings.TrimSpace(got[0].body)
	assert.True(t, strings.HasPrefix(line, defaultMeasurement+","), "line %q", line)
	assert.Contains(t, line, "equipment_id=eq1")
	assert.Contains(t, line, "parameter=temperature")
	assert.Contains(t, line, "value=85.5")
	assert.Contains(t, line, "is_anomaly=true")
	assert.Contains(t, line, "tickets=1i")
	assert.True(t, strings.HasSuffix(line, "1748764800000000000"), "timestamp is the observation time")

	assert.Equal(t, 1, sink.ok)
}

func TestWriter_FailureIsCountedNotPropagated(t *testing.T) {
	t.Parallel()

	w, transport, sink, _ := newMockedWriter(t, http.StatusInternalServerError)

	assert.NotPanics(t, func() { w.Handle(testOutcome(false)) })
	assert.Equal(t, 1, sink.failed)
	assert.Positive(t, transport.GetTotalCallCount())
}

func TestWriter_CustomMeasurement(t *testing.T) {
	t.Parallel()

	w := NewWriter(&conf.InfluxSettings{URL: testURL, Org: "o", Bucket: "b", Measurement: "plant_a"}, nil, nil)
	defer w.Close()

	p := w.Point(testOutcome(false))
	assert.Equal(t, "plant_a", p.Name())
}
