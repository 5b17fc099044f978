package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/amshithnair/gearguard-odoo/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulatorEnv(t *testing.T) (*testEnv, *simulator.Simulator) {
	t.Helper()

	var sim *simulator.Simulator
	env := newTestEnv(t, func(d *Deps) {
		// An hour-long interval keeps ticks out of the test; only Set ingests.
		sim = simulator.New(d.Engine, d.Engine, simulator.Config{Interval: time.Hour}, logger.NewDiscardLogger())
		d.Simulator = sim
	})
	t.Cleanup(sim.Stop)
	return env, sim
}

func TestSimulatorRoutes_NotConfigured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, path := range []string{"/api/v2/simulator", "/api/v2/simulator/start"} {
		method := http.MethodGet
		if path != "/api/v2/simulator" {
			method = http.MethodPost
		}
		rec := env.do(t, method, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestSimulatorRoutes_StartStop(t *testing.T) {
	t.Parallel()

	env, sim := newSimulatorEnv(t)

	status := decode[simulator.Status](t, env.do(t, http.MethodGet, "/api/v2/simulator", nil))
	assert.False(t, status.Running)

	rec := env.do(t, http.MethodPost, "/api/v2/simulator/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[simulator.Status](t, rec).Running)
	assert.True(t, sim.Running(), "the run outlives the request")

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/v2/simulator/start", nil).Code)

	rec = env.do(t, http.MethodPost, "/api/v2/simulator/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[simulator.Status](t, rec).Running)

	// Stopping twice is harmless.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v2/simulator/stop", nil).Code)
}

func TestSimulatorRoutes_Set(t *testing.T) {
	t.Parallel()

	env, _ := newSimulatorEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v2/simulator/set", map[string]any{
		"equipment_id": "eq1",
		"parameter":    "Temperature",
		"value":        88,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[cbm.IngestResult](t, rec)
	assert.True(t, result.IsAnomaly)
	assert.Equal(t, cbm.MessageAnomaly, result.Message)

	status := decode[simulator.Status](t, env.do(t, http.MethodGet, "/api/v2/simulator", nil))
	require.Len(t, status.Sensors, 1)
	assert.InDelta(t, 88, status.Sensors[0].Value, 0)

	missing := env.do(t, http.MethodPost, "/api/v2/simulator/set", map[string]any{"equipment_id": "eq1", "parameter": "Temperature"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	unknown := env.do(t, http.MethodPost, "/api/v2/simulator/set", map[string]any{
		"equipment_id": "eq42", "parameter": "Temperature", "value": 1,
	})
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}
