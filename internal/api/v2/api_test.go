package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	datastore "github.com/amshithnair/gearguard-odoo/internal/datastore/v2"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	e      *echo.Echo
	ctrl   *Controller
	engine *cbm.Engine
	repos  cbm.Repositories
	bus    *cbm.OutcomeBus
}

// newTestEnv serves the API over a seeded sqlite store. mutate may adjust the
// dependencies before routes are registered.
func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	log := logger.NewDiscardLogger()
	mgr, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize())

	repos := cbm.NewRepositories(mgr.DB())
	require.NoError(t, cbm.SeedDefaults(t.Context(), repos, log))

	bus := cbm.NewOutcomeBus()
	engine := cbm.NewEngine(repos, log, cbm.WithBus(bus))

	deps := Deps{
		Engine:  engine,
		Repos:   repos,
		DB:      mgr,
		Bus:     bus,
		Version: "test",
	}
	for _, m := range mutate {
		m(&deps)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := echo.New()
	ctrl := New(ctx, e, deps, log)
	t.Cleanup(func() {
		cancel()
		ctrl.Close()
		bus.Stop()
		engine.Stop()
	})

	return &testEnv{e: e, ctrl: ctrl, engine: engine, repos: repos, bus: bus}
}

// do sends a request through the router. A string body is sent verbatim, anything
// else is JSON encoded.
func (env *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.NewStd("connection refused") }
func (failingPinger) Dialect() string            { return "mysql" }

type staticCounts map[string]float64

func (s staticCounts) ReadingCounts() (map[string]float64, error) { return s, nil }

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(d *Deps) {
		d.Metrics = staticCounts{cbm.ResultNormal: 3}
	})

	rec := env.do(t, http.MethodGet, "/api/v2/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Dialect)
	assert.Equal(t, "test", resp.Version)
	assert.InDelta(t, 3, resp.Readings[cbm.ResultNormal], 0)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(d *Deps) { d.DB = failingPinger{} })

	rec := env.do(t, http.MethodGet, "/api/v2/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Contains(t, resp.Database, "connection refused")
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	build := func(cat errors.Category) error {
		return errors.Newf("boom").Category(cat).Build()
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", build(errors.CategoryValidation), http.StatusBadRequest},
		{"not found", build(errors.CategoryNotFound), http.StatusNotFound},
		{"database", build(errors.CategoryDatabase), http.StatusInternalServerError},
		{"uncategorized uses fallback", errors.NewStd("plain"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err, http.StatusTeapot))
		})
	}
}
