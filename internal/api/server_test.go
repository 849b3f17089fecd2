package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/auth"
	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/events"
	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
	"github.com/mattjoyce/hearth/internal/storage"
)

const testKey = "test-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	noop := func(*engine.Frame) error { return nil }
	mod := engine.NewModule("demo", func(ctx *engine.InitContext, _ *resource.Registry) error {
		if err := ctx.Dispatch(schedule.Named("input"), engine.Func(noop)); err != nil {
			return err
		}
		if err := ctx.Dispatch(schedule.Named("physics").RunAfter("input"), engine.Func(noop)); err != nil {
			return err
		}
		if err := ctx.Dispatch(schedule.Named("audio"), engine.Func(noop)); err != nil {
			return err
		}
		return ctx.DispatchThreadLocal(schedule.Named("render").RunAfter("physics"), engine.Func(noop))
	})
	eng, err := engine.New(engine.Options{
		Workers:      2,
		Profile:      true,
		ProfileEvery: 1,
		Logger:       discardLogger(),
	}, mod)
	require.NoError(t, err)
	return eng
}

func newTestServer(t *testing.T, hist HistoryReader, hub *events.Hub) (*Server, *engine.Engine) {
	t.Helper()
	eng := newTestEngine(t)
	srv := New(Config{
		APIKey: testKey,
		Tokens: []auth.TokenConfig{{Token: "sched-only", Scopes: []string{auth.ScopeSchedule}}},
	}, eng, hist, hub, discardLogger())
	return srv, eng
}

func do(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthzNoAuth(t *testing.T) {
	srv, eng := newTestServer(t, nil, nil)
	rr := do(t, srv.Handler(), "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthzResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, eng.BootID(), resp.BootID)
	assert.False(t, resp.Running)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	h := srv.Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, "/schedule", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "/schedule", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "/schedule", "sched-only").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, "/profile", "sched-only").Code)
}

func TestSchedule(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	rr := do(t, srv.Handler(), "/schedule", testKey)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Workers  int        `json:"workers"`
		Waves    [][]string `json:"waves"`
		Parallel struct {
			Affinity    string           `json:"affinity"`
			Fingerprint string           `json:"fingerprint"`
			Units       []schedule.Entry `json:"units"`
		} `json:"parallel"`
		ThreadLocal struct {
			Units []schedule.Entry `json:"units"`
		} `json:"thread_local"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Workers)
	assert.Equal(t, "parallel", resp.Parallel.Affinity)
	assert.NotEmpty(t, resp.Parallel.Fingerprint)
	assert.Equal(t, [][]string{{"input", "audio"}, {"physics"}}, resp.Waves)
	require.Len(t, resp.ThreadLocal.Units, 1)
	assert.Equal(t, []string{"physics"}, resp.ThreadLocal.Units[0].After)
}

func TestProfileLive(t *testing.T) {
	srv, eng := newTestServer(t, nil, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Tick())
	}
	h := srv.Handler()

	rr := do(t, h, "/profile", testKey)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ProfileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Live)
	assert.Len(t, resp.Totals, 4)
	for _, tot := range resp.Totals {
		assert.Equal(t, int64(3), tot.Invocations, tot.System)
	}

	rr = do(t, h, "/profile?format=csv", testKey)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Name,Duration(ms),Invocations,%"))

	assert.Equal(t, http.StatusBadRequest, do(t, h, "/profile?format=xml", testKey).Code)
}

func openHistory(t *testing.T) *history.Store {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return history.NewStore(db)
}

func TestHistoryAndStoredProfile(t *testing.T) {
	hist := openHistory(t)
	srv, eng := newTestServer(t, hist, nil)
	ctx := context.Background()

	require.NoError(t, hist.RecordSchedule(ctx, eng.BootID(), "", eng.Plan().Schedule(schedule.Parallel)))
	require.NoError(t, hist.RecordProfile(ctx, "old-boot", []profile.Total{{System: "physics", Invocations: 7}}))
	h := srv.Handler()

	rr := do(t, h, "/history?limit=5", testKey)
	require.Equal(t, http.StatusOK, rr.Code)
	var hr HistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hr))
	require.Len(t, hr.Schedules, 1)
	assert.Equal(t, eng.BootID(), hr.Schedules[0].BootID)

	rr = do(t, h, "/profile?boot=old-boot", testKey)
	require.Equal(t, http.StatusOK, rr.Code)
	var pr ProfileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pr))
	assert.False(t, pr.Live)
	assert.Equal(t, "old-boot", pr.BootID)
	require.Len(t, pr.Totals, 1)
	assert.Equal(t, int64(7), pr.Totals[0].Invocations)

	assert.Equal(t, http.StatusNotFound, do(t, h, "/profile?boot=unknown", testKey).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "/history?limit=-1", testKey).Code)
}

func TestHistoryUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), "/history", testKey).Code)
}

func TestEventsReplayAndStream(t *testing.T) {
	hub := events.NewHub(16)
	srv, _ := newTestServer(t, nil, hub)
	hub.Publish(events.EngineStarted, events.Started{BootID: "b1"})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var typ, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				typ = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && typ != "":
				return typ, data
			}
		}
	}

	typ, data := readEvent()
	assert.Equal(t, events.EngineStarted, typ)
	assert.Contains(t, data, `"boot_id":"b1"`)

	// The subscription exists once the replay has been flushed.
	hub.Publish(events.EngineFPS, events.FPS{Tick: 9, FPS: 60})
	typ, data = readEvent()
	assert.Equal(t, events.EngineFPS, typ)
	assert.Contains(t, data, `"tick":9`)
}

func TestParseLastEventID(t *testing.T) {
	assert.Equal(t, int64(0), parseLastEventID(""))
	assert.Equal(t, int64(0), parseLastEventID("abc"))
	assert.Equal(t, int64(0), parseLastEventID("-4"))
	assert.Equal(t, int64(12), parseLastEventID("12"))
}

func TestParseTypes(t *testing.T) {
	assert.Nil(t, parseTypes(""))
	assert.Equal(t, []string{events.EngineFPS, events.SystemPanic}, parseTypes(" engine.fps, ,system.panic"))
}

func TestWriteSSE(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeSSE(&b, events.Event{ID: 7, Type: events.EngineTick, Data: []byte(`{"tick":3}`)}))
	assert.Equal(t, "id: 7\nevent: engine.tick\ndata: {\"tick\":3}\n\n", b.String())
}
