package api

import (
	"bytes"
	"context"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branched-services/go-montecarlo/internal/catalog"
	"github.com/branched-services/go-montecarlo/internal/runs"
)

func newTestServer(t *testing.T) (*Server, *runs.Service) {
	t.Helper()
	svc := runs.NewService(catalog.Builtin(), runs.WithMaxSamples(50_000))
	return NewServer(":0", svc, slog.Default()), svc
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestTargets(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/targets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decode[struct {
		Targets []TargetResponse `json:"targets"`
	}](t, rec)
	require.Len(t, body.Targets, 2)
	assert.Equal(t, "circle", body.Targets[0].Name)
	assert.InDelta(t, math.Pi, body.Targets[0].Reference, 1e-15)
	assert.Equal(t, 4.0, body.Targets[0].Scale)
	assert.Equal(t, "star", body.Targets[1].Name)
	assert.Equal(t, "polygon", body.Targets[1].Kind)
	assert.Equal(t, 1.4, body.Targets[1].Reference)
}

func TestCreateRun(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/runs", `{"target":"circle","samples":2000,"seed":42}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	run := decode[RunResponse](t, rec)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, uint64(42), run.Seed)
	assert.True(t, run.Seeded)
	assert.Equal(t, 2000, run.Summary.Samples)
	assert.Equal(t, 2000, run.Summary.Inside+run.Summary.Outside)
	require.NotEmpty(t, run.Convergence)
	assert.Equal(t, 2000, run.Convergence[len(run.Convergence)-1].Samples)
	assert.Empty(t, run.InsidePoints, "points omitted by default")

	// Same seed, same estimate, with points.
	rec = do(t, s, http.MethodPost, "/v1/runs?points=true", `{"target":"circle","samples":2000,"seed":42}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	again := decode[RunResponse](t, rec)
	assert.Equal(t, run.Summary.Estimate, again.Summary.Estimate)
	assert.Len(t, again.InsidePoints, again.Summary.Inside)
	assert.Len(t, again.OutsidePoints, again.Summary.Outside)
}

func TestCreateRun_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed body", `{"target":`, http.StatusBadRequest},
		{"unknown target", `{"target":"hexagon","samples":10}`, http.StatusBadRequest},
		{"missing target", `{}`, http.StatusBadRequest},
		{"too many samples", `{"target":"circle","samples":50001}`, http.StatusBadRequest},
		{"negative samples", `{"target":"circle","samples":-1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/runs", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetRun(t *testing.T) {
	s, svc := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/runs/latest", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	created, err := svc.Run(context.Background(), runs.Request{Target: "star", Samples: 500}, nil)
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/v1/runs/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[RunResponse](t, rec)
	assert.Equal(t, created.ID, run.ID)
	assert.Equal(t, "star", run.Summary.Target)

	rec = do(t, s, http.MethodGet, "/v1/runs/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[RunResponse](t, rec).ID)
}

func TestListRuns(t *testing.T) {
	s, svc := newTestServer(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Run(context.Background(), runs.Request{Target: "circle", Samples: 100}, nil)
		require.NoError(t, err)
	}

	rec := do(t, s, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Runs  []RunResponse `json:"runs"`
		Stats runs.Stats    `json:"stats"`
	}](t, rec)
	require.Len(t, body.Runs, 3)
	assert.Empty(t, body.Runs[0].Convergence, "list omits convergence")
	assert.Equal(t, runs.Stats{Stored: 3, Capacity: 50, Completed: 3, HasRuns: true}, body.Stats)

	rec = do(t, s, http.MethodGet, "/v1/runs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[struct {
		Runs  []RunResponse `json:"runs"`
		Stats runs.Stats    `json:"stats"`
	}](t, rec)
	assert.Len(t, body.Runs, 2)

	rec = do(t, s, http.MethodGet, "/v1/runs?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCharts(t *testing.T) {
	s, svc := newTestServer(t)

	created, err := svc.Run(context.Background(), runs.Request{Target: "circle", Samples: 1000}, nil)
	require.NoError(t, err)

	for _, chart := range []string{"scatter.png", "convergence.png"} {
		t.Run(chart, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/v1/runs/"+created.ID+"/"+chart, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
			assert.NoError(t, err)
		})
	}

	rec := do(t, s, http.MethodGet, "/v1/runs/missing/scatter.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/v1/targets", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStream(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/runs/stream?target=circle&samples=1000&seed=3"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var (
		progress []StreamMessage
		result   *StreamMessage
	)
	for result == nil {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg StreamMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		switch msg.Type {
		case "progress":
			progress = append(progress, msg)
		case "result":
			result = &msg
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}

	// Every 10 draws from the first, plus the last.
	require.Len(t, progress, 101)
	assert.Equal(t, 1, progress[0].Current)
	assert.Equal(t, 1000, progress[len(progress)-1].Current)
	for _, p := range progress {
		assert.Equal(t, 1000, p.Total)
	}

	require.NotNil(t, result.Run)
	assert.Equal(t, uint64(3), result.Run.Seed)
	assert.Equal(t, 1000, result.Run.Summary.Samples)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStream_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/runs/stream"

	// Bad query is rejected before the upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(base+"?target=circle&samples=abc", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Run errors arrive as a frame.
	conn, _, err := websocket.DefaultDialer.Dial(base+"?target=hexagon", nil)
	require.NoError(t, err)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg StreamMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "unknown target")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{runs.ErrNotFound, http.StatusNotFound},
		{runs.ErrTooManySamples, http.StatusBadRequest},
		{runs.ErrUnknownTarget, http.StatusBadRequest},
		{runs.ErrNotReady, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteTimeout(t *testing.T) {
	svc := runs.NewService(catalog.Builtin())

	s := NewServer(":0", svc, slog.Default())
	assert.Equal(t, defaultWriteTimeout, s.server.WriteTimeout)

	s = NewServer(":0", svc, slog.Default(), WithWriteTimeout(10*time.Minute))
	assert.Equal(t, 10*time.Minute, s.server.WriteTimeout)

	s = NewServer(":0", svc, slog.Default(), WithWriteTimeout(0))
	assert.Zero(t, s.server.WriteTimeout)
}
