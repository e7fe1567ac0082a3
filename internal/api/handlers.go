package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/branched-services/go-montecarlo/internal/catalog"
	"github.com/branched-services/go-montecarlo/internal/render"
	"github.com/branched-services/go-montecarlo/internal/runs"
	"github.com/branched-services/go-montecarlo/pkg/estimator"
	"github.com/branched-services/go-montecarlo/pkg/geom"
)

// maxBodyBytes bounds POST /v1/runs request bodies.
const maxBodyBytes = 1 << 16

// TargetResponse describes one runnable target.
type TargetResponse struct {
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	Region      geom.Rect `json:"region"`
	Scale       float64   `json:"scale"`
	Reference   float64   `json:"reference"`
}

// RunResponse is the API view of a run record.
type RunResponse struct {
	ID          string               `json:"id"`
	CreatedAt   string               `json:"created_at"`
	DurationMS  int64                `json:"duration_ms"`
	Seed        uint64               `json:"seed"`
	Seeded      bool                 `json:"seeded"`
	Summary     estimator.Summary    `json:"summary"`
	Convergence []estimator.Snapshot `json:"convergence,omitempty"`

	InsidePoints  []geom.Point `json:"inside_points,omitempty"`
	OutsidePoints []geom.Point `json:"outside_points,omitempty"`
}

type view int

const (
	viewSummary view = iota
	viewDetail
	viewPoints
)

func newRunResponse(rec *runs.Record, v view) RunResponse {
	resp := RunResponse{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339Nano),
		DurationMS: rec.Duration.Milliseconds(),
		Seed:       rec.Result.Seed,
		Seeded:     rec.Result.Seeded,
		Summary:    rec.Summary,
	}
	if v >= viewDetail {
		resp.Convergence = rec.Result.Convergence
	}
	if v >= viewPoints {
		resp.InsidePoints = rec.Result.InsidePoints
		resp.OutsidePoints = rec.Result.OutsidePoints
	}
	return resp
}

func detailView(r *http.Request) view {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("points")); ok {
		return viewPoints
	}
	return viewDetail
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	defs := s.service.Targets()
	resp := make([]TargetResponse, 0, len(defs))
	for _, def := range defs {
		t, err := def.Target()
		if err != nil {
			// Catalog entries are validated on load.
			s.logger.Error("catalog entry invalid", "target", def.Name, "error", err)
			continue
		}
		resp = append(resp, newTargetResponse(def, t))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"targets": resp})
}

func newTargetResponse(def catalog.Definition, t estimator.Target) TargetResponse {
	return TargetResponse{
		Name:        def.Name,
		Kind:        string(def.Kind),
		Description: def.Description,
		Region:      t.Region,
		Scale:       t.Scale,
		Reference:   t.Reference,
	}
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runs.Request
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.service.Run(r.Context(), req, nil)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, newRunResponse(rec, detailView(r)))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs := s.service.Recent(limit)
	resp := make([]RunResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, newRunResponse(rec, viewSummary))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":  resp,
		"stats": s.service.Stats(),
	})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Latest(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newRunResponse(rec, detailView(r)))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newRunResponse(rec, detailView(r)))
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	img, err := render.Scatter(rec.Result, rec.Target)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writePNG(w, img)
}

func (s *Server) handleConvergence(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	img, err := render.Convergence(rec.Result, rec.Summary)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writePNG(w, img)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, estimator.ErrInvalidArgument),
		errors.Is(err, runs.ErrUnknownTarget),
		errors.Is(err, runs.ErrTooManySamples):
		return http.StatusBadRequest
	case errors.Is(err, runs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, runs.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("writing response failed", "error", err)
	}
}

func (s *Server) writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
