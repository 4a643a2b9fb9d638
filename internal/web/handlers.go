package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/listingclean/internal/core"
)

// maxBodyBytes bounds event and sweep request bodies.
const maxBodyBytes = 1 << 20

// SweepRequest is the body of POST /api/sweep. Bucket defaults to RAW_BUCKET.
type SweepRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string                `json:"status"`
	Runs        core.RunLimiterStatus `json:"runs"`
	CleanBucket string                `json:"clean_bucket,omitempty"`
	Warehouse   bool                  `json:"warehouse"`
}

// handleEvent processes the object named by a storage notification.
// Non-CSV objects return 200 with skipped set.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev core.Event
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(r.Body, &ev); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid event: %w", err))
		return
	}

	var result *core.ObjectResult
	err := s.runLimited(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.service.ProcessObject(ctx, ev)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// handleSweep runs a sweep as a single run. Objects that fail are listed in
// the response; the request itself only fails when the sweep cannot run.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, fmt.Errorf("invalid sweep request: %w", err))
			return
		}
	}
	if req.Bucket == "" {
		req.Bucket = s.cfg.Sweep.Bucket
	}
	if req.Prefix == "" {
		req.Prefix = s.cfg.Sweep.Prefix
	}
	if req.Bucket == "" {
		s.respondError(w, r, fmt.Errorf("invalid sweep request: bucket is required"))
		return
	}

	var result *core.SweepResult
	err := s.runLimited(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.service.Sweep(ctx, req.Bucket, req.Prefix)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:      "ok",
		Runs:        s.limiter.Status(),
		CleanBucket: s.cfg.Storage.CleanBucket,
		Warehouse:   s.cfg.WarehouseEnabled(),
	})
}

// runLimited runs fn in a limiter slot under RUN_TIMEOUT.
func (s *Server) runLimited(ctx context.Context, fn func(context.Context) error) error {
	if s.cfg.Runs.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Runs.Timeout)
		defer cancel()
	}
	return s.limiter.Do(ctx, fn)
}
