package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/bridges/dtu"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/history"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/ingest"
)

const (
	// healthCheckTimeout bounds each component check.
	healthCheckTimeout = 2 * time.Second

	// defaultFailureLimit is used when ?limit is absent.
	defaultFailureLimit = 50
)

// ComponentHealth is one entry of the health response.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status       string                     `json:"status"`
	Version      string                     `json:"version,omitempty"`
	Bridge       dtu.HealthStatus           `json:"bridge"`
	BridgeReason string                     `json:"bridgeReason,omitempty"`
	Components   map[string]ComponentHealth `json:"components,omitempty"`
}

// handleHealth runs the component checks and reports the bridge state.
// Any failing check or a non-healthy bridge answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bridgeStatus, reason := s.bridge.HealthStatus()
	resp := HealthResponse{
		Status:       "ok",
		Version:      s.version,
		Bridge:       bridgeStatus,
		BridgeReason: reason,
	}
	if bridgeStatus != dtu.HealthHealthy {
		resp.Status = "degraded"
	}

	if len(s.checks) > 0 {
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Components = make(map[string]ComponentHealth, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Components[name] = ComponentHealth{Status: "error", Error: err.Error()}
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = ComponentHealth{Status: "ok"}
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleListDevices returns the device inventory, optionally filtered by
// ?kind=logger|inverter|panel|meter.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.devices == nil {
		writeUnavailable(w, ErrCodeUnavailable, "device inventory not configured")
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && !history.ValidKind(kind) {
		writeBadRequest(w, "kind must be one of logger, inverter, panel, meter")
		return
	}

	devices, err := s.devices.List(r.Context(), kind)
	if err != nil {
		s.logger.Error("listing devices failed", "error", err, "kind", kind)
		writeInternalError(w, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []history.Device{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleListFailures returns the most recent publish failures, newest first.
func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	if s.failures == nil {
		writeUnavailable(w, ErrCodeUnavailable, "failure history not configured")
		return
	}

	limit := defaultFailureLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}

	failures, err := s.failures.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing failures failed", "error", err)
		writeInternalError(w, "failed to list failures")
		return
	}
	if failures == nil {
		failures = []history.Failure{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"failures": failures,
		"count":    len(failures),
	})
}

// handleLatestSnapshot returns the last normalized batch.
func (s *Server) handleLatestSnapshot(w http.ResponseWriter, _ *http.Request) {
	batch, ok := s.bridge.LatestBatch()
	if !ok {
		writeNotFound(w, "no snapshot processed yet")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// handleSubmitFrame queues one frame envelope for dispatch.
func (s *Server) handleSubmitFrame(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "frame exceeds maximum size")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}

	frame, err := ingest.Decode(body, ingest.SourceHTTP)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFrame, err.Error())
		return
	}
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}

	if err := s.bridge.Submit(r.Context(), frame); err != nil {
		if errors.Is(err, dtu.ErrBridgeStopped) {
			writeUnavailable(w, ErrCodeBridgeNotActive, "bridge is stopped")
			return
		}
		s.logger.Error("submitting frame failed", "error", err, "frame_id", frame.ID)
		writeInternalError(w, "failed to queue frame")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":  frame.ID,
		"tag": frame.Tag,
	})
}
