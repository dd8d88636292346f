package microservice

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/illmade-knight/go-querycache/pkg/syncstatus"
)

// SyncStatus is the part of syncstatus.Tracker the HTTP surface uses.
type SyncStatus interface {
	Indicator() syncstatus.Indicator
	SyncEnabled() bool
	Latest() (syncstatus.Entry, bool)
	SetSyncEnabled(ctx context.Context, enabled bool) error
}

type statusResponse struct {
	Indicator   syncstatus.Indicator `json:"indicator"`
	SyncEnabled bool                 `json:"syncEnabled"`
	Latest      *syncstatus.Entry    `json:"latest,omitempty"`
}

type syncRequest struct {
	Enabled *bool `json:"enabled"`
}

// StatusServer serves the sync indicator and the sync toggle.
type StatusServer struct {
	*BaseServer
	status SyncStatus
}

// NewStatusServer registers GET /status and POST /sync on base.
func NewStatusServer(base *BaseServer, status SyncStatus) *StatusServer {
	s := &StatusServer{BaseServer: base, status: status}
	base.Mux().HandleFunc("GET /status", s.handleStatus)
	base.Mux().HandleFunc("POST /sync", s.handleSync)
	return s
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeStatus(w, http.StatusOK)
}

func (s *StatusServer) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Enabled == nil {
		http.Error(w, `body must be {"enabled": true|false}`, http.StatusBadRequest)
		return
	}
	if err := s.status.SetSyncEnabled(r.Context(), *req.Enabled); err != nil {
		s.Logger.Error().Err(err).Msg("Failed to persist sync toggle.")
		http.Error(w, "failed to persist sync toggle", http.StatusInternalServerError)
		return
	}
	s.writeStatus(w, http.StatusOK)
}

func (s *StatusServer) writeStatus(w http.ResponseWriter, code int) {
	resp := statusResponse{
		Indicator:   s.status.Indicator(),
		SyncEnabled: s.status.SyncEnabled(),
	}
	if latest, ok := s.status.Latest(); ok {
		resp.Latest = &latest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.Logger.Warn().Err(err).Msg("Failed to write status response.")
	}
}
