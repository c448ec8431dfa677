package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/beestat-bridge/internal/audit"
	"github.com/nerrad567/beestat-bridge/internal/beestat"
	"github.com/nerrad567/beestat-bridge/internal/coordinator"
	"github.com/nerrad567/beestat-bridge/internal/entry"
	"github.com/nerrad567/beestat-bridge/internal/thermostat"
)

// validateTimeout bounds the Beestat call made when a new key is submitted.
const validateTimeout = 30 * time.Second

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status      string             `json:"status"`
	Version     string             `json:"version"`
	Coordinator coordinator.Status `json:"coordinator"`
}

// thermostatResponse is the body of GET /thermostats/{id}.
type thermostatResponse struct {
	thermostat.Thermostat
	RemoteSensors []thermostat.RemoteSensor `json:"remote_sensors"`
	Available     bool                      `json:"available"`
	LastSuccess   *time.Time                `json:"last_success"`
}

// optionsRequest is the body of PATCH /entry/options.
type optionsRequest struct {
	UpdateIntervalMinutes *int `json:"update_interval_minutes"`
}

// apiKeyRequest is the body of PUT /entry/api_key.
type apiKeyRequest struct {
	APIKey string `json:"api_key"`
}

// handleHealth reports coordinator state. The status is "ok" while data is
// fresh, "halted" when the key was rejected, and "degraded" otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.coordinator.Status()
	status := "degraded"
	switch {
	case st.State == coordinator.StateHalted:
		status = "halted"
	case st.Available:
		status = "ok"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		Version:     s.version,
		Coordinator: st,
	})
}

// handleSnapshot returns every thermostat with its remote sensors.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.coordinator.Snapshot()
	if snap == nil {
		snap = thermostat.Unavailable()
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetThermostat returns one thermostat by ID.
func (s *Server) handleGetThermostat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.coordinator.Snapshot()

	t, ok := snap.Thermostat(id)
	if !ok {
		writeNotFound(w, "thermostat not found")
		return
	}

	sensors := snap.RemoteSensors(id)
	if sensors == nil {
		sensors = []thermostat.RemoteSensor{}
	}
	resp := thermostatResponse{
		Thermostat:    t,
		RemoteSensors: sensors,
		Available:     snap.Available(),
	}
	if ts := snap.LastSuccess(); !ts.IsZero() {
		resp.LastSuccess = &ts
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetEntry returns the config entry with the API key redacted.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.Get(r.Context())
	if err != nil {
		s.entryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

// handleUpdateOptions persists a new poll interval, then reschedules the
// coordinator.
func (s *Server) handleUpdateOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UpdateIntervalMinutes == nil {
		writeValidationError(w, "update_interval_minutes is required")
		return
	}
	if err := entry.ValidateInterval(*req.UpdateIntervalMinutes); err != nil {
		writeValidationError(w, "update_interval_minutes must be at least 1")
		return
	}

	current, err := s.entries.Get(r.Context())
	if err != nil {
		s.entryError(w, err)
		return
	}
	updated, err := s.entries.UpdateOptions(r.Context(), current.ID, *req.UpdateIntervalMinutes)
	if err != nil {
		s.entryError(w, err)
		return
	}

	if err := s.coordinator.SetInterval(updated.UpdateInterval()); err != nil {
		s.logger.Error("rescheduling coordinator failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "options saved but coordinator is not running")
		return
	}

	s.logger.Info("update interval changed",
		"update_interval_minutes", updated.UpdateIntervalMinutes,
		"subject", subject(r),
	)
	s.record(r, audit.ActionOptionsUpdated, updated.ID, map[string]any{
		"previous_interval_minutes": current.UpdateIntervalMinutes,
		"update_interval_minutes":   updated.UpdateIntervalMinutes,
	})
	writeJSON(w, http.StatusOK, updated.View())
}

// handleUpdateAPIKey validates a new key against Beestat, persists it, and
// reconfigures the coordinator with a client using it. A halted
// coordinator resumes polling.
func (s *Server) handleUpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	key, err := entry.NormalizeAPIKey(req.APIKey)
	if err != nil {
		writeValidationError(w, "api_key is required")
		return
	}

	client, err := s.newClient(key)
	if err != nil {
		writeValidationError(w, "api_key is not usable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), validateTimeout)
	defer cancel()
	if err := client.ValidateKey(ctx); err != nil {
		switch {
		case beestat.IsAuth(err):
			writeError(w, http.StatusBadRequest, ErrCodeInvalidAuth, "api key was rejected by Beestat")
		case errors.Is(err, beestat.ErrAPI):
			s.logger.Warn("api key validation refused", "error", err)
			writeError(w, http.StatusBadRequest, ErrCodeInvalidAuth, "Beestat refused the validation request for this key")
		default:
			s.logger.Warn("api key validation failed", "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeCannotConnect, "could not reach Beestat to validate the key")
		}
		return
	}

	current, err := s.entries.Get(r.Context())
	if err != nil {
		s.entryError(w, err)
		return
	}
	updated, err := s.entries.UpdateAPIKey(r.Context(), current.ID, key)
	if err != nil {
		s.entryError(w, err)
		return
	}

	if err := s.coordinator.Reconfigure(client); err != nil {
		s.logger.Error("reconfiguring coordinator failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "key saved but coordinator is not running")
		return
	}

	s.logger.Info("api key replaced", "subject", subject(r))
	s.record(r, audit.ActionAPIKeyReplaced, updated.ID, map[string]any{
		"api_key_hint": updated.View().APIKeyHint,
	})
	writeJSON(w, http.StatusOK, updated.View())
}

// handleRefresh requests an immediate poll.
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.coordinator.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

// handleListAudit returns recorded config entry changes, newest first.
// Query parameters: action, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, audit.ListResult{Records: []audit.Record{}, Limit: audit.DefaultLimit})
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Action: q.Get("action")}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeValidationError(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit records failed", "error", err)
		writeInternalError(w, "listing audit records failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// record appends an audit record. Failures are logged and do not fail the
// request, which has already been applied.
func (s *Server) record(r *http.Request, action, entryID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	rec := &audit.Record{
		Action:  action,
		EntryID: entryID,
		Subject: subject(r),
		Details: details,
	}
	if err := s.audit.Create(r.Context(), rec); err != nil {
		s.logger.Error("recording audit entry failed", "action", action, "error", err)
	}
}

// subject returns the bearer token subject set by authMiddleware.
func subject(r *http.Request) string {
	sub, _ := r.Context().Value(ctxKeySubject).(string)
	return sub
}

// entryError maps repository failures onto responses.
func (s *Server) entryError(w http.ResponseWriter, err error) {
	if errors.Is(err, entry.ErrEntryNotFound) {
		writeNotFound(w, "config entry not found")
		return
	}
	s.logger.Error("config entry operation failed", "error", err)
	writeInternalError(w, "config entry operation failed")
}
