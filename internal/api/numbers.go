package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/hass"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// maxIDLen bounds the {id} path parameter.
	maxIDLen = 200
)

// setValueRequest is the request body for PUT /numbers/{id}/value.
type setValueRequest struct {
	Value *float64 `json:"value"`
}

// setValueResponse reports an accepted write. The displayed value changes
// on the next controller refresh, not in this response.
type setValueResponse struct {
	UniqueID string  `json:"unique_id"`
	Value    float64 `json:"value"`
	Status   string  `json:"status"`
}

// handleListNumbers returns the state of every exported number entity.
func (s *Server) handleListNumbers(w http.ResponseWriter, _ *http.Request) {
	entities := s.numbers.Entities()
	states := make([]number.State, 0, len(entities))
	for _, e := range entities {
		states = append(states, e.State())
	}
	writeJSON(w, http.StatusOK, map[string]any{"numbers": states, "count": len(states)})
}

// handleGetNumber returns one entity's state.
func (s *Server) handleGetNumber(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookupNumber(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.State())
}

// handleSetNumberValue forwards a new value to the camera.
func (s *Server) handleSetNumberValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLen {
		writeBadRequest(w, "invalid number ID")
		return
	}

	var req setValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "value is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	err := s.numbers.SetValue(ctx, id, *req.Value)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, setValueResponse{UniqueID: id, Value: *req.Value, Status: "accepted"})
	case errors.Is(err, hass.ErrEntityNotFound):
		writeNotFound(w, "number not found")
	case errors.Is(err, number.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "camera did not answer in time")
	default:
		s.logger.Warn("set value failed", "unique_id", id, "value", *req.Value, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	}
}

// handleNumberHistory returns recorded values, newest first.
func (s *Server) handleNumberHistory(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookupNumber(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "value history is not available")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.History(r.Context(), e.UniqueID(), limit)
	if err != nil {
		s.logger.Error("loading value history failed", "unique_id", e.UniqueID(), "error", err)
		writeInternalError(w, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

// lookupNumber resolves the {id} parameter, writing the error response itself.
func (s *Server) lookupNumber(w http.ResponseWriter, r *http.Request) (*number.Entity, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLen {
		writeBadRequest(w, "invalid number ID")
		return nil, false
	}

	e, err := s.numbers.Entity(id)
	if err != nil {
		if errors.Is(err, hass.ErrEntityNotFound) {
			writeNotFound(w, "number not found")
		} else {
			writeInternalError(w, "failed to look up number")
		}
		return nil, false
	}
	return e, true
}

// parseHistoryLimit parses the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}
	return limit, nil
}
