package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonwraymond/edgetag/auth"
	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
)

const maxInvalidateBody = 64 << 10

// InvalidateRequest is the body of POST /admin/invalidate.
type InvalidateRequest struct {
	Tags []string `json:"tags"`
}

// InvalidateResponse acknowledges an accepted invalidation. Purging
// happens asynchronously; the response says nothing about its outcome.
type InvalidateResponse struct {
	ID        string   `json:"id"`
	Tags      []string `json:"tags"`
	Delivery  string   `json:"delivery"`
	Receivers int64    `json:"receivers,omitempty"`
}

func defaultID() string { return uuid.NewString() }

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInvalidateBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Errorf("%w: %w", ErrBadRequest, err)))
		return
	}

	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Errorf("%w: tags must not be empty", ErrBadRequest)))
		return
	}

	ev := hooks.InvalidationEvent{
		ID:     s.newID(),
		Tags:   tags,
		Source: "admin:" + auth.PrincipalFromContext(r.Context()),
	}
	logger := s.logger.With(observe.F("event_id", ev.ID), observe.F("source", ev.Source))
	resp := InvalidateResponse{ID: ev.ID, Tags: tags}

	if s.publisher != nil {
		n, err := s.publisher.Publish(r.Context(), ev)
		if err != nil {
			logger.Error(r.Context(), "publishing invalidation failed", observe.F("error", err))
			writeJSON(w, http.StatusServiceUnavailable, errorBody(err))
			return
		}
		resp.Delivery, resp.Receivers = "bus", n
	} else {
		s.hooks.FireAfterCacheInvalidated(r.Context(), ev)
		resp.Delivery = "local"
	}

	logger.Info(r.Context(), "invalidation accepted",
		observe.F("tags", strings.Join(tags, ",")),
		observe.F("delivery", resp.Delivery),
	)
	writeJSON(w, http.StatusAccepted, resp)
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
