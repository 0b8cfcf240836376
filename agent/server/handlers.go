package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/review"
)

const notifyTimeout = 5 * time.Second

type chatResponse struct {
	Message        string                  `json:"message"`
	SharedRecord   *contractx.SharedRecord `json:"shared_record"`
	Iterations     int                     `json:"iterations"`
	Degraded       bool                    `json:"degraded"`
	Stop           contractx.Completion    `json:"stop"`
	ConversationID string                  `json:"conversation_id"`
	Timestamp      time.Time               `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req contractx.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.chat.HandleMessage(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:        out.Message,
		SharedRecord:   out.SharedRecord,
		Iterations:     out.Iterations,
		Degraded:       out.Degraded,
		Stop:           out.Completion,
		ConversationID: out.ConversationID,
		Timestamp:      s.now().UTC(),
	})

	if out.SharedRecord != nil && s.notifier != nil {
		s.notifyShared(r.Context(), out.ConversationID, *out.SharedRecord)
	}
}

// notifyShared runs after the reply is written, so a failing hook never
// changes what the caller sees.
func (s *Server) notifyShared(ctx context.Context, conversationID string, rec contractx.SharedRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyShared(ctx, conversationID, rec); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Str("slug", rec.Slug).Msg("share notification failed")
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": DefaultServiceName,
		"version": s.cfg.Version,
		"endpoints": map[string]string{
			"chat":    "POST /chat",
			"health":  "GET /health",
			"metrics": "GET /metrics",
			"reviews": "POST /reviews, GET /reviews/{itemID}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   DefaultServiceName,
		"version":   s.cfg.Version,
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var in review.CreateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.reviews.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Review creada exitosamente",
		"review":  created,
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	out, err := s.reviews.ListByItem(r.Context(), r.PathValue("itemID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFlushCache(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Flush(r.Context()); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", contractx.ErrBackendUnavailable, err))
		return
	}
	s.logger.Info().Str("request_id", requestID(r.Context())).Msg("result cache flushed")
	writeJSON(w, http.StatusOK, map[string]any{"flushed": true})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, DefaultMaxBody))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", contractx.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", contractx.ErrValidation, err)
	}
	return nil
}

type errorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type errorBody struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrBackendUnavailable), errors.Is(err, contractx.ErrModelInvoke):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}

	evt := s.logger.Warn()
	if status >= 500 {
		evt = s.logger.Error()
	}
	evt.Err(err).Str("request_id", requestID(r.Context())).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	writeJSON(w, status, errorBody{
		Error: errorDetail{
			Kind:      contractx.Kind(err),
			Message:   strings.TrimSpace(msg),
			Retryable: contractx.Retryable(err),
		},
		RequestID: requestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
