package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-chi/chi/v5"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
	"github.com/UTD-JLA/karaoke-bot/internal/errmsg"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

var errMissingUser = errors.New("missing " + UserHeader + " header")

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a command error to its status code and the
// sentence shown to the requester.
func (s *Server) writeServiceError(w http.ResponseWriter, op errmsg.Op, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("op", string(op)).Msg("command failed")
	}
	writeError(w, status, errmsg.Format(op, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, queue.ErrDuplicateSubmission),
		errors.Is(err, queue.ErrAlreadyPerformed),
		errors.Is(err, queue.ErrNoActiveQueue):
		return http.StatusConflict
	case errors.Is(err, queue.ErrOutOfRange),
		errors.Is(err, queue.ErrInvalidURL),
		errors.Is(err, app.ErrEmptyQueueName):
		return http.StatusUnprocessableEntity
	case errors.Is(err, queue.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, queue.ErrMetadataUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// actor identifies the caller from the user header.
func (s *Server) actor(r *http.Request) (app.Actor, error) {
	raw := strings.TrimSpace(r.Header.Get(UserHeader))
	if raw == "" {
		return app.Actor{}, errMissingUser
	}
	id, err := snowflake.Parse(raw)
	if err != nil {
		return app.Actor{}, fmt.Errorf("invalid %s: %w", UserHeader, err)
	}
	return app.Actor{ID: id, Operator: s.isOperator(id)}, nil
}

func positionParam(r *http.Request) (int, error) {
	pos, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || pos < 0 {
		return 0, fmt.Errorf("%w: %q", queue.ErrOutOfRange, chi.URLParam(r, "position"))
	}
	return pos, nil
}
