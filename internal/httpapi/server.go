// Package httpapi exposes the karaoke commands over HTTP. The caller's user
// id comes from the X-User-ID header, set by the chat gateway in front of it.
package httpapi

import (
	"net/http"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
)

// UserHeader carries the snowflake id of the requesting user.
const UserHeader = "X-User-ID"

type Server struct {
	svc        *app.Service
	isOperator func(snowflake.ID) bool
	logger     zerolog.Logger
}

// NewServer creates the API. isOperator decides which users get operator
// rights; nil grants none.
func NewServer(svc *app.Service, isOperator func(snowflake.ID) bool, logger zerolog.Logger) *Server {
	if isOperator == nil {
		isOperator = func(snowflake.ID) bool { return false }
	}
	return &Server{
		svc:        svc,
		isOperator: isOperator,
		logger:     logger,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Get("/queues", s.handleListQueues)
		r.Get("/queues/active", s.handleActiveQueue)
		r.Put("/queues/active", s.handleSetQueue)

		r.Get("/songs", s.handleListSongs)
		r.Get("/songs/mine", s.handleMySongs)
		r.Post("/songs", s.handleAddSong)
		r.Put("/songs/{position}", s.handleSwapSong)
		r.Delete("/songs/{position}", s.handleRevokeSong)

		// Playback
		r.Post("/position", s.handleJump)
		r.Post("/playback/pause", s.handlePause)
		r.Post("/playback/resume", s.handleResume)
		r.Get("/now-playing", s.handleNowPlaying)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "karaoke",
	})
}

// requestLogger logs every request with zerolog once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
