package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
	"github.com/UTD-JLA/karaoke-bot/internal/errmsg"
)

func (s *Server) handleListQueues(w http.ResponseWriter, r *http.Request) {
	qs, err := s.svc.ListQueues(r.Context())
	if err != nil {
		s.writeServiceError(w, errmsg.OpQueueList, err)
		return
	}
	out := make([]queueJSON, 0, len(qs))
	for _, q := range qs {
		out = append(out, toQueueJSON(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActiveQueue(w http.ResponseWriter, r *http.Request) {
	q, err := s.svc.ActiveQueue(r.Context())
	if err != nil {
		s.writeServiceError(w, errmsg.OpQueueLoad, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueJSON(q))
}

func (s *Server) handleSetQueue(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	st, err := s.svc.SetQueue(r.Context(), actor, body.Name)
	if err != nil {
		s.writeServiceError(w, errmsg.OpQueueActivate, err)
		return
	}
	status := http.StatusOK
	if st.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"queue":   toQueueJSON(st.Queue),
		"created": st.Created,
	})
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all")
	includeCompleted := all == "1" || strings.EqualFold(all, "true")

	songs, err := s.svc.ListSongs(r.Context(), includeCompleted)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongList, err)
		return
	}
	writeJSON(w, http.StatusOK, toSongsJSON(songs))
}

func (s *Server) handleMySongs(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	songs, err := s.svc.MySongs(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongList, err)
		return
	}
	writeJSON(w, http.StatusOK, toSongsJSON(songs))
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, ok := decodeSongRequest(w, r)
	if !ok {
		return
	}

	song, err := s.svc.AddSong(r.Context(), actor, req)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongSubmit, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSongJSON(song))
}

func (s *Server) handleSwapSong(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	pos, err := positionParam(r)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongSwap, err)
		return
	}
	req, ok := decodeSongRequest(w, r)
	if !ok {
		return
	}

	song, err := s.svc.SwapSong(r.Context(), actor, pos, req)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongSwap, err)
		return
	}
	writeJSON(w, http.StatusOK, toSongJSON(song))
}

func (s *Server) handleRevokeSong(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	pos, err := positionParam(r)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongRevoke, err)
		return
	}

	song, err := s.svc.RevokeSong(r.Context(), actor, pos)
	if err != nil {
		s.writeServiceError(w, errmsg.OpSongRevoke, err)
		return
	}
	writeJSON(w, http.StatusOK, toSongJSON(song))
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		Position *int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Position == nil {
		writeError(w, http.StatusBadRequest, "position is required")
		return
	}

	q, err := s.svc.JumpTo(r.Context(), actor, *body.Position)
	if err != nil {
		s.writeServiceError(w, errmsg.OpPlaybackOverride, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueJSON(q))
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, errmsg.OpPlaybackPause, s.svc.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, errmsg.OpPlaybackResume, s.svc.Resume)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, op errmsg.Op, fn func(app.Actor) error) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := fn(actor); err != nil {
		s.writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toNowPlayingJSON(s.svc.NowPlaying()))
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toNowPlayingJSON(s.svc.NowPlaying()))
}

func decodeSongRequest(w http.ResponseWriter, r *http.Request) (app.SongRequest, bool) {
	var body songRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return app.SongRequest{}, false
	}
	return app.SongRequest{
		URL:           strings.TrimSpace(body.URL),
		LyricsURL:     body.LyricsURL,
		Collaborators: body.Collaborators,
		Notes:         body.Notes,
	}, true
}
