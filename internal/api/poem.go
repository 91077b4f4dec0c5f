package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/skinnypoem/internal/engine"
	"github.com/seantiz/skinnypoem/internal/model"
	"github.com/seantiz/skinnypoem/internal/poem"
)

// voteResponse is the JSON response for POST /v1/poem/vote.
type voteResponse struct {
	Message string           `json:"message"`
	State   *model.PoemState `json:"state"`
}

// archiveResponse is the JSON response for GET /v1/poem/archive.
type archiveResponse struct {
	Poems []*model.SkinnyPoem `json:"poems"`
	Total int                 `json:"total"`
}

// dailyPoemResponse adds the rendered lines and mood profile to a poem.
type dailyPoemResponse struct {
	*model.SkinnyPoem
	Lines   []string         `json:"lines"`
	Profile poem.MoodProfile `json:"profile"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.State(r.Context())
	if err != nil {
		s.writeEngineError(w, "get poem state", err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req model.VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	st, err := s.engine.Vote(r.Context(), userID(r), req)
	if err != nil {
		s.writeEngineError(w, "vote", err)
		return
	}
	s.writeJSON(w, http.StatusOK, voteResponse{Message: "Vote submitted successfully!", State: st})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Generate(r.Context(), engine.TriggerManual)
	if err != nil {
		s.writeEngineError(w, "generate poem", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Simulate(r.Context())
	if err != nil {
		s.writeEngineError(w, "simulate phase", err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetDailyPoem(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.DailyPoem(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.writeEngineError(w, "get daily poem", err)
		return
	}
	s.writeJSON(w, http.StatusOK, dailyPoemResponse{
		SkinnyPoem: p,
		Lines:      poem.Lines(*p),
		Profile:    poem.Profile(p.Mood),
	})
}

// handleGetDailyPoemText serves the poem as a plain-text download.
func (s *Server) handleGetDailyPoemText(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.DailyPoem(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.writeEngineError(w, "get daily poem text", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="skinny-poem-`+p.Date+`.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(poem.Text(*p))); err != nil {
		s.logger.Error("write poem text", "error", err)
	}
}

func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	poems, err := s.engine.Archive(r.Context())
	if err != nil {
		s.writeEngineError(w, "list archive", err)
		return
	}
	s.writeJSON(w, http.StatusOK, archiveResponse{Poems: poems, Total: len(poems)})
}

func (s *Server) handleGetUserVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.engine.UserVotes(r.Context(), userID(r))
	if err != nil {
		s.writeEngineError(w, "get user votes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, votes)
}
