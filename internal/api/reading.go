package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/readgarden/readgarden/internal/app/library"
	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/domain"
)

// ─── Progress ───────────────────────────────────────────────────────────────

type progressResponse struct {
	TotalXP        int64     `json:"total_xp"`
	Level          int       `json:"level"`
	Coins          int64     `json:"coins"`
	CurrentLevelXP int64     `json:"current_level_xp"`
	NextLevelXP    int64     `json:"next_level_xp"`
	XPToNextLevel  int64     `json:"xp_to_next_level"`
	ProgressPct    float64   `json:"progress_pct"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, info, err := s.svc.Engine.Progress(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		TotalXP:        p.TotalXP,
		Level:          info.Level,
		Coins:          p.Coins,
		CurrentLevelXP: info.CurrentLevelXP,
		NextLevelXP:    info.NextLevelXP,
		XPToNextLevel:  info.XPToNextLevel,
		ProgressPct:    info.ProgressPct,
		UpdatedAt:      p.UpdatedAt,
	})
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.svc.Engine.Streak(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

// ─── Books ──────────────────────────────────────────────────────────────────

type addBookRequest struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Status   string   `json:"status"`
	GenreIDs []string `json:"genre_ids"`
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.svc.Library.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"books": books})
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req addBookRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.svc.Library.Add(r.Context(), library.NewBook{
		Title:    req.Title,
		Author:   req.Author,
		Status:   req.Status,
		GenreIDs: req.GenreIDs,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type completeBookRequest struct {
	CompletedAt *time.Time `json:"completed_at"`
}

func (s *Server) handleCompleteBook(w http.ResponseWriter, r *http.Request) {
	var req completeBookRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var at time.Time
	if req.CompletedAt != nil {
		at = *req.CompletedAt
	}

	res, err := s.svc.Engine.CompleteBook(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.refreshGoals(r)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.svc.Library.Genres(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"genres": genres})
}

// ─── Sessions ───────────────────────────────────────────────────────────────

type startSessionRequest struct {
	BookID    string     `json:"book_id"`
	StartedAt *time.Time `json:"started_at"`
}

type finishSessionRequest struct {
	EndedAt   *time.Time `json:"ended_at"`
	Minutes   int        `json:"minutes"`
	PagesRead *int       `json:"pages_read"`
}

type finishSessionResponse struct {
	Session domain.ReadingSession    `json:"session"`
	Result  domain.ProgressionResult `json:"result"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: since must be YYYY-MM-DD", domain.ErrInvalidInput))
			return
		}
		since = t
	}
	sessions, err := s.svc.Library.Sessions(r.Context(), since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.BookID == "" {
		s.fail(w, r, fmt.Errorf("%w: book_id is required", domain.ErrInvalidInput))
		return
	}
	var at time.Time
	if req.StartedAt != nil {
		at = *req.StartedAt
	}

	session, err := s.svc.Engine.StartSession(r.Context(), req.BookID, at)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	var req finishSessionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	f := progression.FinishSession{
		SessionID: chi.URLParam(r, "id"),
		Minutes:   req.Minutes,
		PagesRead: req.PagesRead,
	}
	if req.EndedAt != nil {
		f.EndedAt = *req.EndedAt
	}

	session, res, err := s.svc.Engine.FinishSession(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.refreshGoals(r)
	writeJSON(w, http.StatusOK, finishSessionResponse{Session: session, Result: res})
}

// refreshGoals latches goals completed by the activity just recorded.
// The response does not depend on it, so failures are only logged.
func (s *Server) refreshGoals(r *http.Request) {
	if s.svc.Goals == nil {
		return
	}
	if _, err := s.svc.Goals.Refresh(r.Context()); err != nil {
		s.log.Warn("goal refresh failed", zap.Error(err))
	}
}
