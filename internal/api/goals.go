package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/readgarden/readgarden/internal/app/goals"
	"github.com/readgarden/readgarden/internal/domain"
)

// dateLayout is the wire format of calendar dates.
const dateLayout = "2006-01-02"

type createGoalRequest struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Target    int    `json:"target"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type goalResponse struct {
	domain.ReadingGoal
	ProgressPct float64 `json:"progress_pct"`
}

func toGoalResponses(gs []domain.ReadingGoal) []goalResponse {
	out := make([]goalResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, goalResponse{ReadingGoal: g, ProgressPct: g.ProgressPct()})
	}
	return out
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return t, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalidGoal, field)
	}
	return t, nil
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	pass, err := s.svc.Goals.Refresh(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"goals": toGoalResponses(pass.Goals)})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Goals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{ReadingGoal: g, ProgressPct: g.ProgressPct()})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	typ, err := domain.ParseGoalType(req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	g, err := s.svc.Goals.Create(r.Context(), goals.NewGoal{
		Title:     req.Title,
		Type:      typ,
		Target:    req.Target,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Past activity may already satisfy the new goal.
	if fresh, err := s.svc.Goals.Get(r.Context(), g.ID); err == nil {
		g = fresh
	}
	writeJSON(w, http.StatusCreated, goalResponse{ReadingGoal: g, ProgressPct: g.ProgressPct()})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExcludeBook(w http.ResponseWriter, r *http.Request) {
	s.goalLink(w, r, s.svc.Goals.ExcludeBook, chi.URLParam(r, "bookID"))
}

func (s *Server) handleIncludeBook(w http.ResponseWriter, r *http.Request) {
	s.goalLink(w, r, s.svc.Goals.IncludeBook, chi.URLParam(r, "bookID"))
}

func (s *Server) handleAddGenreFilter(w http.ResponseWriter, r *http.Request) {
	s.goalLink(w, r, s.svc.Goals.AddGenreFilter, chi.URLParam(r, "genreID"))
}

func (s *Server) handleRemoveGenreFilter(w http.ResponseWriter, r *http.Request) {
	s.goalLink(w, r, s.svc.Goals.RemoveGenreFilter, chi.URLParam(r, "genreID"))
}

// goalLink applies an exclusion or genre filter change and returns the goal
// with recomputed progress.
func (s *Server) goalLink(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, goalID, otherID string) error, otherID string) {
	goalID := chi.URLParam(r, "id")
	if err := apply(r.Context(), goalID, otherID); err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.svc.Goals.Get(r.Context(), goalID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{ReadingGoal: g, ProgressPct: g.ProgressPct()})
}
