package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readgarden/readgarden/internal/domain"
)

type purchasePlantRequest struct {
	SpeciesID string `json:"species_id"`
	Name      string `json:"name"`
}

func (s *Server) handleListSpecies(w http.ResponseWriter, r *http.Request) {
	species, err := s.svc.Garden.Species(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"species": species})
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := s.svc.Garden.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plants": plants})
}

func (s *Server) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Garden.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePurchasePlant(w http.ResponseWriter, r *http.Request) {
	var req purchasePlantRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.SpeciesID == "" {
		s.fail(w, r, fmt.Errorf("%w: species_id is required", domain.ErrInvalidInput))
		return
	}

	p, err := s.svc.Garden.Purchase(r.Context(), req.SpeciesID, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.svc.Garden.Get(r.Context(), p.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleWaterPlant(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Garden.Water(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleActivatePlant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Garden.SetActive(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.svc.Garden.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Garden.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
