// Package garden manages owned plants: buying them with coins, watering,
// choosing the active plant and refreshing their health.
package garden

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/metrics"
)

// Service manages the plant collection.
type Service struct {
	store domain.GardenStore
	cache *progression.ProgressCache
	clock domain.Clock
	log   *zap.Logger
}

// NewService creates a garden service. cache, clock and log may be nil.
func NewService(store domain.GardenStore, cache *progression.ProgressCache, clock domain.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, clock: clock, log: log.Named("garden")}
}

// Species returns the plant catalog.
func (s *Service) Species(ctx context.Context) ([]domain.PlantSpecies, error) {
	return s.store.ListSpecies(ctx)
}

// List returns every owned plant with freshly evaluated health.
// Status changes are written back; nothing else in the row is touched.
func (s *Service) List(ctx context.Context) ([]domain.PlantView, error) {
	plants, err := s.store.ListOwnedPlants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}

	now := s.clock.Now()
	counts := map[domain.PlantStatus]int{}
	views := make([]domain.PlantView, 0, len(plants))
	for _, p := range plants {
		v := progression.ViewPlant(p, now)
		if v.Plant.Status != p.Plant.Status {
			if err := s.store.UpdatePlantStatus(ctx, v.Plant); err != nil {
				return nil, fmt.Errorf("update plant %s status: %w", p.Plant.ID, err)
			}
		}
		counts[v.Plant.Status]++
		views = append(views, v)
	}

	for _, st := range []domain.PlantStatus{domain.PlantHealthy, domain.PlantThirsty, domain.PlantWilting, domain.PlantDead} {
		metrics.PlantsByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
	return views, nil
}

// Get returns one plant with freshly evaluated health.
func (s *Service) Get(ctx context.Context, id string) (domain.PlantView, error) {
	p, err := s.store.GetOwnedPlant(ctx, id)
	if err != nil {
		return domain.PlantView{}, err
	}
	return progression.ViewPlant(p, s.clock.Now()), nil
}

// Purchase buys a plant of the given species with coins. The first plant
// bought becomes the active plant.
func (s *Service) Purchase(ctx context.Context, speciesID, name string) (domain.Plant, error) {
	species, err := s.store.GetSpecies(ctx, speciesID)
	if err != nil {
		return domain.Plant{}, err
	}

	owned, err := s.store.ListOwnedPlants(ctx)
	if err != nil {
		return domain.Plant{}, fmt.Errorf("list plants: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = species.Name
	}
	now := s.clock.Now()
	p := domain.Plant{
		ID:           uuid.NewString(),
		SpeciesID:    species.ID,
		Name:         name,
		CurrentLevel: 1,
		LastWatered:  now,
		PlantedAt:    now,
		Status:       domain.PlantHealthy,
		IsActive:     len(owned) == 0,
	}

	progress, err := s.store.PurchasePlant(ctx, p, species.Cost)
	s.cache.Invalidate()
	if err != nil {
		return domain.Plant{}, fmt.Errorf("purchase %s: %w", species.ID, err)
	}

	s.log.Info("plant purchased",
		zap.String("plant_id", p.ID),
		zap.String("species", species.ID),
		zap.Int64("cost", species.Cost),
		zap.Int64("coins_left", progress.Coins))
	return p, nil
}

// Water resets the watering clock. Dead plants cannot be watered.
func (s *Service) Water(ctx context.Context, id string) (domain.PlantView, error) {
	p, err := s.store.GetOwnedPlant(ctx, id)
	if err != nil {
		return domain.PlantView{}, err
	}

	now := s.clock.Now()
	if progression.PlantStatus(p.Plant.LastWatered, p.Species.WaterIntervalDays, now) == domain.PlantDead {
		metrics.PlantWaterings.WithLabelValues("dead").Inc()
		if p.Plant.Status != domain.PlantDead {
			p.Plant.Status = domain.PlantDead
			if err := s.store.UpdatePlantStatus(ctx, p.Plant); err != nil {
				s.log.Warn("persist dead status", zap.String("plant_id", id), zap.Error(err))
			}
		}
		return domain.PlantView{}, fmt.Errorf("water plant %s: %w", id, domain.ErrPlantDead)
	}

	p.Plant.LastWatered = now
	p.Plant.Status = domain.PlantHealthy
	if err := s.store.WaterPlant(ctx, id, now); err != nil {
		return domain.PlantView{}, fmt.Errorf("water plant %s: %w", id, err)
	}
	metrics.PlantWaterings.WithLabelValues("ok").Inc()
	return progression.ViewPlant(p, now), nil
}

// SetActive makes id the only active plant.
func (s *Service) SetActive(ctx context.Context, id string) error {
	p, err := s.store.GetOwnedPlant(ctx, id)
	if err != nil {
		return err
	}
	if progression.PlantStatus(p.Plant.LastWatered, p.Species.WaterIntervalDays, s.clock.Now()) == domain.PlantDead {
		return fmt.Errorf("activate plant %s: %w", id, domain.ErrPlantDead)
	}
	return s.store.SetActivePlant(ctx, id)
}

// Delete removes a plant.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeletePlant(ctx, id)
}
