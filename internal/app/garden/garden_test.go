package garden_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/readgarden/readgarden/internal/app/garden"
	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/sqlite"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var planted = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func TestPurchase_FirstPlantBecomesActive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clock := &fakeClock{now: planted}
	svc := garden.NewService(db, nil, clock, nil)

	first, err := svc.Purchase(ctx, "fern", "")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if !first.IsActive || first.Name != "Fern" {
		t.Errorf("first plant = %+v, want active and named after its species", first)
	}

	second, err := svc.Purchase(ctx, "fern", "Frond")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if second.IsActive {
		t.Error("second plant should not steal the active slot")
	}
}

func TestPurchase_SpendsCoins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.SetProgress(ctx, domain.AccountProgress{TotalXP: 500, Level: 3, Coins: 250}); err != nil {
		t.Fatal(err)
	}

	cache := progression.NewProgressCache(time.Minute)
	cache.Put(domain.AccountProgress{TotalXP: 500, Level: 3, Coins: 250})
	svc := garden.NewService(db, cache, &fakeClock{now: planted}, nil)

	if _, err := svc.Purchase(ctx, "cactus", "Spike"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, ok := cache.Get(); ok {
		t.Error("purchase should invalidate the progress cache")
	}
	p, _ := db.GetProgress(ctx)
	if p.Coins != 100 {
		t.Errorf("expected 100 coins left, got %d", p.Coins)
	}

	if _, err := svc.Purchase(ctx, "bonsai", ""); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Errorf("expected ErrInsufficientCoins, got %v", err)
	}
	if _, err := svc.Purchase(ctx, "orchid", ""); !errors.Is(err, domain.ErrSpeciesNotFound) {
		t.Errorf("expected ErrSpeciesNotFound, got %v", err)
	}
}

func TestWater_ResetsClock(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clock := &fakeClock{now: planted}
	svc := garden.NewService(db, nil, clock, nil)

	p, err := svc.Purchase(ctx, "fern", "")
	if err != nil {
		t.Fatal(err)
	}

	clock.now = planted.Add(4 * 24 * time.Hour) // fern interval is 3 days
	v, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Plant.Status != domain.PlantThirsty {
		t.Errorf("expected thirsty, got %s", v.Plant.Status)
	}

	v, err = svc.Water(ctx, p.ID)
	if err != nil {
		t.Fatalf("water: %v", err)
	}
	if v.Plant.Status != domain.PlantHealthy || !v.Plant.LastWatered.Equal(clock.now) {
		t.Errorf("after watering: %+v", v.Plant)
	}
	if v.DaysUntilWaterNeeded != 3 {
		t.Errorf("expected 3 days until water needed, got %v", v.DaysUntilWaterNeeded)
	}
}

func TestWater_DeadPlant(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clock := &fakeClock{now: planted}
	svc := garden.NewService(db, nil, clock, nil)

	p, err := svc.Purchase(ctx, "fern", "")
	if err != nil {
		t.Fatal(err)
	}

	clock.now = planted.Add(7 * 24 * time.Hour)
	if _, err := svc.Water(ctx, p.ID); !errors.Is(err, domain.ErrPlantDead) {
		t.Fatalf("expected ErrPlantDead, got %v", err)
	}

	stored, _ := db.GetOwnedPlant(ctx, p.ID)
	if stored.Plant.Status != domain.PlantDead {
		t.Errorf("dead status not persisted: %s", stored.Plant.Status)
	}
	if !stored.Plant.LastWatered.Equal(planted) {
		t.Error("watering a dead plant must not reset its clock")
	}

	if err := svc.SetActive(ctx, p.ID); !errors.Is(err, domain.ErrPlantDead) {
		t.Errorf("expected ErrPlantDead when activating, got %v", err)
	}
}

func TestList_PersistsStatusChanges(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clock := &fakeClock{now: planted}
	svc := garden.NewService(db, nil, clock, nil)

	if _, err := svc.Purchase(ctx, "fern", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Purchase(ctx, "fern", "Late"); err != nil {
		t.Fatal(err)
	}

	clock.now = planted.Add(5 * 24 * time.Hour)
	views, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 plants, got %d", len(views))
	}
	for _, v := range views {
		if v.Plant.Status != domain.PlantWilting {
			t.Errorf("plant %s: expected wilting, got %s", v.Plant.ID, v.Plant.Status)
		}
	}

	stored, _ := db.ListOwnedPlants(ctx)
	for _, p := range stored {
		if p.Plant.Status != domain.PlantWilting {
			t.Errorf("status not written back for %s", p.Plant.ID)
		}
	}
}

func TestSetActive_Switches(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := garden.NewService(db, nil, &fakeClock{now: planted}, nil)

	a, _ := svc.Purchase(ctx, "fern", "A")
	b, _ := svc.Purchase(ctx, "fern", "B")

	if err := svc.SetActive(ctx, b.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}
	va, _ := svc.Get(ctx, a.ID)
	vb, _ := svc.Get(ctx, b.ID)
	if va.Plant.IsActive || !vb.Plant.IsActive {
		t.Errorf("active flags: a=%v b=%v", va.Plant.IsActive, vb.Plant.IsActive)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, domain.ErrPlantNotFound) {
		t.Errorf("expected ErrPlantNotFound after delete, got %v", err)
	}
}

// interleavedStore runs between once, after the first plant listing is read
// and before the caller acts on it.
type interleavedStore struct {
	*sqlite.DB
	between func()
}

func (s *interleavedStore) ListOwnedPlants(ctx context.Context) ([]domain.OwnedPlant, error) {
	plants, err := s.DB.ListOwnedPlants(ctx)
	if s.between != nil {
		between := s.between
		s.between = nil
		between()
	}
	return plants, err
}

func TestList_KeepsConcurrentReadingDay(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clock := &fakeClock{now: planted}
	svc := garden.NewService(db, nil, clock, nil)
	engine := progression.NewEngine(db, db, db, progression.Config{Clock: clock})

	p, err := svc.Purchase(ctx, "fern", "")
	if err != nil {
		t.Fatal(err)
	}

	clock.now = planted.Add(4 * 24 * time.Hour)
	sweep := garden.NewService(&interleavedStore{DB: db, between: func() {
		out, err := engine.CreditReadingDay(ctx, p.ID, clock.now, 30)
		if err != nil || !out.Credited {
			t.Errorf("credit reading day: %+v, %v", out, err)
		}
	}}, nil, clock, nil)

	if _, err := sweep.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	stored, err := db.GetOwnedPlant(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Plant.ReadingDaysCount != 1 {
		t.Errorf("reading day lost by status write-back: %d days", stored.Plant.ReadingDaysCount)
	}
	if stored.Plant.Status != domain.PlantThirsty || !stored.Plant.IsActive {
		t.Errorf("expected active thirsty plant, got %+v", stored.Plant)
	}
}

func TestList_KeepsConcurrentWatering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clock := &fakeClock{now: planted}
	svc := garden.NewService(db, nil, clock, nil)

	p, err := svc.Purchase(ctx, "fern", "")
	if err != nil {
		t.Fatal(err)
	}

	clock.now = planted.Add(4 * 24 * time.Hour)
	sweep := garden.NewService(&interleavedStore{DB: db, between: func() {
		if _, err := svc.Water(ctx, p.ID); err != nil {
			t.Errorf("water: %v", err)
		}
	}}, nil, clock, nil)

	if _, err := sweep.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	stored, _ := db.GetOwnedPlant(ctx, p.ID)
	if stored.Plant.Status != domain.PlantHealthy || !stored.Plant.LastWatered.Equal(clock.now) {
		t.Errorf("watering overwritten by stale status: %+v", stored.Plant)
	}
}
