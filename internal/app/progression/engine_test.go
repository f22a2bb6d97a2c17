package progression_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/sqlite"
)

// fixedClock always reports the same instant.
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var start = time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, db *sqlite.DB, cfg progression.Config) *progression.Engine {
	t.Helper()
	if cfg.Clock == nil {
		cfg.Clock = &fixedClock{now: start.Add(2 * time.Hour)}
	}
	return progression.NewEngine(db, db, db, cfg)
}

func addBook(t *testing.T, db *sqlite.DB, id string) {
	t.Helper()
	err := db.InsertBook(context.Background(), domain.Book{
		ID: id, Title: "Book " + id, Status: domain.BookReading, CreatedAt: start,
	})
	if err != nil {
		t.Fatalf("insert book: %v", err)
	}
}

func addPlant(t *testing.T, db *sqlite.DB, id, species string, active bool) {
	t.Helper()
	_, err := db.PurchasePlant(context.Background(), domain.Plant{
		ID: id, SpeciesID: species, Name: id, CurrentLevel: 1,
		LastWatered: start, PlantedAt: start, Status: domain.PlantHealthy, IsActive: active,
	}, 0)
	if err != nil {
		t.Fatalf("add plant: %v", err)
	}
}

func readSession(t *testing.T, e *progression.Engine, bookID string, at time.Time, minutes int, pages *int) (domain.ReadingSession, domain.ProgressionResult) {
	t.Helper()
	ctx := context.Background()
	s, err := e.StartSession(ctx, bookID, at)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	s, res, err := e.FinishSession(ctx, progression.FinishSession{
		SessionID: s.ID,
		EndedAt:   at.Add(time.Duration(minutes) * time.Minute),
		Minutes:   minutes,
		PagesRead: pages,
	})
	if err != nil {
		t.Fatalf("finish session: %v", err)
	}
	return s, res
}

// ═══════════════════════════════════════════════════════════════════════════
// Award Pipeline Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestAwardSessionXP_NoPlants(t *testing.T) {
	db := testDB(t)
	e := newEngine(t, db, progression.Config{})

	res, err := e.AwardSessionXP(context.Background(), progression.SessionAward{Minutes: 45, PagesRead: intPtr(20)})
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if res.XPEarned != 65 || res.BaseXP != 65 || res.BonusXP != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Breakdown == nil || res.Breakdown.PagesXP != 20 {
		t.Errorf("expected pages breakdown, got %+v", res.Breakdown)
	}
	if res.LeveledUp() {
		t.Error("65 XP should not level up")
	}
}

func TestAwardSessionXP_LevelUpAwardsCoins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	var fired []domain.ProgressionResult
	e := newEngine(t, db, progression.Config{
		OnLevelUp: func(r domain.ProgressionResult) { fired = append(fired, r) },
	})

	// 1400 XP crosses levels 2, 3 and 4 in one award.
	res, err := e.AwardSessionXP(ctx, progression.SessionAward{Minutes: 1375})
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if res.NewTotalXP != 1400 {
		t.Errorf("expected 1400 XP, got %d", res.NewTotalXP)
	}
	if res.LevelUp == nil {
		t.Fatal("expected a level up")
	}
	if res.LevelUp.OldLevel != 1 || res.LevelUp.NewLevel != 4 {
		t.Errorf("level up %d → %d, want 1 → 4", res.LevelUp.OldLevel, res.LevelUp.NewLevel)
	}
	if res.LevelUp.CoinsAwarded != 450 || res.LevelUp.NewTotalCoins != 450 {
		t.Errorf("coins = %+v, want 450 awarded", res.LevelUp)
	}
	if len(fired) != 1 {
		t.Errorf("OnLevelUp called %d times, want 1", len(fired))
	}

	p, info, err := e.Progress(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Level != 4 || p.Coins != 450 || info.Level != 4 {
		t.Errorf("stored progress %+v / %+v", p, info)
	}
}

func TestAwardSessionXP_PlantBoost(t *testing.T) {
	db := testDB(t)
	addPlant(t, db, "fern-1", "fern", true)
	e := newEngine(t, db, progression.Config{})

	res, err := e.AwardSessionXP(context.Background(), progression.SessionAward{
		Minutes: 45, PagesRead: intPtr(20),
		ActivePlantID: "fern-1", SessionDate: start,
	})
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	// fern level 1: 0.02 + 1·(0.02/5) = 0.024 → round(65·1.024) = 67
	if res.XPEarned != 67 || res.BonusXP != 2 {
		t.Errorf("expected 67 XP with 2 bonus, got %+v", res)
	}

	plant, err := db.GetOwnedPlant(context.Background(), "fern-1")
	if err != nil {
		t.Fatal(err)
	}
	if plant.Plant.ReadingDaysCount != 1 {
		t.Errorf("expected reading day credited, got %d", plant.Plant.ReadingDaysCount)
	}
}

func TestAwardBookCompletionXP_UnknownPlant(t *testing.T) {
	db := testDB(t)
	e := newEngine(t, db, progression.Config{})

	_, err := e.AwardBookCompletionXP(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrPlantNotFound) {
		t.Errorf("expected ErrPlantNotFound, got %v", err)
	}
	p, _ := db.GetProgress(context.Background())
	if p.TotalXP != 0 {
		t.Errorf("XP awarded despite error: %d", p.TotalXP)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress & Cache Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestProgress_RepairsStaleLevel(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.SetProgress(ctx, domain.AccountProgress{TotalXP: 1000, Level: 9}); err != nil {
		t.Fatal(err)
	}
	e := newEngine(t, db, progression.Config{})

	p, info, err := e.Progress(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Level != 3 || info.CurrentLevelXP != 500 || info.NextLevelXP != 900 {
		t.Errorf("got %+v / %+v", p, info)
	}
	stored, _ := db.GetProgress(ctx)
	if stored.Level != 3 {
		t.Errorf("stored level not repaired: %d", stored.Level)
	}
}

func TestProgress_CacheInvalidatedByAward(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cache := progression.NewProgressCache(time.Minute)
	e := newEngine(t, db, progression.Config{Cache: cache})

	if _, _, err := e.Progress(ctx); err != nil {
		t.Fatal(err)
	}
	// A write that bypasses the engine is hidden by the cache.
	if err := db.SetProgress(ctx, domain.AccountProgress{TotalXP: 50, Level: 1}); err != nil {
		t.Fatal(err)
	}
	p, _, _ := e.Progress(ctx)
	if p.TotalXP != 0 {
		t.Errorf("expected cached 0 XP, got %d", p.TotalXP)
	}

	if _, err := e.AwardSessionXP(ctx, progression.SessionAward{Minutes: 10}); err != nil {
		t.Fatal(err)
	}
	p, _, _ = e.Progress(ctx)
	if p.TotalXP != 60 {
		t.Errorf("expected 60 XP after award, got %d", p.TotalXP)
	}
}

func TestProgress_ConcurrentWithAwards(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	e := newEngine(t, db, progression.Config{Cache: progression.NewProgressCache(time.Minute)})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(award bool) {
			defer wg.Done()
			if award {
				if _, err := e.AwardSessionXP(ctx, progression.SessionAward{Minutes: 10}); err != nil {
					t.Errorf("award: %v", err)
				}
				return
			}
			if _, _, err := e.Progress(ctx); err != nil {
				t.Errorf("progress: %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	p, info, err := e.Progress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalXP != 100 || p.Level != 2 || info.Level != 2 {
		t.Errorf("expected 100 XP at level 2 after all awards, got %+v", p)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Lifecycle Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestFinishSession_AwardsAndFinalizes(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})

	s, res := readSession(t, e, "b1", start, 45, intPtr(20))
	if res.XPEarned != 65 {
		t.Errorf("expected 65 XP, got %d", res.XPEarned)
	}

	stored, err := db.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.IsFinalized() || stored.XPEarned != 65 || stored.Minutes != 45 {
		t.Errorf("stored session %+v", stored)
	}

	_, _, err = e.FinishSession(context.Background(), progression.FinishSession{SessionID: s.ID, Minutes: 5})
	if !errors.Is(err, domain.ErrSessionFinalized) {
		t.Errorf("expected ErrSessionFinalized, got %v", err)
	}
}

func TestFinishSession_DerivesMinutes(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})
	ctx := context.Background()

	s, err := e.StartSession(ctx, "b1", start)
	if err != nil {
		t.Fatal(err)
	}
	s, _, err = e.FinishSession(ctx, progression.FinishSession{SessionID: s.ID, EndedAt: start.Add(50 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if s.Minutes != 50 {
		t.Errorf("expected 50 derived minutes, got %d", s.Minutes)
	}
}

func TestFinishSession_InvalidInput(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})
	ctx := context.Background()

	s, err := e.StartSession(ctx, "b1", start)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = e.FinishSession(ctx, progression.FinishSession{SessionID: s.ID, Minutes: -5})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("negative minutes: expected ErrInvalidInput, got %v", err)
	}
	_, _, err = e.FinishSession(ctx, progression.FinishSession{SessionID: s.ID, EndedAt: start.Add(-time.Hour)})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("end before start: expected ErrInvalidInput, got %v", err)
	}
	_, _, err = e.FinishSession(ctx, progression.FinishSession{SessionID: "missing"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStartSession_UnknownBook(t *testing.T) {
	db := testDB(t)
	e := newEngine(t, db, progression.Config{})
	if _, err := e.StartSession(context.Background(), "nope", start); !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got %v", err)
	}
}

func TestFinishSession_StreakBonus(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})

	_, first := readSession(t, e, "b1", start.AddDate(0, 0, -1), 20, nil)
	if first.Breakdown.StreakBonus != 0 {
		t.Errorf("first day should not carry a streak bonus")
	}
	_, second := readSession(t, e, "b1", start, 20, nil)
	if second.Breakdown.StreakBonus != 10 {
		t.Errorf("expected streak bonus 10 on second day, got %d", second.Breakdown.StreakBonus)
	}

	streak, err := e.Streak(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if streak.CurrentDays != 2 {
		t.Errorf("expected 2-day streak, got %d", streak.CurrentDays)
	}
}

func TestFinishSession_CreditsActivePlantOncePerDay(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	addPlant(t, db, "fern-1", "fern", true)
	addPlant(t, db, "fern-2", "fern", false)
	e := newEngine(t, db, progression.Config{})
	ctx := context.Background()

	readSession(t, e, "b1", start, 20, nil)
	readSession(t, e, "b1", start.Add(30*time.Minute), 20, nil)

	active, _ := db.GetOwnedPlant(ctx, "fern-1")
	if active.Plant.ReadingDaysCount != 1 {
		t.Errorf("active plant reading days = %d, want 1", active.Plant.ReadingDaysCount)
	}
	idle, _ := db.GetOwnedPlant(ctx, "fern-2")
	if idle.Plant.ReadingDaysCount != 0 {
		t.Errorf("inactive plant was credited")
	}
}

func TestCompleteBook(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})
	ctx := context.Background()

	res, err := e.CompleteBook(ctx, "b1", start)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Source != domain.XPBookCompleted || res.XPEarned != 100 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.LevelUp == nil || res.LevelUp.NewLevel != 2 || res.LevelUp.CoinsAwarded != 100 {
		t.Errorf("expected level 2 with 100 coins, got %+v", res.LevelUp)
	}

	b, _ := db.GetBook(ctx, "b1")
	if !b.CountsAsCompleted() {
		t.Errorf("book not completed: %+v", b)
	}

	if _, err := e.CompleteBook(ctx, "b1", start); !errors.Is(err, domain.ErrBookAlreadyCompleted) {
		t.Errorf("expected ErrBookAlreadyCompleted, got %v", err)
	}
}

func TestFinishSession_ConcurrentFinishPaysOnce(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})
	ctx := context.Background()

	s, err := e.StartSession(ctx, "b1", start)
	if err != nil {
		t.Fatal(err)
	}

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.FinishSession(ctx, progression.FinishSession{
				SessionID: s.ID,
				EndedAt:   start.Add(30 * time.Minute),
				Minutes:   30,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	finished := 0
	for err := range errs {
		switch {
		case err == nil:
			finished++
		case !errors.Is(err, domain.ErrSessionFinalized):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if finished != 1 {
		t.Errorf("expected exactly one finish, got %d", finished)
	}

	p, _ := db.GetProgress(ctx)
	if p.TotalXP != 30 {
		t.Errorf("expected 30 XP, got %d", p.TotalXP)
	}
	stored, _ := db.GetSession(ctx, s.ID)
	if stored.XPEarned != 30 {
		t.Errorf("expected session XP 30, got %d", stored.XPEarned)
	}
}

// failingProgress fails the next fail awards without touching the database.
type failingProgress struct {
	*sqlite.DB
	fail int
}

func (f *failingProgress) ApplyAward(ctx context.Context, claim domain.AwardClaim, compute func(domain.AccountProgress) domain.AwardUpdate) (domain.AccountProgress, error) {
	if f.fail > 0 {
		f.fail--
		return domain.AccountProgress{}, errors.New("disk I/O error")
	}
	return f.DB.ApplyAward(ctx, claim, compute)
}

func TestFinishSession_RetryAfterFailedWrite(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	addPlant(t, db, "fern-1", "fern", true)
	ctx := context.Background()
	e := progression.NewEngine(&failingProgress{DB: db, fail: 1}, db, db, progression.Config{
		Clock: &fixedClock{now: start.Add(2 * time.Hour)},
	})

	s, err := e.StartSession(ctx, "b1", start)
	if err != nil {
		t.Fatal(err)
	}
	finish := progression.FinishSession{SessionID: s.ID, EndedAt: start.Add(30 * time.Minute), Minutes: 30}

	if _, _, err := e.FinishSession(ctx, finish); err == nil {
		t.Fatal("expected the first finish to fail")
	}
	stored, _ := db.GetSession(ctx, s.ID)
	if stored.IsFinalized() {
		t.Fatal("failed finish left the session finalized")
	}
	plant, _ := db.GetOwnedPlant(ctx, "fern-1")
	if plant.Plant.ReadingDaysCount != 0 {
		t.Errorf("failed finish credited a reading day")
	}

	_, res, err := e.FinishSession(ctx, finish)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	p, _ := db.GetProgress(ctx)
	if p.TotalXP != res.XPEarned || res.XPEarned == 0 {
		t.Errorf("expected the retry to pay once, total %d, earned %d", p.TotalXP, res.XPEarned)
	}
	stored, _ = db.GetSession(ctx, s.ID)
	if !stored.IsFinalized() || stored.XPEarned != res.XPEarned {
		t.Errorf("stored session %+v", stored)
	}
}

func TestCompleteBook_ConcurrentPaysOnce(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	e := newEngine(t, db, progression.Config{})
	ctx := context.Background()

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CompleteBook(ctx, "b1", start)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	completed := 0
	for err := range errs {
		switch {
		case err == nil:
			completed++
		case !errors.Is(err, domain.ErrBookAlreadyCompleted):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if completed != 1 {
		t.Errorf("expected exactly one completion, got %d", completed)
	}
	p, _ := db.GetProgress(ctx)
	if p.TotalXP != 100 || p.Coins != 100 {
		t.Errorf("expected 100 XP and 100 coins, got %+v", p)
	}
}

func TestCompleteBook_RetryAfterFailedWrite(t *testing.T) {
	db := testDB(t)
	addBook(t, db, "b1")
	ctx := context.Background()
	e := progression.NewEngine(&failingProgress{DB: db, fail: 1}, db, db, progression.Config{
		Clock: &fixedClock{now: start},
	})

	if _, err := e.CompleteBook(ctx, "b1", start); err == nil {
		t.Fatal("expected the first completion to fail")
	}
	if b, _ := db.GetBook(ctx, "b1"); b.CountsAsCompleted() {
		t.Fatal("failed completion left the book completed")
	}

	res, err := e.CompleteBook(ctx, "b1", start)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.XPEarned != 100 {
		t.Errorf("expected 100 XP on retry, got %d", res.XPEarned)
	}
}
