// Package progression implements the reading progression engine.
// Reading sessions and finished books earn XP; XP drives the account level
// and coin rewards; owned plants boost XP and grow with reading days.
package progression

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/metrics"
)

// Config wires optional collaborators into the Engine.
type Config struct {
	Table  XPTable
	Cache  *ProgressCache
	Clock  domain.Clock
	Logger *zap.Logger

	// OnLevelUp is called after an award that crossed a level boundary.
	// It runs under the award lock and must not call back into the Engine.
	OnLevelUp func(domain.ProgressionResult)
}

// Engine awards XP and coins and credits reading days to plants.
// Award passes are serialized so XP, level and coins land in one write.
type Engine struct {
	mu      sync.Mutex
	store   domain.ProgressStore
	garden  domain.GardenStore
	library domain.LibraryStore

	table     XPTable
	cache     *ProgressCache
	clock     domain.Clock
	log       *zap.Logger
	onLevelUp func(domain.ProgressionResult)
}

// NewEngine creates a progression engine.
func NewEngine(store domain.ProgressStore, garden domain.GardenStore, library domain.LibraryStore, cfg Config) *Engine {
	if cfg.Table == (XPTable{}) {
		cfg.Table = DefaultXPTable()
	}
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		garden:    garden,
		library:   library,
		table:     cfg.Table,
		cache:     cfg.Cache,
		clock:     cfg.Clock,
		log:       cfg.Logger.Named("progression"),
		onLevelUp: cfg.OnLevelUp,
	}
}

// Table returns the XP rates in use.
func (e *Engine) Table() XPTable { return e.table }

// ─── Account Progress ───────────────────────────────────────────────────────

// Progress returns the account record and its level position.
// A stored level that disagrees with TotalXP is repaired. The read runs
// under the award lock so a concurrent award cannot be cached over.
func (e *Engine) Progress(ctx context.Context) (domain.AccountProgress, domain.LevelInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.cache.Get(); ok {
		return p, DescribeLevel(p.TotalXP), nil
	}

	p, err := e.store.GetProgress(ctx)
	if err != nil {
		return p, domain.LevelInfo{}, fmt.Errorf("get progress: %w", err)
	}

	info := DescribeLevel(p.TotalXP)
	if p.Level != info.Level {
		e.log.Warn("repairing stale account level",
			zap.Int("stored_level", p.Level),
			zap.Int("level", info.Level),
			zap.Int64("total_xp", p.TotalXP))
		if err := e.store.RepairLevel(ctx, info.Level); err != nil {
			return p, info, fmt.Errorf("repair level: %w", err)
		}
		p.Level = info.Level
	}

	e.cache.Put(p)
	return p, info, nil
}

// ─── XP Awards ──────────────────────────────────────────────────────────────

// SessionAward describes a finished session for XP purposes.
type SessionAward struct {
	Minutes       int
	PagesRead     *int
	ActivePlantID string    // plant credited with the reading day; "" for none
	SessionDate   time.Time // date credited to the plant; zero skips crediting
	HasStreak     bool
}

// AwardSessionXP awards XP for a reading session and then credits a reading
// day to the active plant. Plant crediting never fails the award.
func (e *Engine) AwardSessionXP(ctx context.Context, a SessionAward) (domain.ProgressionResult, error) {
	return e.awardSession(ctx, a, domain.AwardClaim{})
}

func (e *Engine) awardSession(ctx context.Context, a SessionAward, claim domain.AwardClaim) (domain.ProgressionResult, error) {
	breakdown := e.table.SessionBreakdown(a.Minutes, a.PagesRead, a.HasStreak)

	result, err := e.award(ctx, domain.XPReadingSession, breakdown.Total(), &breakdown, claim)
	if err != nil {
		return result, err
	}

	if a.ActivePlantID != "" && !a.SessionDate.IsZero() {
		if _, err := e.CreditReadingDay(ctx, a.ActivePlantID, a.SessionDate, a.Minutes); err != nil {
			e.log.Warn("reading day not credited",
				zap.String("plant_id", a.ActivePlantID),
				zap.Error(err))
		}
	}
	return result, nil
}

// AwardBookCompletionXP awards the fixed book completion XP.
// A non-empty activePlantID must name an owned plant.
func (e *Engine) AwardBookCompletionXP(ctx context.Context, activePlantID string) (domain.ProgressionResult, error) {
	return e.awardBook(ctx, activePlantID, domain.AwardClaim{})
}

func (e *Engine) awardBook(ctx context.Context, activePlantID string, claim domain.AwardClaim) (domain.ProgressionResult, error) {
	if activePlantID != "" {
		if _, err := e.garden.GetOwnedPlant(ctx, activePlantID); err != nil {
			return domain.ProgressionResult{}, fmt.Errorf("active plant %s: %w", activePlantID, err)
		}
	}
	return e.award(ctx, domain.XPBookCompleted, e.table.BookCompletionXP, nil, claim)
}

// award runs the boost → total → level-up → single write pipeline. The
// claim is spent in the same transaction as the account write.
func (e *Engine) award(ctx context.Context, source domain.XPSource, base int64, breakdown *domain.XPBreakdown, claim domain.AwardClaim) (domain.ProgressionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := domain.ProgressionResult{Source: source, BaseXP: base, Breakdown: breakdown}
	now := e.clock.Now()

	plants, err := e.garden.ListOwnedPlants(ctx)
	if err != nil {
		return result, fmt.Errorf("list plants: %w", err)
	}
	result.PlantBoostPercentage = TotalPlantBoost(plants, now)

	boosted := BoostXP(base, result.PlantBoostPercentage)
	result.XPEarned = boosted
	result.BonusXP = boosted - base

	if claim.Session != nil {
		claim.Session.XPEarned = boosted
	}

	var oldLevel, newLevel int
	var coins int64
	stored, err := e.store.ApplyAward(ctx, claim, func(current domain.AccountProgress) domain.AwardUpdate {
		newTotal := current.TotalXP + boosted
		oldLevel = LevelFromXP(current.TotalXP)
		newLevel = LevelFromXP(newTotal)
		coins = 0
		if newLevel > oldLevel {
			coins = LevelUpCoins(oldLevel, newLevel)
		}
		return domain.AwardUpdate{TotalXP: newTotal, Level: newLevel, CoinsDelta: coins}
	})
	e.cache.Invalidate()
	if err != nil {
		return result, fmt.Errorf("save progress: %w", err)
	}
	result.NewTotalXP = stored.TotalXP

	metrics.XPAwarded.WithLabelValues(string(source)).Add(float64(boosted))
	metrics.AccountLevel.Set(float64(newLevel))

	if newLevel > oldLevel {
		result.LevelUp = &domain.LevelUp{
			OldLevel:      oldLevel,
			NewLevel:      newLevel,
			CoinsAwarded:  coins,
			NewTotalCoins: stored.Coins,
		}
		metrics.LevelUps.Add(float64(newLevel - oldLevel))
		metrics.CoinsAwarded.Add(float64(coins))
		e.log.Info("level up",
			zap.Int("old_level", oldLevel),
			zap.Int("new_level", newLevel),
			zap.Int64("coins_awarded", coins))
		if e.onLevelUp != nil {
			e.onLevelUp(result)
		}
	}

	e.log.Debug("xp awarded",
		zap.String("source", string(source)),
		zap.Int64("base_xp", base),
		zap.Int64("xp_earned", boosted),
		zap.Float64("plant_boost", result.PlantBoostPercentage),
		zap.Int64("total_xp", stored.TotalXP))
	return result, nil
}

// ─── Plant Growth ───────────────────────────────────────────────────────────

// CreditReadingDay records a reading day for the plant and persists it when
// a day was credited. Only the growth fields are written.
func (e *Engine) CreditReadingDay(ctx context.Context, plantID string, sessionDate time.Time, minutes int) (GrowthOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owned, err := e.garden.GetOwnedPlant(ctx, plantID)
	if err != nil {
		return GrowthOutcome{}, fmt.Errorf("get plant %s: %w", plantID, err)
	}

	now := e.clock.Now()
	plant, out := RecordReadingDay(owned, sessionDate, minutes, now)
	if !out.Credited {
		return out, nil
	}

	if err := e.garden.UpdatePlantGrowth(ctx, plant); err != nil {
		return out, fmt.Errorf("update plant %s: %w", plantID, err)
	}

	metrics.ReadingDaysCredited.Inc()
	if out.LeveledUp {
		e.log.Info("plant grew",
			zap.String("plant_id", plantID),
			zap.Int("old_level", out.OldLevel),
			zap.Int("new_level", out.NewLevel))
	}
	return out, nil
}

// ─── Session Lifecycle ──────────────────────────────────────────────────────

// StartSession opens a reading session for a book.
func (e *Engine) StartSession(ctx context.Context, bookID string, startedAt time.Time) (domain.ReadingSession, error) {
	if _, err := e.library.GetBook(ctx, bookID); err != nil {
		return domain.ReadingSession{}, fmt.Errorf("start session: %w", err)
	}
	if startedAt.IsZero() {
		startedAt = e.clock.Now()
	}
	s := domain.ReadingSession{
		ID:        uuid.NewString(),
		BookID:    bookID,
		StartedAt: startedAt,
	}
	if err := e.library.InsertSession(ctx, s); err != nil {
		return s, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// FinishSession describes how a session ended.
type FinishSession struct {
	SessionID string
	EndedAt   time.Time // zero means now
	Minutes   int       // 0 derives minutes from StartedAt..EndedAt
	PagesRead *int
}

// FinishSession finalizes a session, awards its XP and credits the active
// plant with a reading day. Finalizing and paying happen in one write, so a
// session is paid once even when finished concurrently or retried.
func (e *Engine) FinishSession(ctx context.Context, f FinishSession) (domain.ReadingSession, domain.ProgressionResult, error) {
	var result domain.ProgressionResult

	s, err := e.library.GetSession(ctx, f.SessionID)
	if err != nil {
		return s, result, fmt.Errorf("finish session: %w", err)
	}
	if s.IsFinalized() {
		return s, result, fmt.Errorf("finish session %s: %w", s.ID, domain.ErrSessionFinalized)
	}
	if f.Minutes < 0 || (f.PagesRead != nil && *f.PagesRead < 0) {
		return s, result, fmt.Errorf("finish session %s: %w: negative minutes or pages", s.ID, domain.ErrInvalidInput)
	}

	ended := f.EndedAt
	if ended.IsZero() {
		ended = e.clock.Now()
	}
	if ended.Before(s.StartedAt) {
		return s, result, fmt.Errorf("finish session %s: %w: ends before it starts", s.ID, domain.ErrInvalidInput)
	}
	minutes := f.Minutes
	if minutes == 0 {
		minutes = int(ended.Sub(s.StartedAt) / time.Minute)
	}
	s.EndedAt = &ended
	s.Minutes = minutes
	s.PagesRead = f.PagesRead

	history, err := e.library.ListSessions(ctx)
	if err != nil {
		return s, result, fmt.Errorf("list sessions: %w", err)
	}
	history = append(withoutSession(history, s.ID), s)
	streak := ReadingStreak(history, s.StartedAt)

	activeID, err := e.activePlantID(ctx)
	if err != nil {
		return s, result, err
	}

	result, err = e.awardSession(ctx, SessionAward{
		Minutes:       s.Minutes,
		PagesRead:     s.PagesRead,
		ActivePlantID: activeID,
		SessionDate:   s.StartedAt,
		HasStreak:     streak.Active(),
	}, domain.AwardClaim{Session: &s})
	if err != nil {
		s.XPEarned = 0
		return s, domain.ProgressionResult{}, fmt.Errorf("finish session %s: %w", s.ID, err)
	}
	return s, result, nil
}

// CompleteBook marks a book completed and awards the book completion XP in
// one write. A book that is already completed is never paid again.
func (e *Engine) CompleteBook(ctx context.Context, bookID string, at time.Time) (domain.ProgressionResult, error) {
	b, err := e.library.GetBook(ctx, bookID)
	if err != nil {
		return domain.ProgressionResult{}, fmt.Errorf("complete book: %w", err)
	}
	if b.CountsAsCompleted() {
		return domain.ProgressionResult{}, fmt.Errorf("complete book %s: %w", bookID, domain.ErrBookAlreadyCompleted)
	}
	if at.IsZero() {
		at = e.clock.Now()
	}

	activeID, err := e.activePlantID(ctx)
	if err != nil {
		return domain.ProgressionResult{}, err
	}
	res, err := e.awardBook(ctx, activeID, domain.AwardClaim{BookID: bookID, CompletedAt: at})
	if err != nil {
		return domain.ProgressionResult{}, fmt.Errorf("complete book %s: %w", bookID, err)
	}
	return res, nil
}

// Streak returns the reading streak as of now.
func (e *Engine) Streak(ctx context.Context) (domain.Streak, error) {
	sessions, err := e.library.ListSessions(ctx)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("list sessions: %w", err)
	}
	return ReadingStreak(sessions, e.clock.Now()), nil
}

func (e *Engine) activePlantID(ctx context.Context) (string, error) {
	plants, err := e.garden.ListOwnedPlants(ctx)
	if err != nil {
		return "", fmt.Errorf("list plants: %w", err)
	}
	for _, p := range plants {
		if p.Plant.IsActive {
			return p.Plant.ID, nil
		}
	}
	return "", nil
}

func withoutSession(sessions []domain.ReadingSession, id string) []domain.ReadingSession {
	out := sessions[:0:0]
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
