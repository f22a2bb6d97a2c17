package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/readgarden/readgarden/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker(t *testing.T) {
	db := newTestDB(t)

	c := NewChecker(db, 1, 0, nil)
	if c == nil {
		t.Fatal("NewChecker() returned nil")
	}
	if len(c.checks) != 2 {
		t.Errorf("checks = %d, want 2", len(c.checks))
	}
	if c.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", c.interval, DefaultInterval)
	}
}

func TestChecker_RunOnceHealthy(t *testing.T) {
	db := newTestDB(t)

	c := NewChecker(db, 2, time.Minute, nil)
	statuses := c.RunOnce(context.Background())
	if len(statuses) != 2 {
		t.Fatalf("RunOnce() = %d statuses, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_SchemaTooOld(t *testing.T) {
	db := newTestDB(t)

	c := NewChecker(db, 99, time.Minute, nil)
	c.RunOnce(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() should be false when the schema is behind")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, 1, time.Minute, nil)

	// Before any run there are no statuses, so IsHealthy is vacuously true.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_ExtraCheckRecovery(t *testing.T) {
	db := newTestDB(t)
	recovered := 0
	c := NewChecker(db, 1, time.Minute, nil, Check{
		Name:      "garden",
		CheckFn:   func(ctx context.Context) error { return errors.New("boom") },
		RecoverFn: func(ctx context.Context) error { recovered++; return nil },
	})

	statuses := c.RunOnce(context.Background())
	last := statuses[len(statuses)-1]
	if last.Name != "garden" || last.Healthy || last.Error != "boom" {
		t.Errorf("extra check status = %+v", last)
	}
	if recovered != 1 {
		t.Errorf("RecoverFn called %d times, want 1", recovered)
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, 1, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if len(c.Statuses()) != 2 {
		t.Errorf("Statuses() = %d, want 2 after the initial run", len(c.Statuses()))
	}
}
