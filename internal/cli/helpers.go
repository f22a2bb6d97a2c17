package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/readgarden/readgarden/internal/daemon"
	"github.com/readgarden/readgarden/internal/domain"
)

// shortID trims a UUID to its first block for table output.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// matchID resolves a full ID or a unique prefix of one.
func matchID(prefix string, ids []string, notFound error) (string, error) {
	var match string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %q matches more than one ID", domain.ErrInvalidInput, prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%s: %w", prefix, notFound)
	}
	return match, nil
}

func resolveBookID(ctx context.Context, d *daemon.Daemon, prefix string) (string, error) {
	books, err := d.Library.List(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return matchID(prefix, ids, domain.ErrBookNotFound)
}

func resolvePlantID(ctx context.Context, d *daemon.Daemon, prefix string) (string, error) {
	plants, err := d.Garden.List(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(plants))
	for i, p := range plants {
		ids[i] = p.Plant.ID
	}
	return matchID(prefix, ids, domain.ErrPlantNotFound)
}

func resolveGoalID(ctx context.Context, d *daemon.Daemon, prefix string) (string, error) {
	pass, err := d.Goals.Refresh(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(pass.Goals))
	for i, g := range pass.Goals {
		ids[i] = g.ID
	}
	return matchID(prefix, ids, domain.ErrGoalNotFound)
}

// refreshGoals latches goals the last activity completed and announces them.
func refreshGoals(ctx context.Context, d *daemon.Daemon) error {
	pass, err := d.Goals.Refresh(ctx)
	if err != nil {
		return err
	}
	for _, g := range pass.NewlyCompleted {
		fmt.Printf("Goal reached: %s (%d/%d)\n", g.Title, g.Current, g.Target)
	}
	return nil
}
