package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Input errors
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidGoal  = errors.New("invalid reading goal")

	// Lookup errors
	ErrBookNotFound    = errors.New("book not found")
	ErrSessionNotFound = errors.New("reading session not found")
	ErrGoalNotFound    = errors.New("reading goal not found")
	ErrPlantNotFound   = errors.New("plant not found")
	ErrSpeciesNotFound = errors.New("plant species not found")
	ErrGenreNotFound   = errors.New("genre not found")

	// State errors
	ErrPlantDead            = errors.New("cannot water a dead plant")
	ErrSessionFinalized     = errors.New("reading session already finalized")
	ErrBookAlreadyCompleted = errors.New("book already completed")
	ErrInsufficientCoins    = errors.New("insufficient coins")
)

// IsNotFound reports whether err wraps one of the lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrGoalNotFound) ||
		errors.Is(err, ErrPlantNotFound) ||
		errors.Is(err, ErrSpeciesNotFound) ||
		errors.Is(err, ErrGenreNotFound)
}
