// Package metrics provides Prometheus metrics for readgarden:
// XP awards, level-ups, coins, plant care and goal completion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Progression ────────────────────────────────────────────────────────────

// XPAwarded tracks XP awarded by source (reading_session, book_completed).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "readgarden",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded, after plant boosts.",
}, []string{"source"})

// LevelUps counts account levels gained.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "readgarden",
	Name:      "level_ups_total",
	Help:      "Total account levels gained.",
})

// CoinsAwarded counts coins granted for level-ups.
var CoinsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "readgarden",
	Name:      "coins_awarded_total",
	Help:      "Total coins awarded for level-ups.",
})

// AccountLevel tracks the current account level.
var AccountLevel = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "readgarden",
	Name:      "account_level",
	Help:      "Current account level.",
})

// ─── Garden ─────────────────────────────────────────────────────────────────

// ReadingDaysCredited counts reading days credited to plants.
var ReadingDaysCredited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "readgarden",
	Name:      "reading_days_credited_total",
	Help:      "Total reading days credited to plants.",
})

// PlantWaterings counts watering attempts by outcome (ok, dead).
var PlantWaterings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "readgarden",
	Name:      "plant_waterings_total",
	Help:      "Total plant watering attempts.",
}, []string{"outcome"})

// PlantsByStatus tracks owned plants per health status.
var PlantsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "readgarden",
	Name:      "plants",
	Help:      "Owned plants by health status.",
}, []string{"status"})

// ─── Goals ──────────────────────────────────────────────────────────────────

// GoalsCompleted counts goals that latched to completed, by type.
var GoalsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "readgarden",
	Name:      "goals_completed_total",
	Help:      "Total reading goals completed.",
}, []string{"type"})

// GoalAggregationLatency tracks the duration of a goal aggregation pass.
var GoalAggregationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "readgarden",
	Name:      "goal_aggregation_seconds",
	Help:      "Duration of a goal progress aggregation pass.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
})
