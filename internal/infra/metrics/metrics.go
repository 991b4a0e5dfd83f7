// Package metrics provides Prometheus metrics for Quill.
// Counters cover XP grants, badge unlocks, level-ups and the persistence path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Progress ───────────────────────────────────────────────────────────────

// XPGranted tracks XP granted by source.
var XPGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quill",
	Name:      "xp_granted_total",
	Help:      "Total XP granted.",
}, []string{"source"})

// BadgesUnlocked tracks badge unlocks by category and rarity.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quill",
	Name:      "badges_unlocked_total",
	Help:      "Total badges unlocked.",
}, []string{"category", "rarity"})

// LevelUps tracks level transitions (a multi-level jump counts once).
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quill",
	Name:      "level_ups_total",
	Help:      "Total level-up transitions.",
})

// StreakCurrent tracks the current streak length of the last saved record.
var StreakCurrent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "quill",
	Name:      "streak_current_days",
	Help:      "Current writing streak in days.",
})

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistFailures tracks failed record writes.
var PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quill",
	Name:      "persist_failures_total",
	Help:      "Total progress record writes that failed.",
})

// RecordRecoveries tracks malformed stored records replaced by defaults.
var RecordRecoveries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quill",
	Name:      "record_recoveries_total",
	Help:      "Total malformed stored records replaced with a fresh record.",
})

// StoreLatency tracks slot read/write latency by operation.
var StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "quill",
	Name:      "store_latency_seconds",
	Help:      "Progress store operation latency in seconds.",
	Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
}, []string{"op"})
