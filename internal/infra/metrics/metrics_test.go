package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestProgressCounters(t *testing.T) {
	XPGranted.WithLabelValues("words_written").Add(10)
	BadgesUnlocked.WithLabelValues("milestone", "common").Inc()
	LevelUps.Inc()
	StreakCurrent.Set(4)

	names := gatheredNames(t)
	expected := []string{
		"quill_xp_granted_total",
		"quill_badges_unlocked_total",
		"quill_level_ups_total",
		"quill_streak_current_days",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestPersistenceMetrics(t *testing.T) {
	PersistFailures.Inc()
	RecordRecoveries.Inc()
	StoreLatency.WithLabelValues("put").Observe(0.002)

	names := gatheredNames(t)
	for _, name := range []string{
		"quill_persist_failures_total",
		"quill_record_recoveries_total",
		"quill_store_latency_seconds",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
