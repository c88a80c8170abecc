package jobs

import (
	"codonledger/internal/models"
	"context"
	"log"
	"time"
)

// StatsSource reports the current size of the ledger
type StatsSource interface {
	Stats() models.LedgerStats
}

// StatsRecorder receives ledger size samples
type StatsRecorder interface {
	RecordLedgerStats(stats models.LedgerStats)
}

// LedgerStatsJob samples ledger size into the metrics gauges
type LedgerStatsJob struct {
	source   StatsSource
	recorder StatsRecorder
	interval time.Duration
	last     models.LedgerStats
}

// NewLedgerStatsJob creates a new ledger stats job
func NewLedgerStatsJob(source StatsSource, recorder StatsRecorder, interval time.Duration) *LedgerStatsJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LedgerStatsJob{source: source, recorder: recorder, interval: interval}
}

func (j *LedgerStatsJob) Interval() time.Duration { return j.interval }

// Run takes one sample. It only logs when the ledger changed since the last run.
func (j *LedgerStatsJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stats := j.source.Stats()
	if j.recorder != nil {
		j.recorder.RecordLedgerStats(stats)
	}

	if stats != j.last {
		log.Printf("📊 [LEDGER-STATS] sessions=%d codons=%d outcomes=%d", stats.Sessions, stats.Codons, stats.Outcomes)
		j.last = stats
	}
	return nil
}
