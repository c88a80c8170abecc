package jobs

import (
	"codonledger/internal/models"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	mu    sync.Mutex
	stats models.LedgerStats
}

func (f *fixedStats) Stats() models.LedgerStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

type recordingRecorder struct {
	mu      sync.Mutex
	samples []models.LedgerStats
}

func (r *recordingRecorder) RecordLedgerStats(stats models.LedgerStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, stats)
}

func (r *recordingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestLedgerStatsJob_Run(t *testing.T) {
	source := &fixedStats{stats: models.LedgerStats{Sessions: 2, Codons: 5, Outcomes: 1}}
	recorder := &recordingRecorder{}
	job := NewLedgerStatsJob(source, recorder, 0)

	assert.Equal(t, time.Minute, job.Interval())

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, source.stats, recorder.samples[0])
}

func TestLedgerStatsJob_CancelledContext(t *testing.T) {
	recorder := &recordingRecorder{}
	job := NewLedgerStatsJob(&fixedStats{}, recorder, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, job.Run(ctx))
	assert.Equal(t, 0, recorder.count())
}

func TestJobScheduler_RunsRegisteredJobs(t *testing.T) {
	scheduler, err := NewJobScheduler()
	require.NoError(t, err)

	recorder := &recordingRecorder{}
	job := NewLedgerStatsJob(&fixedStats{}, recorder, 50*time.Millisecond)

	require.NoError(t, scheduler.Register("ledger-stats", job))
	assert.Error(t, scheduler.Register("ledger-stats", job), "duplicate names are rejected")

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool { return recorder.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
