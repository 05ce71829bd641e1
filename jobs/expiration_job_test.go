package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRejecter struct {
	mu      sync.Mutex
	results []int
	err     error
	cutoffs []time.Time
}

func (f *fakeRejecter) RejectStale(_ context.Context, before time.Time, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	n := f.results[0]
	f.results = f.results[1:]
	return n, nil
}

func (f *fakeRejecter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestRunOnce_UsesGraceCutoffAndDrainsBatches(t *testing.T) {
	now := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)
	rejecter := &fakeRejecter{results: []int{staleBatchSize, 3}}
	job := NewExpirationJob(rejecter, time.Hour, 24*time.Hour)
	job.now = func() time.Time { return now }

	total := job.RunOnce(context.Background())

	assert.Equal(t, staleBatchSize+3, total)
	require.Len(t, rejecter.cutoffs, 2)
	assert.Equal(t, now.Add(-24*time.Hour), rejecter.cutoffs[0])
}

func TestRunOnce_StopsOnError(t *testing.T) {
	rejecter := &fakeRejecter{err: errors.New("db down")}
	job := NewExpirationJob(rejecter, time.Hour, time.Hour)

	assert.Zero(t, job.RunOnce(context.Background()))
	assert.Equal(t, 1, rejecter.calls())
}

func TestStartStop(t *testing.T) {
	rejecter := &fakeRejecter{}
	job := NewExpirationJob(rejecter, 10*time.Millisecond, time.Hour)

	job.Start()
	require.Eventually(t, func() bool { return rejecter.calls() > 0 }, time.Second, 5*time.Millisecond)
	job.Stop()
	job.Stop()

	calls := rejecter.calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, rejecter.calls())
}
