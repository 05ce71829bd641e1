package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// staleBatchSize caps how many bookings one run rejects.
const staleBatchSize = 100

// StaleRejecter is the part of the booking engine the job drives.
type StaleRejecter interface {
	RejectStale(ctx context.Context, before time.Time, limit int) (int, error)
}

// ExpirationJob rejects pending bookings nobody picked up in time.
type ExpirationJob struct {
	bookings StaleRejecter
	interval time.Duration
	grace    time.Duration
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewExpirationJob creates a new expiration job
func NewExpirationJob(bookings StaleRejecter, interval, grace time.Duration) *ExpirationJob {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ExpirationJob{
		bookings: bookings,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the expiration job
func (j *ExpirationJob) Start() {
	go j.run()
	log.Printf("🚀 Expiration job started (every %s, grace %s)", j.interval, j.grace)
}

// Stop stops the job and waits for a running pass to finish.
func (j *ExpirationJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		<-j.done
		log.Println("🛑 Expiration job stopped")
	})
}

func (j *ExpirationJob) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(context.Background())
		case <-j.stopChan:
			return
		}
	}
}

// RunOnce rejects every stale booking dated before now minus the grace period.
func (j *ExpirationJob) RunOnce(ctx context.Context) int {
	cutoff := j.now().Add(-j.grace)
	total := 0
	for {
		n, err := j.bookings.RejectStale(ctx, cutoff, staleBatchSize)
		if err != nil {
			log.Printf("❌ Error checking stale bookings: %v", err)
			return total
		}
		total += n
		if n < staleBatchSize {
			break
		}
	}
	if total > 0 {
		log.Printf("⏰ Rejected %d stale bookings", total)
	}
	return total
}
