// Package queue runs the background consumer that drains the durable
// ingestion queue a session-end hook enqueues onto, invoking the
// consolidator for each job, per spec.md §4.K.
package queue

import (
	"context"
	"log"
	"time"

	"github.com/localmem/memsys/internal/consolidate"
	"github.com/localmem/memsys/internal/store"
)

// PollInterval is how often the consumer checks for a new job when the
// queue is empty.
const PollInterval = 2 * time.Second

// Consumer drains queue_jobs at-least-once: a job is only acked after
// ConsolidateSession returns without error, so a crash mid-job leaves
// it "processing" and NextPending picks it back up on restart.
type Consumer struct {
	db           *store.DB
	consolidator *consolidate.Consolidator
}

// New returns a Consumer bound to db and consolidator.
func New(db *store.DB, consolidator *consolidate.Consolidator) *Consumer {
	return &Consumer{db: db, consolidator: consolidator}
}

// Run polls for pending jobs until ctx is cancelled. It never returns
// an error — per-job failures are logged and marked failed so the
// queue keeps draining.
func (c *Consumer) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		for c.drainOne(ctx) {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drainOne claims and processes a single job, reporting whether one
// was available so Run can keep draining without waiting for the
// ticker while the queue is non-empty.
func (c *Consumer) drainOne(ctx context.Context) bool {
	job, err := c.db.NextPending()
	if err != nil {
		log.Printf("queue: claim job: %v", err)
		return false
	}
	if job == nil {
		return false
	}

	result, err := c.consolidator.ConsolidateSession(ctx, job.TranscriptPath, job.SessionID, job.ProjectID)
	if err != nil {
		log.Printf("queue: consolidate job %s (session %s): %v", job.ID, job.SessionID, err)
		if err := c.db.Fail(job.ID); err != nil {
			log.Printf("queue: mark job %s failed: %v", job.ID, err)
		}
		return true
	}

	if err := c.db.Ack(job.ID); err != nil {
		log.Printf("queue: ack job %s: %v", job.ID, err)
	}
	log.Printf("queue: consolidated session %s: %d saved, %d deduplicated, quality %.2f",
		job.SessionID, result.MemoriesSaved, result.MemoriesDeduplicated, result.Quality.QualityScore)
	return true
}
