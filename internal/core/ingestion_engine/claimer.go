package ingestion_engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/metrics"
)

// ClaimerConfig tunes batch scheduling.
//
// BatchSize:     pending documents fetched per scheduling pass.
// WorkerCount:   documents processed concurrently; each document still runs
//                its pipeline stages sequentially on one worker.
// PollInterval:  sleep between passes when no pending documents were found.
// DocumentDelay: fixed pause after each document to bound resource usage.
type ClaimerConfig struct {
	BatchSize     int
	WorkerCount   int
	PollInterval  time.Duration
	DocumentDelay time.Duration
}

func (c *ClaimerConfig) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.DocumentDelay <= 0 {
		c.DocumentDelay = 2 * time.Second
	}
}

// QueueClaimer schedules pending documents. The atomic claim is the only
// correctness-critical shared-state boundary: a single conditional update,
// never read-then-write, so concurrent workers on the same backing store
// cannot double-process a document.
type QueueClaimer struct {
	db      core.DbClient
	orch    *Orchestrator
	metrics *metrics.Metrics
	cfg     ClaimerConfig
	logger  zerolog.Logger
}

func NewQueueClaimer(db core.DbClient, orch *Orchestrator, m *metrics.Metrics, cfg ClaimerConfig, logger zerolog.Logger) *QueueClaimer {
	cfg.defaults()
	return &QueueClaimer{
		db:      db,
		orch:    orch,
		metrics: m,
		cfg:     cfg,
		logger:  logger.With().Str("component", "claimer").Logger(),
	}
}

// Claim attempts the pending->processing transition for one document.
// Exactly one of any number of concurrent callers gets true.
func (q *QueueClaimer) Claim(ctx context.Context, documentID string) (bool, error) {
	claimed, err := q.db.ClaimDocument(ctx, documentID)
	if err != nil {
		return false, err
	}
	if claimed {
		q.metrics.ClaimsAttempted.WithLabelValues("won").Inc()
	} else {
		q.metrics.ClaimsAttempted.WithLabelValues("lost").Inc()
	}
	return claimed, nil
}

// RunBatch performs one scheduling pass: fetch pending documents by priority,
// claim each, and process the claimed ones on a bounded worker pool. Returns
// how many documents this worker actually processed.
func (q *QueueClaimer) RunBatch(ctx context.Context) (int, error) {
	docs, err := q.db.FetchPendingDocuments(ctx, q.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.cfg.WorkerCount)

	processed := 0
	results := make(chan bool, len(docs))

	for _, doc := range docs {
		docID := doc.ID
		g.Go(func() error {
			claimed, err := q.Claim(gctx, docID)
			if err != nil {
				q.logger.Error().Err(err).Str("document", docID).Msg("claim failed")
				return nil // a claim error never aborts the batch
			}
			if !claimed {
				// Another worker owns this one; skip it.
				return nil
			}

			if err := q.orch.ProcessDocument(gctx, docID); err != nil {
				q.logger.Error().Err(err).Str("document", docID).Msg("processing failed")
			}
			results <- true

			select {
			case <-time.After(q.cfg.DocumentDelay):
			case <-gctx.Done():
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return processed, err
	}
	close(results)
	for range results {
		processed++
	}
	return processed, nil
}

// RunContinuous loops scheduling passes until ctx is cancelled, sleeping
// PollInterval whenever a pass finds nothing to do.
func (q *QueueClaimer) RunContinuous(ctx context.Context) error {
	q.logger.Info().Int("batch_size", q.cfg.BatchSize).Int("workers", q.cfg.WorkerCount).
		Msg("queue claimer running")

	for {
		processed, err := q.RunBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Error().Err(err).Msg("scheduling pass failed")
		}

		if processed > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(q.cfg.PollInterval):
		}
	}
}
