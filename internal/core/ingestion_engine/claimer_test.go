package ingestion_engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/markdave123-py/Indexa/internal/logging"
	"github.com/markdave123-py/Indexa/internal/metrics"
	"github.com/markdave123-py/Indexa/internal/models"
)

func newTestClaimer(db *fakeDB, cfg ClaimerConfig) *QueueClaimer {
	fx := newOrchFixture(db, &fakeStorage{data: []byte("claimed document body text")}, &fakeTextExtractor{})
	if cfg.DocumentDelay == 0 {
		cfg.DocumentDelay = time.Millisecond
	}
	return NewQueueClaimer(db, fx.orch, metrics.NewUnregistered(), cfg, logging.Nop())
}

func TestClaimExactlyOnceUnderContention(t *testing.T) {
	db := newFakeDB(pendingDoc("doc-1"))
	q := newTestClaimer(db, ClaimerConfig{})

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := q.Claim(context.Background(), "doc-1")
			if err != nil {
				t.Errorf("Claim() error = %v", err)
				return
			}
			if claimed {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("%d racers won the claim, want exactly 1", won)
	}
}

func TestClaimNonPendingDocument(t *testing.T) {
	doc := pendingDoc("doc-1")
	doc.ProcessingStatus = models.StatusCompleted
	db := newFakeDB(doc)
	q := newTestClaimer(db, ClaimerConfig{})

	claimed, err := q.Claim(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if claimed {
		t.Error("claimed a completed document")
	}
}

func TestRunBatchProcessesAllPending(t *testing.T) {
	db := newFakeDB(pendingDoc("doc-1"), pendingDoc("doc-2"), pendingDoc("doc-3"))
	q := newTestClaimer(db, ClaimerConfig{BatchSize: 10, WorkerCount: 2})

	n, err := q.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if n != 3 {
		t.Errorf("processed = %d, want 3", n)
	}

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		if got := db.docs[id].ProcessingStatus; got != models.StatusCompleted {
			t.Errorf("%s status = %q, want completed", id, got)
		}
	}
}

func TestRunBatchEmptyQueue(t *testing.T) {
	db := newFakeDB()
	q := newTestClaimer(db, ClaimerConfig{})

	n, err := q.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if n != 0 {
		t.Errorf("processed = %d, want 0", n)
	}
}

func TestRunBatchSkipsAlreadyClaimed(t *testing.T) {
	claimed := pendingDoc("doc-2")
	claimed.ProcessingStatus = models.StatusProcessing
	db := newFakeDB(pendingDoc("doc-1"), claimed)
	q := newTestClaimer(db, ClaimerConfig{BatchSize: 10})

	n, err := q.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1 (doc-2 already owned)", n)
	}
	if db.docs["doc-2"].ProcessingStatus != models.StatusProcessing {
		t.Error("doc-2 should be untouched")
	}
}

func TestRunContinuousStopsOnCancel(t *testing.T) {
	db := newFakeDB()
	q := newTestClaimer(db, ClaimerConfig{PollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.RunContinuous(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunContinuous() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunContinuous did not stop after cancel")
	}
}

func TestClaimerConfigDefaults(t *testing.T) {
	var cfg ClaimerConfig
	cfg.defaults()

	if cfg.BatchSize != 10 || cfg.WorkerCount != 1 {
		t.Errorf("defaults batch=%d workers=%d, want 10/1", cfg.BatchSize, cfg.WorkerCount)
	}
	if cfg.PollInterval != 30*time.Second || cfg.DocumentDelay != 2*time.Second {
		t.Errorf("defaults poll=%s delay=%s", cfg.PollInterval, cfg.DocumentDelay)
	}
}
