package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gourmet/internal/model"
)

// InteractionStore persists interaction records
type InteractionStore interface {
	SaveInteraction(ctx context.Context, rec model.InteractionRecord, embedding []float32) error
}

// Embedder computes preference embeddings, best effort
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	IsEnabled() bool
}

// HistoryWriter persists interaction records asynchronously through a
// bounded queue and a small worker pool. Enqueueing never blocks the request
// path: when the queue is full the oldest queued record is dropped and a
// counter is bumped. Persistence failures are logged and discarded.
type HistoryWriter struct {
	store    InteractionStore
	embedder Embedder

	queue   chan model.InteractionRecord
	workers int
	dropped atomic.Int64
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewHistoryWriter creates a history writer. embedder may be nil; records
// are then stored without a preference embedding.
func NewHistoryWriter(store InteractionStore, embedder Embedder, queueSize, workers int) *HistoryWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &HistoryWriter{
		store:    store,
		embedder: embedder,
		queue:    make(chan model.InteractionRecord, queueSize),
		workers:  workers,
	}
}

// Start launches the worker pool. ctx cancellation stops the workers after
// the queue drains of whatever they are currently holding.
func (w *HistoryWriter) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		for i := 0; i < w.workers; i++ {
			w.wg.Add(1)
			go w.run(ctx)
		}
	})
}

// Stop closes the queue and waits for in-flight writes to finish
func (w *HistoryWriter) Stop() {
	w.stopOnce.Do(func() {
		close(w.queue)
		w.wg.Wait()
	})
}

// Record enqueues one interaction record. Queue-full drops the oldest queued
// record rather than blocking the caller; in the rare race where the queue
// refills immediately, the incoming record is dropped instead.
func (w *HistoryWriter) Record(rec model.InteractionRecord) {
	select {
	case w.queue <- rec:
		return
	default:
	}

	// Queue full: evict the oldest entry, then retry once.
	select {
	case <-w.queue:
		w.dropped.Add(1)
	default:
	}

	select {
	case w.queue <- rec:
	default:
		w.dropped.Add(1)
	}
}

// Dropped returns how many records have been discarded due to backpressure
func (w *HistoryWriter) Dropped() int64 {
	return w.dropped.Load()
}

func (w *HistoryWriter) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-w.queue:
			if !ok {
				return
			}
			w.persist(ctx, rec)
		}
	}
}

// persist writes one record. Every failure here is terminal for the record:
// logged, counted, never retried, never surfaced to a request.
func (w *HistoryWriter) persist(ctx context.Context, rec model.InteractionRecord) {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var embedding []float32
	if w.embedder != nil && w.embedder.IsEnabled() {
		if vecs, err := w.embedder.CreateEmbeddings(writeCtx, []string{rec.Preference}); err == nil && len(vecs) == 1 {
			embedding = vecs[0]
		} else if err != nil {
			log.Printf("Warning: preference embedding failed for session %s: %v", rec.SessionID, err)
		}
	}

	if err := w.store.SaveInteraction(writeCtx, rec, embedding); err != nil {
		log.Printf("Warning: failed to persist interaction %s: %v", rec.SessionID, err)
	}
}
