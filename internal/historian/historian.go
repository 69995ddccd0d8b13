// Package historian drains lobby history records from Redis into Postgres in batches.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBatchSize  = 20
	DefaultFlushDelay = 500 * time.Millisecond
	popTimeout        = 3 * time.Second
)

// Source yields the next record, or nil when nothing arrived before its timeout.
type Source interface {
	Pop(ctx context.Context) (*cache.LobbyActionRecord, error)
}

// Sink persists a batch of records atomically.
type Sink interface {
	Insert(ctx context.Context, records []cache.LobbyActionRecord) error
}

// Service accumulates records from a Source and flushes them to a Sink when the
// batch fills or the flush ticker fires.
type Service struct {
	source     Source
	sink       Sink
	batchSize  int
	flushDelay time.Duration
	log        *logrus.Logger

	batchMu sync.Mutex
	batch   []cache.LobbyActionRecord
}

func New(source Source, sink Sink, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source:     source,
		sink:       sink,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		log:        logger,
		batch:      make([]cache.LobbyActionRecord, 0, batchSize),
	}
}

// Run pops records until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	go s.flushLoop(ctx)

	s.log.Info("historian started")
	for {
		rec, err := s.source.Pop(ctx)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			s.log.Errorf("pop: %v", err)
			continue
		}
		if rec == nil {
			continue
		}
		s.Append(ctx, *rec)
	}

	// ctx is done; use a fresh one so the final batch still lands.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian shutting down")
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// Append adds a record to the batch and flushes once it reaches batchSize.
func (s *Service) Append(ctx context.Context, rec cache.LobbyActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch. A failed batch is put back so the next flush retries it.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.LobbyActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.Insert(ctx, pending); err != nil {
		if errors.Is(err, context.Canceled) {
			s.log.Warnf("flush of %d actions cancelled", len(pending))
		} else {
			s.log.Errorf("flush of %d actions failed: %v", len(pending), err)
		}
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.log.Debugf("flushed %d actions", len(pending))
}

// Pending returns how many records are waiting to be flushed.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
