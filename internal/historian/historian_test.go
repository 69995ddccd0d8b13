package historian

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch chan cache.LobbyActionRecord
}

func (c *chanSource) Pop(ctx context.Context) (*cache.LobbyActionRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case rec := <-c.ch:
		return &rec, nil
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

type memSink struct {
	mu      sync.Mutex
	batches [][]cache.LobbyActionRecord
	fail    bool
}

func (m *memSink) Insert(_ context.Context, records []cache.LobbyActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *memSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func record(i int) cache.LobbyActionRecord {
	return cache.LobbyActionRecord{LobbyID: uuid.New(), ActionIndex: i, ActionType: "round_started"}
}

func TestAppendFlushesFullBatch(t *testing.T) {
	sink := &memSink{}
	svc := New(nil, sink, 3, time.Hour, quietLogger())

	svc.Append(context.Background(), record(1))
	svc.Append(context.Background(), record(2))
	assert.Equal(t, 0, sink.total())
	assert.Equal(t, 2, svc.Pending())

	svc.Append(context.Background(), record(3))
	assert.Equal(t, 3, sink.total())
	assert.Equal(t, 0, svc.Pending())
}

func TestFailedFlushKeepsBatch(t *testing.T) {
	sink := &memSink{fail: true}
	svc := New(nil, sink, 10, time.Hour, quietLogger())

	svc.Append(context.Background(), record(1))
	svc.Flush(context.Background())
	assert.Equal(t, 1, svc.Pending())

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()
	svc.Flush(context.Background())
	assert.Equal(t, 0, svc.Pending())
	assert.Equal(t, 1, sink.total())
}

func TestRunDrainsSourceAndFlushesOnShutdown(t *testing.T) {
	source := &chanSource{ch: make(chan cache.LobbyActionRecord, 8)}
	sink := &memSink{}
	svc := New(source, sink, 100, time.Hour, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 5; i++ {
		source.ch <- record(i)
	}
	require.Eventually(t, func() bool { return svc.Pending() == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Equal(t, 5, sink.total())
}

func TestTickerFlushes(t *testing.T) {
	source := &chanSource{ch: make(chan cache.LobbyActionRecord, 1)}
	sink := &memSink{}
	svc := New(source, sink, 100, 10*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	source.ch <- record(1)
	require.Eventually(t, func() bool { return sink.total() == 1 }, time.Second, 5*time.Millisecond)
}
