package lobby

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (mb *mockBroadcaster) Broadcast(_ uuid.UUID, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) ofType(t EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) last() *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	ev := mb.events[len(mb.events)-1]
	return &ev
}

type mockRecorder struct {
	mu      sync.Mutex
	records []cache.LobbyActionRecord
}

func (mr *mockRecorder) RecordAction(rec cache.LobbyActionRecord) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.records = append(mr.records, rec)
}

func (mr *mockRecorder) types() []string {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	out := make([]string, 0, len(mr.records))
	for _, r := range mr.records {
		out = append(out, r.ActionType)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// instantSettings has no start or round-end delay, so transitions run synchronously.
func instantSettings() models.LobbySettings {
	return models.LobbySettings{
		SecondsPerRound: models.DefaultSecondsPerRound,
		OptionCount:     models.DefaultOptionCount,
	}
}

type testEnv struct {
	store    *LobbyStore
	events   *mockBroadcaster
	recorder *mockRecorder
	clock    *fakeClock
}

func newTestEnv(t *testing.T, defaults models.LobbySettings) *testEnv {
	t.Helper()
	env := &testEnv{
		events:   &mockBroadcaster{},
		recorder: &mockRecorder{},
		clock:    newFakeClock(),
	}
	var seed uint64
	env.store = NewLobbyStore(Options{
		Broadcaster: env.events,
		Recorder:    env.recorder,
		Logger:      quietLogger(),
		Now:         env.clock.Now,
		Rand: func() *rand.Rand {
			seed++
			return rand.New(rand.NewPCG(seed, 42))
		},
		Defaults: defaults,
	})
	return env
}

// onePerAuthor returns one message for each author.
func onePerAuthor(authors ...string) []models.MessageRecord {
	pool := make([]models.MessageRecord, 0, len(authors))
	for i, a := range authors {
		pool = append(pool, models.MessageRecord{
			ID:         fmt.Sprintf("m%d", i),
			Content:    "said by " + a,
			AuthorID:   a,
			AuthorName: "name-" + a,
			Timestamp:  time.Unix(int64(i), 0),
		})
	}
	return pool
}

// createWithPlayers creates a lobby whose creator session joins as the first player,
// followed by the extra names. It returns the lobby and player ids in join order.
func (env *testEnv) createWithPlayers(t *testing.T, pool []models.MessageRecord, names ...string) (*Lobby, []uuid.UUID) {
	t.Helper()
	creatorSession := uuid.New()
	l, err := env.store.Create(creatorSession, pool, models.LobbySettings{})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(names))
	for i, name := range names {
		session := uuid.New()
		if i == 0 {
			session = creatorSession
		}
		pid, err := l.Join(session, name)
		require.NoError(t, err)
		ids = append(ids, pid)
	}
	return l, ids
}

func currentAuthor(t *testing.T, l *Lobby) string {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotNil(t, l.round, "expected an active round")
	return l.round.Message.AuthorID
}

func wrongAuthor(correct string) string {
	return "not-" + correct
}
