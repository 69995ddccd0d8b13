package lobby

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAppliesDefaults(t *testing.T) {
	env := newTestEnv(t, models.LobbySettings{
		SecondsPerRound: 45,
		OptionCount:     3,
		StartDelay:      2 * time.Second,
		RoundEndDelay:   5 * time.Second,
	})

	l, err := env.store.Create(uuid.New(), nil, models.LobbySettings{SecondsPerRound: 10})
	require.NoError(t, err)

	settings := l.Settings()
	assert.Equal(t, 10, settings.SecondsPerRound)
	assert.Equal(t, 3, settings.OptionCount)
	assert.Equal(t, 2*time.Second, settings.StartDelay)
	assert.Equal(t, 5*time.Second, settings.RoundEndDelay)
	assert.Equal(t, models.StateWaiting, l.State())
	assert.Equal(t, env.clock.Now(), l.CreatedAt)
}

func TestCreateRejectsBadSettings(t *testing.T) {
	env := newTestEnv(t, instantSettings())

	_, err := env.store.Create(uuid.New(), nil, models.LobbySettings{OptionCount: 11})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.store.Create(uuid.New(), nil, models.LobbySettings{SecondsPerRound: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, 0, env.store.Len())
}

func TestNewLobbyStoreZeroDefaults(t *testing.T) {
	store := NewLobbyStore(Options{Logger: quietLogger()})
	l, err := store.Create(uuid.New(), nil, models.LobbySettings{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultLobbySettings(), l.Settings())
	require.True(t, store.Remove(l.ID))
}

func TestGetTouchesLobby(t *testing.T) {
	env := newTestEnv(t, instantSettings())
	l, err := env.store.Create(uuid.New(), nil, models.LobbySettings{})
	require.NoError(t, err)
	created := l.LastActivity()

	env.clock.Advance(time.Minute)
	got, err := env.store.Get(l.ID)
	require.NoError(t, err)
	assert.Same(t, l, got)
	assert.Equal(t, created.Add(time.Minute), l.LastActivity())

	env.clock.Advance(time.Minute)
	_, ok := env.store.Peek(l.ID)
	require.True(t, ok)
	assert.Equal(t, created.Add(time.Minute), l.LastActivity(), "peek must not touch")

	_, err = env.store.Get(uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemove(t *testing.T) {
	env := newTestEnv(t, instantSettings())
	l, err := env.store.Create(uuid.New(), nil, models.LobbySettings{})
	require.NoError(t, err)

	assert.True(t, env.store.Remove(l.ID))
	assert.False(t, env.store.Remove(l.ID))
	assert.Equal(t, models.StateClosed, l.State())

	closed := env.events.ofType(EventLobbyClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "removed", closed[0].Message)
}

func TestListAndIDs(t *testing.T) {
	env := newTestEnv(t, instantSettings())
	first, err := env.store.Create(uuid.New(), onePerAuthor("a"), models.LobbySettings{})
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	second, err := env.store.Create(uuid.New(), nil, models.LobbySettings{})
	require.NoError(t, err)

	assert.Equal(t, 2, env.store.Len())
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, env.store.IDs())

	list := env.store.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].LobbyID)
	assert.Equal(t, 1, list[0].RemainingMessages)
	assert.Equal(t, second.ID, list[1].LobbyID)
}

func TestStoreLeaveUnknownLobby(t *testing.T) {
	env := newTestEnv(t, instantSettings())
	_, err := env.store.Leave(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
