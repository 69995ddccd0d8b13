// internal/lobby/lobby_store.go
package lobby

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/game"
	"github.com/jason-s-yu/whosaid/internal/metrics"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/sirupsen/logrus"
)

// Options configures a LobbyStore. Zero values fall back to sensible defaults.
type Options struct {
	Broadcaster Broadcaster
	Recorder    Recorder
	Logger      *logrus.Logger

	// Rand returns the random source for a new lobby's round generator.
	Rand func() *rand.Rand
	Now  func() time.Time

	// Defaults supplies per-lobby settings the creator leaves unset, and the
	// start and round-end delays for every lobby.
	Defaults models.LobbySettings
}

// LobbyStore manages active lobbies in memory.
// Lobby locks are never acquired while mu is held.
type LobbyStore struct {
	mu      sync.RWMutex
	lobbies map[uuid.UUID]*Lobby

	opts Options
	log  *logrus.Logger
}

// NewLobbyStore initializes and returns an empty LobbyStore.
func NewLobbyStore(opts Options) *LobbyStore {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Defaults == (models.LobbySettings{}) {
		opts.Defaults = models.DefaultLobbySettings()
	}
	return &LobbyStore{
		lobbies: make(map[uuid.UUID]*Lobby),
		opts:    opts,
		log:     opts.Logger,
	}
}

// Create registers a new lobby owned by creatorID. The pool may be empty; messages
// can be loaded later with ReloadMessages.
func (s *LobbyStore) Create(creatorID uuid.UUID, pool []models.MessageRecord, settings models.LobbySettings) (*Lobby, error) {
	if settings.SecondsPerRound == 0 {
		settings.SecondsPerRound = s.opts.Defaults.SecondsPerRound
	}
	if settings.OptionCount == 0 {
		settings.OptionCount = s.opts.Defaults.OptionCount
	}
	settings.StartDelay = s.opts.Defaults.StartDelay
	settings.RoundEndDelay = s.opts.Defaults.RoundEndDelay

	settings, err := settings.Normalize()
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if s.opts.Rand != nil {
		rng = s.opts.Rand()
	}
	l := newLobby(creatorID, pool, settings, lobbyDeps{
		gen:      game.NewRoundGenerator(rng),
		now:      s.opts.Now,
		events:   s.opts.Broadcaster,
		recorder: s.opts.Recorder,
		logger:   s.opts.Logger,
		onClose:  func(id uuid.UUID) { s.detach(id) },
	})

	s.mu.Lock()
	s.lobbies[l.ID] = l
	s.mu.Unlock()

	metrics.LobbiesActive.Inc()
	s.log.WithFields(logrus.Fields{
		"lobby_id":   l.ID,
		"creator_id": creatorID,
		"messages":   len(pool),
		"authors":    game.CountAuthors(pool),
	}).Info("lobby created")
	return l, nil
}

// Get returns the lobby with the given id and marks it active.
func (s *LobbyStore) Get(id uuid.UUID) (*Lobby, error) {
	l, ok := s.Peek(id)
	if !ok {
		return nil, apperrors.NotFound("lobby %s not found", id)
	}
	l.Touch()
	return l, nil
}

// Peek returns the lobby without refreshing its activity.
func (s *LobbyStore) Peek(id uuid.UUID) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// Remove closes and unregisters a lobby. It reports whether the lobby was present.
func (s *LobbyStore) Remove(id uuid.UUID) bool {
	return s.RemoveWithReason(id, "removed")
}

// RemoveWithReason is Remove with the reason sent in the lobby_closed event.
func (s *LobbyStore) RemoveWithReason(id uuid.UUID, reason string) bool {
	l, ok := s.detach(id)
	if !ok {
		return false
	}
	l.Close(reason)
	return true
}

// RemoveIfIdle closes and unregisters the lobby when its last activity is before
// cutoff. It reports whether the lobby was removed.
func (s *LobbyStore) RemoveIfIdle(id uuid.UUID, cutoff time.Time, reason string) bool {
	l, ok := s.Peek(id)
	if !ok {
		return false
	}
	return l.closeIfIdle(cutoff, reason)
}

// Leave removes callerID from the lobby, unregistering the lobby if that closed it.
func (s *LobbyStore) Leave(lobbyID, callerID uuid.UUID) (bool, error) {
	l, err := s.Get(lobbyID)
	if err != nil {
		return false, err
	}
	return l.Leave(callerID)
}

// IDs returns the ids of all registered lobbies.
func (s *LobbyStore) IDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.lobbies))
	for id := range s.lobbies {
		ids = append(ids, id)
	}
	return ids
}

func (s *LobbyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}

// List returns a snapshot of every lobby, oldest first.
func (s *LobbyStore) List() []models.LobbySnapshot {
	s.mu.RLock()
	lobbies := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		lobbies = append(lobbies, l)
	}
	s.mu.RUnlock()

	out := make([]models.LobbySnapshot, 0, len(lobbies))
	for _, l := range lobbies {
		out = append(out, l.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *LobbyStore) detach(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	if ok {
		delete(s.lobbies, id)
		s.log.WithField("lobby_id", id).Info("lobby removed from store")
	}
	return l, ok
}
