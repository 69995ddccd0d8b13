// internal/lobby/lobby.go
package lobby

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/jason-s-yu/whosaid/internal/game"
	"github.com/jason-s-yu/whosaid/internal/metrics"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxNameLength is the longest display name a player may use, in runes.
const MaxNameLength = 32

// Recorder receives the lobby's history log. Implementations must not block.
type Recorder interface {
	RecordAction(rec cache.LobbyActionRecord)
}

// Lobby is one game session: its roster, message pool and round state machine.
// Every command and timer callback runs under mu.
type Lobby struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu sync.Mutex

	creatorID uuid.UUID
	settings  models.LobbySettings

	players map[uuid.UUID]*models.Player
	// identities maps transport session ids to player ids.
	identities map[uuid.UUID]uuid.UUID

	pool        []models.MessageRecord
	totalRounds int

	state       models.LobbyState
	round       *models.Round
	roundNumber int
	answers     *game.AnswerSet
	finalBoard  []models.LeaderboardEntry

	// generation invalidates timers scheduled before the latest round start,
	// game end or close.
	generation uint64
	roundTimer *time.Timer
	pending    *time.Timer

	actionIndex  int
	lastActivity atomic.Int64

	gen      *game.RoundGenerator
	now      func() time.Time
	events   Broadcaster
	recorder Recorder
	log      *logrus.Entry
	onClose  func(lobbyID uuid.UUID)
}

type lobbyDeps struct {
	gen      *game.RoundGenerator
	now      func() time.Time
	events   Broadcaster
	recorder Recorder
	logger   *logrus.Logger
	onClose  func(lobbyID uuid.UUID)
}

func newLobby(creatorID uuid.UUID, pool []models.MessageRecord, settings models.LobbySettings, deps lobbyDeps) *Lobby {
	if deps.now == nil {
		deps.now = time.Now
	}
	if deps.events == nil {
		deps.events = nopBroadcaster{}
	}
	if deps.gen == nil {
		deps.gen = game.NewRoundGenerator(nil)
	}
	if deps.logger == nil {
		deps.logger = logrus.StandardLogger()
	}

	id := uuid.New()
	l := &Lobby{
		ID:         id,
		CreatedAt:  deps.now(),
		creatorID:  creatorID,
		settings:   settings,
		players:    make(map[uuid.UUID]*models.Player),
		identities: make(map[uuid.UUID]uuid.UUID),
		pool:       copyPool(pool),
		state:      models.StateWaiting,
		gen:        deps.gen,
		now:        deps.now,
		events:     deps.events,
		recorder:   deps.recorder,
		log:        deps.logger.WithField("lobby_id", id),
		onClose:    deps.onClose,
	}
	l.totalRounds = len(l.pool)
	l.Touch()
	return l
}

// Join adds a player named name for the given transport session and returns its
// player id. A session that already owns a player gets that player back.
// The session that created the lobby becomes its creator player.
func (l *Lobby) Join(sessionID uuid.UUID, name string) (uuid.UUID, error) {
	name, err := validateName(name)
	if err != nil {
		return uuid.Nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == models.StateClosed {
		return uuid.Nil, apperrors.State("lobby is closed")
	}
	if sessionID != uuid.Nil {
		if pid, ok := l.identities[sessionID]; ok {
			if _, exists := l.players[pid]; exists {
				l.Touch()
				return pid, nil
			}
		}
	}
	if l.state != models.StateWaiting {
		return uuid.Nil, apperrors.State("cannot join while the game is in progress")
	}

	p := &models.Player{ID: uuid.New(), Name: name}
	l.players[p.ID] = p
	if sessionID != uuid.Nil {
		l.identities[sessionID] = p.ID
		if l.creatorID == sessionID {
			l.creatorID = p.ID
		}
	}

	l.log.WithFields(logrus.Fields{"player_id": p.ID, "name": name}).Info("player joined")
	snap := l.snapshotLocked()
	l.events.Broadcast(l.ID, Event{
		Type:     EventPlayerJoined,
		LobbyID:  l.ID,
		PlayerID: playerRef(p.ID),
		Name:     p.Name,
		State:    &snap,
	})
	l.Touch()
	return p.ID, nil
}

// SetReady flags a player as ready or not.
func (l *Lobby) SetReady(playerID uuid.UUID, ready bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == models.StateClosed {
		return apperrors.State("lobby is closed")
	}
	p, ok := l.players[playerID]
	if !ok {
		return apperrors.NotFound("player %s is not in this lobby", playerID)
	}
	p.IsReady = ready
	l.events.Broadcast(l.ID, Event{
		Type:     EventPlayerReadyChanged,
		LobbyID:  l.ID,
		PlayerID: playerRef(p.ID),
		IsReady:  boolRef(ready),
	})
	l.Touch()
	return nil
}

// Rename changes a player's display name.
func (l *Lobby) Rename(playerID uuid.UUID, name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == models.StateClosed {
		return apperrors.State("lobby is closed")
	}
	p, ok := l.players[playerID]
	if !ok {
		return apperrors.NotFound("player %s is not in this lobby", playerID)
	}
	p.Name = name
	l.events.Broadcast(l.ID, Event{
		Type:     EventPlayerNameChanged,
		LobbyID:  l.ID,
		PlayerID: playerRef(p.ID),
		Name:     name,
	})
	l.Touch()
	return nil
}

// ReloadMessages replaces the message pool. Only the creator may do this, and only
// before the game starts.
func (l *Lobby) ReloadMessages(callerID uuid.UUID, pool []models.MessageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == models.StateClosed {
		return apperrors.State("lobby is closed")
	}
	if callerID != l.creatorID {
		return apperrors.Authorization("only the lobby creator can reload messages")
	}
	if l.state != models.StateWaiting {
		return apperrors.State("messages can only be reloaded before the game starts")
	}
	if len(pool) == 0 {
		return apperrors.Validation("message pool must not be empty")
	}

	l.pool = copyPool(pool)
	l.totalRounds = len(l.pool)
	l.log.WithField("messages", len(l.pool)).Info("message pool reloaded")

	snap := l.snapshotLocked()
	l.events.Broadcast(l.ID, Event{Type: EventMessagesReloaded, LobbyID: l.ID, State: &snap})
	l.Touch()
	return nil
}

// Leave removes callerID from the lobby. The lobby closes when the creator leaves or
// the last player does; closed reports whether that happened.
func (l *Lobby) Leave(callerID uuid.UUID) (closed bool, err error) {
	l.mu.Lock()

	if l.state == models.StateClosed {
		l.mu.Unlock()
		return false, apperrors.State("lobby is closed")
	}

	isCreator := callerID == l.creatorID
	p, isPlayer := l.players[callerID]
	if !isPlayer && !isCreator {
		l.mu.Unlock()
		return false, apperrors.NotFound("player %s is not in this lobby", callerID)
	}

	if isPlayer {
		delete(l.players, callerID)
		for session, pid := range l.identities {
			if pid == callerID {
				delete(l.identities, session)
			}
		}
		if l.answers != nil {
			l.answers.Remove(callerID)
		}
		l.log.WithFields(logrus.Fields{"player_id": callerID, "name": p.Name}).Info("player left")
	}

	switch {
	case isCreator:
		closed = l.closeLocked("creator_left")
	case len(l.players) == 0:
		closed = l.closeLocked("empty")
	default:
		snap := l.snapshotLocked()
		l.events.Broadcast(l.ID, Event{
			Type:     EventPlayerLeft,
			LobbyID:  l.ID,
			PlayerID: playerRef(callerID),
			Name:     p.Name,
			State:    &snap,
		})
		if l.state == models.StateRoundActive && l.answers.Check(len(l.players)) {
			l.endRoundLocked("player_left")
		}
		l.Touch()
	}

	onClose := l.onClose
	l.mu.Unlock()

	if closed && onClose != nil {
		onClose(l.ID)
	}
	return closed, nil
}

// Close shuts the lobby down, invalidating its timers and broadcasting lobby_closed.
// It reports false when the lobby was already closed.
func (l *Lobby) Close(reason string) bool {
	l.mu.Lock()
	closed := l.closeLocked(reason)
	onClose := l.onClose
	l.mu.Unlock()

	if closed && onClose != nil {
		onClose(l.ID)
	}
	return closed
}

// closeIfIdle closes the lobby when it has seen no activity since cutoff. Commands
// touch the lobby under mu, so none can slip in between the check and the close.
func (l *Lobby) closeIfIdle(cutoff time.Time, reason string) bool {
	l.mu.Lock()
	if !l.LastActivity().Before(cutoff) {
		l.mu.Unlock()
		return false
	}
	closed := l.closeLocked(reason)
	onClose := l.onClose
	l.mu.Unlock()

	if closed && onClose != nil {
		onClose(l.ID)
	}
	return closed
}

func (l *Lobby) closeLocked(reason string) bool {
	if l.state == models.StateClosed {
		return false
	}
	l.generation++
	l.stopTimersLocked()
	l.state = models.StateClosed
	l.round = nil
	l.answers = nil

	l.log.WithField("reason", reason).Info("lobby closed")
	l.events.Broadcast(l.ID, Event{Type: EventLobbyClosed, LobbyID: l.ID, Message: reason})
	l.recordLocked(uuid.Nil, "lobby_closed", map[string]any{"reason": reason})
	metrics.LobbiesActive.Dec()
	metrics.LobbiesClosed.WithLabelValues(reason).Inc()
	return true
}

func (l *Lobby) stopTimersLocked() {
	if l.roundTimer != nil {
		l.roundTimer.Stop()
		l.roundTimer = nil
	}
	if l.pending != nil {
		l.pending.Stop()
		l.pending = nil
	}
}

// CreatorID returns the creator's id: the creating session until it joins, its
// player id afterwards.
func (l *Lobby) CreatorID() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creatorID
}

// PlayerIDFor returns the player owned by sessionID, if any.
func (l *Lobby) PlayerIDFor(sessionID uuid.UUID) (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pid, ok := l.identities[sessionID]
	return pid, ok
}

// ResolveCaller maps a session to the id used for creator checks: its player id when
// the session has joined, the session id itself otherwise.
func (l *Lobby) ResolveCaller(sessionID uuid.UUID) uuid.UUID {
	if pid, ok := l.PlayerIDFor(sessionID); ok {
		return pid
	}
	return sessionID
}

// Player returns a copy of the player with the given id.
func (l *Lobby) Player(playerID uuid.UUID) (models.Player, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.players[playerID]
	if !ok {
		return models.Player{}, false
	}
	return *p, true
}

func (l *Lobby) State() models.LobbyState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lobby) Settings() models.LobbySettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// Generation returns the current timer generation.
func (l *Lobby) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Snapshot returns the current lobby state payload.
func (l *Lobby) Snapshot() models.LobbySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Touch marks the lobby as active now.
func (l *Lobby) Touch() {
	l.lastActivity.Store(l.now().UnixNano())
}

// LastActivity is safe to call without holding the lobby lock.
func (l *Lobby) LastActivity() time.Time {
	return time.Unix(0, l.lastActivity.Load())
}

func (l *Lobby) recordLocked(actorID uuid.UUID, actionType string, payload map[string]any) {
	if l.recorder == nil {
		return
	}
	l.actionIndex++
	l.recorder.RecordAction(cache.LobbyActionRecord{
		LobbyID:     l.ID,
		ActionIndex: l.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   l.now().UnixMilli(),
	})
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Validation("name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperrors.Validation("name must be at most %d characters", MaxNameLength)
	}
	return name, nil
}

func copyPool(pool []models.MessageRecord) []models.MessageRecord {
	out := make([]models.MessageRecord, len(pool))
	copy(out, pool)
	return out
}
