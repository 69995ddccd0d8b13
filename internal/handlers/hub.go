// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/lobby"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const clientBufferSize = 32

// Client is one websocket attached to a lobby.
type Client struct {
	ConnID    uuid.UUID
	SessionID uuid.UUID
	LobbyID   uuid.UUID
	OutChan   chan lobby.Event

	limiter *rate.Limiter
	log     *logrus.Entry
}

func newClient(sessionID, lobbyID uuid.UUID, limiter *rate.Limiter, logger *logrus.Logger) *Client {
	connID := uuid.New()
	return &Client{
		ConnID:    connID,
		SessionID: sessionID,
		LobbyID:   lobbyID,
		OutChan:   make(chan lobby.Event, clientBufferSize),
		limiter:   limiter,
		log: logger.WithFields(logrus.Fields{
			"lobby_id": lobbyID,
			"conn_id":  connID,
		}),
	}
}

// Send pushes ev onto the client's OutChan without blocking. Events are dropped when
// the buffer is full.
func (c *Client) Send(ev lobby.Event) bool {
	select {
	case c.OutChan <- ev:
		return true
	default:
		c.log.Warnf("OutChan full, dropped event type '%s'", ev.Type)
		return false
	}
}

// Hub fans lobby events out to the attached clients. It implements lobby.Broadcaster.
type Hub struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]map[*Client]struct{}
	log    *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		groups: make(map[uuid.UUID]map[*Client]struct{}),
		log:    logger,
	}
}

// Register attaches c to its lobby's group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[c.LobbyID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[c.LobbyID] = group
	}
	group[c] = struct{}{}
}

// Unregister detaches c. Empty groups are dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[c.LobbyID]
	if !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, c.LobbyID)
	}
}

// Count returns how many clients are attached to lobbyID.
func (h *Hub) Count(lobbyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[lobbyID])
}

// Broadcast sends ev to every client attached to lobbyID. It never blocks.
func (h *Hub) Broadcast(lobbyID uuid.UUID, ev lobby.Event) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.groups[lobbyID]))
	for c := range h.groups[lobbyID] {
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		c.Send(ev)
	}
}
