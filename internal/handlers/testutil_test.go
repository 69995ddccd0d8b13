package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/whosaid/internal/auth"
	"github.com/jason-s-yu/whosaid/internal/lobby"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv   *LobbyServer
	store *lobby.LobbyStore
	hub   *Hub
	http  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	require.NoError(t, auth.Init(0))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := NewHub(logger)
	store := lobby.NewLobbyStore(lobby.Options{
		Broadcaster: hub,
		Logger:      logger,
		Defaults: models.LobbySettings{
			SecondsPerRound: models.DefaultSecondsPerRound,
			OptionCount:     models.DefaultOptionCount,
		},
	})
	srv := NewLobbyServer(store, hub, logger)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testServer{srv: srv, store: store, hub: hub, http: ts}
}

func (ts *testServer) wsURL(lobbyID string) string {
	return "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/lobby/ws/" + lobbyID
}

// dial opens a lobby socket, sending token as the session cookie when non-empty.
func (ts *testServer) dial(t *testing.T, lobbyID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	if token != "" {
		header.Set("Cookie", sessionCookieName+"="+token)
	}
	c, _, err := websocket.Dial(ctx, ts.wsURL(lobbyID), &websocket.DialOptions{
		Subprotocols: []string{"lobby"},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "test done") })
	return c
}

func send(t *testing.T, c *websocket.Conn, packet map[string]any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, packet))
}

// readUntil reads events until one of type want arrives.
func readUntil(t *testing.T, c *websocket.Conn, want lobby.EventType) lobby.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var ev lobby.Event
		require.NoError(t, wsjson.Read(ctx, c, &ev), "waiting for %s", want)
		if ev.Type == want {
			return ev
		}
	}
}

func sessionCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			return c.Value
		}
	}
	t.Fatalf("response did not set %s", sessionCookieName)
	return ""
}
