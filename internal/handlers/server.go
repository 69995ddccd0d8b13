// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/whosaid/internal/lobby"
	"github.com/jason-s-yu/whosaid/internal/middleware"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultCommandRate  = 10.0
	DefaultCommandBurst = 20
	DefaultMaxBodyBytes = 8 << 20
)

// LobbyServer holds everything the HTTP and websocket handlers need.
type LobbyServer struct {
	Store  *lobby.LobbyStore
	Hub    *Hub
	Logger *logrus.Logger

	// PublicURL is the externally visible base URL used in QR codes. When empty the
	// request's scheme and host are used.
	PublicURL string

	OriginPatterns []string
	CommandRate    float64
	CommandBurst   int
	MaxBodyBytes   int64
}

// NewLobbyServer returns a server with default limits.
func NewLobbyServer(store *lobby.LobbyStore, hub *Hub, logger *logrus.Logger) *LobbyServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LobbyServer{
		Store:          store,
		Hub:            hub,
		Logger:         logger,
		OriginPatterns: []string{"*"},
		CommandRate:    DefaultCommandRate,
		CommandBurst:   DefaultCommandBurst,
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}
}

// Routes builds the router wrapped in request logging.
func (s *LobbyServer) Routes() http.Handler {
	mux := httprouter.New()
	mux.POST("/lobby/create", s.CreateLobbyHandler)
	mux.GET("/lobby/list", s.ListLobbiesHandler)
	mux.GET("/lobby/qr/:id", s.LobbyQRHandler)
	mux.GET("/lobby/ws/:id", s.LobbyWSHandler)
	mux.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	return middleware.LogMiddleware(s.Logger)(mux)
}

func (s *LobbyServer) newLimiter() *rate.Limiter {
	if s.CommandRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.CommandBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.CommandRate), burst)
}
