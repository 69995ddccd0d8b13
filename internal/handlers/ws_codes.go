// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the lobby socket.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidLobbyIDError websocket.StatusCode = 3003 // Target lobby was closed before the socket attached.
	LobbyClosedCode     websocket.StatusCode = 3004 // Lobby closed while the socket was attached.
)
