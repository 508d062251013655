package server

import (
	"encoding/json"
	"net/http"

	"sentiment-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub is the main Hub loop
func (s *DashboardServer) runHub() {
	for {
		select {
		case client, ok := <-s.register:
			if !ok {
				return
			}
			s.frameMutex.Lock()
			s.clients[client] = struct{}{}
			latest := s.latestFrame
			s.frameMutex.Unlock()

			// Send the current view on connect so the widget renders
			// immediately instead of waiting for the next update.
			if latest != nil {
				client.send <- latest
			}

		case client, ok := <-s.unregister:
			if !ok {
				return
			}
			s.frameMutex.Lock()
			if _, exists := s.clients[client]; exists {
				delete(s.clients, client)
				close(client.send)
			}
			s.frameMutex.Unlock()

		case frame, ok := <-s.broadcast:
			if !ok {
				return
			}
			s.frameMutex.Lock()
			s.latestFrame = frame

			for client := range s.clients {
				select {
				case client.send <- frame:
					// Frame queued successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.frameMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a render frame for all connected clients. Non-blocking:
// when the hub queue is full the frame is dropped, the next update supersedes
// it anyway.
func (s *DashboardServer) Broadcast(frame *models.MRenderFrame) {
	if frame == nil {
		return
	}

	select {
	case s.broadcast <- frame:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s frame", frame.Type)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MRenderFrame, 256),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// clientCommand is the only message the widget sends over the socket: a
// request to switch the displayed subject/resolution.
type clientCommand struct {
	Command    string `json:"command"`
	Subject    string `json:"subject"`
	Resolution string `json:"resolution"`
}

func (s *DashboardServer) handleClientMessage(client *Client, message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "switch" {
		return
	}
	if cmd.Subject == "" || cmd.Resolution == "" {
		s.Logger.Info("Ignoring switch command with empty subject or resolution")
		return
	}
	if _, err := s.Registry.ByKey(cmd.Resolution); err != nil {
		s.Logger.Info("Ignoring switch command: %v", err)
		return
	}

	if s.RequestSwitch != nil {
		s.RequestSwitch(cmd.Subject, cmd.Resolution)
	}
}
