package handlers

import (
	"log"
	"sync"
	"time"

	"codonledger/internal/logging"
	"codonledger/internal/models"
	"codonledger/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	wsPingInterval = 20 * time.Second
	wsPongWait     = 60 * time.Second
	wsWriteWait    = 10 * time.Second
)

// LedgerWebSocketHandler streams ledger updates for one session to observers
type LedgerWebSocketHandler struct {
	hub        *services.NotificationHub
	bufferSize int
}

// NewLedgerWebSocketHandler creates a new live update handler
func NewLedgerWebSocketHandler(hub *services.NotificationHub, bufferSize int) *LedgerWebSocketHandler {
	if bufferSize <= 0 {
		bufferSize = services.DefaultObserverBuffer
	}
	return &LedgerWebSocketHandler{hub: hub, bufferSize: bufferSize}
}

// RequireUpgrade rejects plain HTTP requests on websocket routes
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle is the WebSocket handler for /ws/sessions/:sessionId
func (h *LedgerWebSocketHandler) Handle(c *websocket.Conn) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		log.Printf("[LEDGER-WS] Connection rejected: missing or invalid user_id")
		c.WriteJSON(models.ServerMessage{
			Type:         models.MessageError,
			ErrorCode:    "auth_error",
			ErrorMessage: "unauthorized",
		})
		return
	}

	sessionID := c.Params("sessionId")
	if sessionID == "" {
		c.WriteJSON(models.ServerMessage{
			Type:         models.MessageError,
			ErrorCode:    "validation_error",
			ErrorMessage: "sessionId is required",
		})
		return
	}

	connID := uuid.New().String()
	correlationID, _ := c.Locals("correlation_id").(string)
	logger := logging.WithConnection(logging.WithSession(logging.WithRequest(correlationID, userID), sessionID), connID)

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }
	var wg sync.WaitGroup

	// Serializes JSON messages and protocol pings
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		c.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return c.WriteJSON(v)
	}

	// Registration happens before the connected message so an observer never
	// misses an update it could have been told about.
	events := h.hub.Register(sessionID, connID, h.bufferSize)

	defer func() {
		closeDone()
		h.hub.Unregister(sessionID, connID)
		// The connection is released once Handle returns
		wg.Wait()
		logger.Info("observer disconnected")
	}()

	if err := write(models.ServerMessage{
		Type:         models.MessageConnected,
		SessionID:    sessionID,
		ConnectionID: connID,
	}); err != nil {
		logger.Warn("failed to send connected message", "error", err)
		return
	}
	logger.Info("observer connected")

	wg.Add(2)

	// Hub -> WebSocket forwarder
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[LEDGER-WS] Event forwarder recovered for %s: %v", connID, r)
			}
		}()
		for {
			select {
			case <-done:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := write(event); err != nil {
					log.Printf("[LEDGER-WS] Write error for %s: %v", connID, err)
					return
				}
			}
		}
	}()

	// Ping loop
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
				writeMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	c.SetReadDeadline(time.Now().Add(wsPongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// Observers are read-only; the read loop only detects disconnects
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[LEDGER-WS] Unexpected close for %s: %v", connID, err)
			}
			return
		}
		c.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}
