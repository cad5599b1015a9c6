package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/nandaputra/bidlance_be/internal/realtime"
	"github.com/nandaputra/bidlance_be/internal/utils"
)

// NotificationSocketHandler streams workflow events to the connected
// user. Auth happens via the token query param since websocket upgrades
// bypass the cookie middleware chain.
type NotificationSocketHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
}

func NewNotificationSocketHandler(hub *realtime.Hub, secret string) *NotificationSocketHandler {
	return &NotificationSocketHandler{Hub: hub, JWTSecret: secret}
}

func (h *NotificationSocketHandler) Serve(c *websocket.Conn) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		log.Println("WebSocket: token parameter missing")
		c.Close()
		return
	}

	claims, err := utils.ParseClaims(h.JWTSecret, tokenStr)
	if err != nil {
		log.Println("WebSocket: invalid token:", err)
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(claims.UserID)
	if err != nil {
		log.Println("WebSocket: invalid user id in claims:", err)
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected", userUUID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected", userUUID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// Read loop keeps the connection alive; clients only send pongs.
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
	}
}
