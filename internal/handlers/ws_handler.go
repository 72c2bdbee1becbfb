package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteWait = 5 * time.Second

// TimerMessage is pushed to the client on every countdown tick and once
// more when the attempt ends.
type TimerMessage struct {
	Type             string `json:"type"` // "tick", "expired", "error"
	RemainingSeconds int    `json:"remaining_seconds"`
	Message          string `json:"message,omitempty"`
}

// TimerStreamHandler streams a running countdown over a websocket. Expiry
// auto-submits on the server whether or not the client is connected.
type TimerStreamHandler struct {
	BaseHandler
	attemptService services.AttemptService
	upgrader       websocket.Upgrader
}

func NewTimerStreamHandler(attemptService services.AttemptService, logger utils.Logger) *TimerStreamHandler {
	return &TimerStreamHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Identity comes from the bearer token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *TimerStreamHandler) Stream(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	identity := auth.FromContext(c)
	deviceID := DeviceID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.LogError(c, err, "Failed to upgrade websocket", "form_id", id)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends anything meaningful; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	send := func(msg TimerMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
		}
	}

	err = h.attemptService.Watch(ctx, id, identity, deviceID, func(remaining int) {
		send(TimerMessage{Type: "tick", RemainingSeconds: remaining})
	})

	switch {
	case err == nil:
		send(TimerMessage{Type: "expired"})
	case errors.Is(err, context.Canceled):
		return
	default:
		h.LogWarn(c, "Countdown stream ended", "form_id", id, "error", err.Error())
		send(TimerMessage{Type: "error", Message: err.Error()})
	}

	writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
	writeMu.Unlock()
}
