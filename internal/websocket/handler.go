package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"rancho-chat/internal/events"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Authenticator resolves an access token to an account id, e.g. services.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, token, role string) (string, error)
}

type Authorizer interface {
	CanSubscribe(ctx context.Context, accountID, channel string) (bool, error)
}

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Command is what a client sends to follow or leave a conversation.
type Command struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
}

type Reply struct {
	Type           string `json:"type"`
	Action         string `json:"action,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	auth       Authenticator
	authorizer Authorizer
	hub        *Hub
	log        *logger.Logger
}

func NewHandler(auth Authenticator, authorizer Authorizer, hub *Hub, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{auth: auth, authorizer: authorizer, hub: hub, log: l}
}

func (h *Handler) Connect(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("access denied", "ACCESS_DENIED"))
		return
	}
	accountID, err := h.auth.Authenticate(c.Request.Context(), token, "")
	if err != nil {
		h.log.WithContext(c.Request.Context()).Errorf("websocket auth failed: %s", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
		return
	}
	if accountID == "" {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("access denied", "ACCESS_DENIED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed for %s: %s", accountID, err)
		return
	}

	client := NewClient(conn, accountID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	h.hub.Subscribe(client, events.UserChannel(accountID))
	go client.WriteLoop(ctx)

	h.readLoop(ctx, client)
	h.hub.Unregister(client)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugf("websocket read for %s: %s", client.AccountID, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.reply(client, h.HandleCommand(ctx, client, data))
	}
}

// HandleCommand applies one client command and returns the reply to send back.
func (h *Handler) HandleCommand(ctx context.Context, client *Client, data []byte) Reply {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil || cmd.ConversationID == "" {
		return Reply{Type: "error", Error: "invalid command"}
	}
	channel := events.ConversationChannel(cmd.ConversationID)

	switch cmd.Action {
	case ActionSubscribe:
		allowed, err := h.authorizer.CanSubscribe(ctx, client.AccountID, channel)
		if err != nil {
			h.log.Errorf("authorize %s on %s: %s", client.AccountID, channel, err)
			return Reply{Type: "error", Action: cmd.Action, ConversationID: cmd.ConversationID, Error: "internal error"}
		}
		if !allowed {
			return Reply{Type: "error", Action: cmd.Action, ConversationID: cmd.ConversationID, Error: "forbidden"}
		}
		h.hub.Subscribe(client, channel)
	case ActionUnsubscribe:
		h.hub.Unsubscribe(client, channel)
	default:
		return Reply{Type: "error", Action: cmd.Action, Error: "unknown action"}
	}
	return Reply{Type: "ack", Action: cmd.Action, ConversationID: cmd.ConversationID}
}

func (h *Handler) reply(client *Client, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	client.SendMessage(data)
}

func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if token := c.GetHeader("x-access-token"); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
