package ws

import (
	"context"
	"net/http"
	"time"

	"syncboard/internal/auth"
	"syncboard/internal/model"
	"syncboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// UserDirectory resolves a verified token subject to a user identity.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// MembershipChecker answers whether a user may attach to a room.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

var (
	_ UserDirectory     = (*repository.UserRepository)(nil)
	_ MembershipChecker = (*repository.MemberRepository)(nil)
)

// Handler serves the room websocket endpoint.
type Handler struct {
	hub      *Hub
	users    UserDirectory
	members  MembershipChecker
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, users UserDirectory, members MembershipChecker) *Handler {
	return &Handler{
		hub:     hub,
		users:   users,
		members: members,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve обрабатывает GET /ws/:room_id?token=...
// Жизненный цикл: апгрейд → проверка токена (4001) → проверка членства
// (4003) → регистрация и presence → последовательный цикл чтения.
func (h *Handler) Serve(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ctx := c.Request.Context()

	user, ok := h.authenticate(ctx, ws, c.Query("token"))
	if !ok {
		return
	}

	member, err := h.members.IsMember(ctx, roomID, user.ID)
	if err != nil || !member {
		closeWith(ws, CloseForbidden, "not a room member")
		return
	}

	conn := NewConn(ws, roomID, user.ID, user.DisplayName)
	conn.Start()

	h.hub.HandleJoin(conn)
	defer func() {
		conn.Close(websocket.CloseNormalClosure, "")
		h.hub.HandleDisconnect(conn)
	}()

	conn.readLoop(func(data []byte) {
		h.hub.HandleMessage(ctx, conn, data)
	})
}

// authenticate проверяет токен и возвращает пользователя; при неудаче
// закрывает соединение кодом 4001 без создания записи в реестре
func (h *Handler) authenticate(ctx context.Context, ws Wire, token string) (*model.User, bool) {
	if token == "" {
		closeWith(ws, CloseUnauthenticated, "missing token")
		return nil, false
	}

	userIDStr, err := auth.ParseToken(token)
	if err != nil {
		closeWith(ws, CloseUnauthenticated, "invalid token")
		return nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		closeWith(ws, CloseUnauthenticated, "invalid token")
		return nil, false
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		closeWith(ws, CloseUnauthenticated, "unknown user")
		return nil, false
	}

	return user, true
}

func closeWith(ws Wire, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = ws.Close()
}
