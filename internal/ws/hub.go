package ws

import (
	"context"
	"strings"

	"syncboard/internal/model"

	"github.com/google/uuid"
)

// Hub routes inbound room messages to their handlers and runs the presence
// protocol. Mutating handlers go through the room's single-writer executor;
// a store failure drops the message without a broadcast and the connection
// keeps processing subsequent messages.
type Hub struct {
	registry *Registry
	store    CardStore
	columns  ColumnStore
}

func NewHub(registry *Registry, store CardStore, columns ColumnStore) *Hub {
	return &Hub{registry: registry, store: store, columns: columns}
}

// columnInRoom reports whether the column exists and belongs to the room.
func (h *Hub) columnInRoom(ctx context.Context, columnID, roomID uuid.UUID) bool {
	col, err := h.columns.GetByID(ctx, columnID)
	return err == nil && col != nil && col.RoomID == roomID
}

func (h *Hub) Registry() *Registry { return h.registry }

// HandleJoin registers the connection, announces the new user to the rest
// of the room and sends the registered-state presence snapshot privately.
func (h *Hub) HandleJoin(conn *Conn) {
	h.registry.Register(conn)

	h.registry.BroadcastExcept(conn.roomID, conn, userJoinedEvent{
		Type: TypeUserJoined,
		User: User{ID: conn.userID.String(), DisplayName: conn.displayName},
	})
	h.registry.SendDirect(conn, presenceEvent{
		Type:  TypePresence,
		Users: h.registry.Presence(conn.roomID),
	})
}

// HandleDisconnect unregisters the connection. user_left is suppressed
// while any other connection for the same user remains, which covers both
// multi-tab close and the eviction race where the replacement connection is
// already registered.
func (h *Hub) HandleDisconnect(conn *Conn) {
	h.registry.Unregister(conn)

	if !h.registry.HasUser(conn.roomID, conn.userID) {
		h.registry.Broadcast(conn.roomID, userLeftEvent{
			Type:   TypeUserLeft,
			UserID: conn.userID.String(),
		})
	}
}

// HandleMessage routes one inbound frame. Unknown types and malformed
// payloads are dropped silently: no reply, no broadcast.
func (h *Hub) HandleMessage(ctx context.Context, conn *Conn, data []byte) {
	msg, ok := DecodeInbound(data)
	if !ok {
		return
	}

	switch m := msg.(type) {
	case *CardCreate:
		h.handleCardCreate(ctx, conn, m)
	case *CardMove:
		h.handleCardMove(ctx, conn, m)
	case *CardUpdate:
		h.handleCardUpdate(ctx, conn, m)
	case *CardDelete:
		h.handleCardDelete(ctx, conn, m)
	case *CardFocus:
		h.handleCardFocus(conn, m)
	case *CardBlur:
		h.handleCardBlur(conn, m)
	case *Ping:
		h.registry.SendDirect(conn, pongEvent{Type: TypePong, SentAt: m.SentAt})
	}
}

func (h *Hub) handleCardCreate(ctx context.Context, conn *Conn, m *CardCreate) {
	title := strings.TrimSpace(m.Title)
	if m.ColumnID == uuid.Nil || title == "" {
		return
	}
	if !h.columnInRoom(ctx, m.ColumnID, conn.roomID) {
		return
	}

	card := &model.Card{
		ID:          uuid.New(),
		ColumnID:    m.ColumnID,
		Title:       title,
		Description: m.Description,
		CreatedBy:   conn.userID,
	}

	err := h.registry.Do(ctx, conn.roomID, func() error {
		return h.store.Create(ctx, card)
	})
	if err != nil {
		return
	}

	h.registry.Broadcast(conn.roomID, cardCreatedEvent{
		Type: TypeCardCreated,
		Card: newCardPayload(card),
		By:   conn.userID.String(),
	})
}

func (h *Hub) handleCardMove(ctx context.Context, conn *Conn, m *CardMove) {
	if m.CardID == uuid.Nil || m.ToColumnID == uuid.Nil {
		return
	}
	if !h.columnInRoom(ctx, m.ToColumnID, conn.roomID) {
		return
	}

	err := h.registry.Do(ctx, conn.roomID, func() error {
		return h.store.Move(ctx, m.CardID, m.ToColumnID, m.ToPosition)
	})
	if err != nil {
		return
	}

	// Echoes the requested column/position; the store may have clamped
	h.registry.Broadcast(conn.roomID, cardMovedEvent{
		Type:       TypeCardMoved,
		CardID:     m.CardID.String(),
		ToColumnID: m.ToColumnID.String(),
		ToPosition: m.ToPosition,
		By:         conn.userID.String(),
	})
}

func (h *Hub) handleCardUpdate(ctx context.Context, conn *Conn, m *CardUpdate) {
	if m.CardID == uuid.Nil {
		return
	}

	var card *model.Card
	err := h.registry.Do(ctx, conn.roomID, func() error {
		var err error
		card, err = h.store.UpdateFields(ctx, m.CardID, m.Title, m.Description)
		return err
	})
	if err != nil {
		return
	}

	h.registry.Broadcast(conn.roomID, cardUpdatedEvent{
		Type:        TypeCardUpdated,
		CardID:      m.CardID.String(),
		Title:       card.Title,
		Description: card.Description,
		By:          conn.userID.String(),
	})
}

func (h *Hub) handleCardDelete(ctx context.Context, conn *Conn, m *CardDelete) {
	if m.CardID == uuid.Nil {
		return
	}

	err := h.registry.Do(ctx, conn.roomID, func() error {
		return h.store.Delete(ctx, m.CardID)
	})
	if err != nil {
		return
	}

	h.registry.Broadcast(conn.roomID, cardDeletedEvent{
		Type:   TypeCardDeleted,
		CardID: m.CardID.String(),
		By:     conn.userID.String(),
	})
}

// Focus/blur are pure relay: never touch the store, no ordering guarantee
// relative to persisted mutations.

func (h *Hub) handleCardFocus(conn *Conn, m *CardFocus) {
	if m.CardID == uuid.Nil {
		return
	}
	h.registry.BroadcastExcept(conn.roomID, conn, cardFocusEvent{
		Type:        TypeCardFocused,
		CardID:      m.CardID.String(),
		UserID:      conn.userID.String(),
		DisplayName: conn.displayName,
	})
}

func (h *Hub) handleCardBlur(conn *Conn, m *CardBlur) {
	if m.CardID == uuid.Nil {
		return
	}
	h.registry.BroadcastExcept(conn.roomID, conn, cardFocusEvent{
		Type:   TypeCardBlurred,
		CardID: m.CardID.String(),
		UserID: conn.userID.String(),
	})
}
