package ws

import (
	"encoding/json"

	"syncboard/internal/model"

	"github.com/google/uuid"
)

// Inbound message types
const (
	TypeCardCreate = "card_create"
	TypeCardMove   = "card_move"
	TypeCardUpdate = "card_update"
	TypeCardDelete = "card_delete"
	TypeCardFocus  = "card_focus"
	TypeCardBlur   = "card_blur"
	TypePing       = "ping"
)

// Outbound message types
const (
	TypeCardCreated = "card_created"
	TypeCardMoved   = "card_moved"
	TypeCardUpdated = "card_updated"
	TypeCardDeleted = "card_deleted"
	TypeCardFocused = "card_focused"
	TypeCardBlurred = "card_blurred"
	TypeUserJoined  = "user_joined"
	TypeUserLeft    = "user_left"
	TypePresence    = "presence"
	TypePong        = "pong"
)

// Inbound is the closed set of client messages the router dispatches on.
// Anything outside this set decodes to (nil, false) and is dropped.
type Inbound interface{ isInbound() }

type CardCreate struct {
	ColumnID    uuid.UUID `json:"column_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

type CardMove struct {
	CardID     uuid.UUID `json:"card_id"`
	ToColumnID uuid.UUID `json:"to_column_id"`
	ToPosition int       `json:"to_position"`
}

type CardUpdate struct {
	CardID      uuid.UUID `json:"card_id"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
}

type CardDelete struct {
	CardID uuid.UUID `json:"card_id"`
}

type CardFocus struct {
	CardID uuid.UUID `json:"card_id"`
}

type CardBlur struct {
	CardID uuid.UUID `json:"card_id"`
}

type Ping struct {
	SentAt int64 `json:"sentAt"`
}

func (CardCreate) isInbound() {}
func (CardMove) isInbound()   {}
func (CardUpdate) isInbound() {}
func (CardDelete) isInbound() {}
func (CardFocus) isInbound()  {}
func (CardBlur) isInbound()   {}
func (Ping) isInbound()       {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses one wire frame. The second return value is false for
// unknown types and malformed payloads; the wire protocol has no nack
// channel, so callers drop those silently.
func DecodeInbound(data []byte) (Inbound, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}

	decode := func(dst Inbound) (Inbound, bool) {
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, false
		}
		return dst, true
	}

	switch env.Type {
	case TypeCardCreate:
		return decode(&CardCreate{})
	case TypeCardMove:
		return decode(&CardMove{})
	case TypeCardUpdate:
		return decode(&CardUpdate{})
	case TypeCardDelete:
		return decode(&CardDelete{})
	case TypeCardFocus:
		return decode(&CardFocus{})
	case TypeCardBlur:
		return decode(&CardBlur{})
	case TypePing:
		return decode(&Ping{})
	default:
		return nil, false
	}
}

// User is a presence entry: one user with at least one live connection.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// CardPayload carries the full card so clients apply broadcasts without a
// follow-up fetch.
type CardPayload struct {
	ID          string `json:"id"`
	ColumnID    string `json:"column_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	CreatedBy   string `json:"created_by"`
}

func newCardPayload(card *model.Card) CardPayload {
	return CardPayload{
		ID:          card.ID.String(),
		ColumnID:    card.ColumnID.String(),
		Title:       card.Title,
		Description: card.Description,
		Position:    card.Position,
		CreatedBy:   card.CreatedBy.String(),
	}
}

type cardCreatedEvent struct {
	Type string      `json:"type"`
	Card CardPayload `json:"card"`
	By   string      `json:"by"`
}

type cardMovedEvent struct {
	Type       string `json:"type"`
	CardID     string `json:"card_id"`
	ToColumnID string `json:"to_column_id"`
	ToPosition int    `json:"to_position"`
	By         string `json:"by"`
}

type cardUpdatedEvent struct {
	Type        string `json:"type"`
	CardID      string `json:"card_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	By          string `json:"by"`
}

type cardDeletedEvent struct {
	Type   string `json:"type"`
	CardID string `json:"card_id"`
	By     string `json:"by"`
}

type cardFocusEvent struct {
	Type        string `json:"type"`
	CardID      string `json:"card_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

type userJoinedEvent struct {
	Type string `json:"type"`
	User User   `json:"user"`
}

type userLeftEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type presenceEvent struct {
	Type  string `json:"type"`
	Users []User `json:"users"`
}

type pongEvent struct {
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}
