package ws

import (
	"context"

	"syncboard/internal/model"
	"syncboard/internal/repository"

	"github.com/google/uuid"
)

// CardStore is the persistence surface the realtime handlers mutate. Every
// method is one transaction: committed on success, rolled back on failure.
type CardStore interface {
	Create(ctx context.Context, card *model.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Card, error)
	UpdateFields(ctx context.Context, id uuid.UUID, title, description *string) (*model.Card, error)
	Move(ctx context.Context, cardID, toColumnID uuid.UUID, toPosition int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ColumnStore resolves columns so handlers can check a target column
// belongs to the connection's room.
type ColumnStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Column, error)
}

var (
	_ CardStore   = (*repository.CardRepository)(nil)
	_ ColumnStore = (*repository.ColumnRepository)(nil)
)
