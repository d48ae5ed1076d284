package repository

import (
	"context"
	"errors"

	"syncboard/internal/model"
	"syncboard/internal/reorder"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Create adds a card at the end of its column (position = current count).
func (r *CardRepository) Create(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Card{}).Where("column_id = ?", card.ColumnID).Count(&count).Error; err != nil {
			return err
		}
		card.Position = int(count)
		return tx.Create(card).Error
	})
}

// GetByID retrieves a card by its ID
func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	var card model.Card
	result := r.db.WithContext(ctx).First(&card, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, result.Error
	}
	return &card, nil
}

// GetByColumnID retrieves a column's cards in display order
func (r *CardRepository) GetByColumnID(ctx context.Context, columnID uuid.UUID) ([]model.Card, error) {
	var cards []model.Card
	result := r.db.WithContext(ctx).
		Where("column_id = ?", columnID).
		Order("position, created_at, id").
		Find(&cards)
	if result.Error != nil {
		return nil, result.Error
	}
	return cards, nil
}

// UpdateFields updates only the provided fields and returns the fresh card.
func (r *CardRepository) UpdateFields(ctx context.Context, id uuid.UUID, title, description *string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&card, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return err
		}
		if title != nil {
			card.Title = *title
		}
		if description != nil {
			card.Description = *description
		}
		return tx.Save(&card).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Move reseats a card at (column, position) with insert-at-position
// semantics: the card is detached, a cross-column move reindexes the
// vacated column, cards at or past the clamped target position shift up
// by one, and both columns end up with contiguous positions.
func (r *CardRepository) Move(ctx context.Context, cardID, toColumnID uuid.UUID, toPosition int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card model.Card
		if err := tx.First(&card, "id = ?", cardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return err
		}

		fromColumnID := card.ColumnID

		// Закрываем дыру в исходной колонке, если карточка уходит в другую
		if fromColumnID != toColumnID {
			source, err := listOthers(tx, fromColumnID, card.ID)
			if err != nil {
				return err
			}
			if err := applyChanges(tx, reorder.Normalize(source)); err != nil {
				return err
			}
		}

		target, err := listOthers(tx, toColumnID, card.ID)
		if err != nil {
			return err
		}
		pos, changes := reorder.Insert(target, toPosition)
		if err := applyChanges(tx, changes); err != nil {
			return err
		}

		card.ColumnID = toColumnID
		card.Position = pos
		return tx.Save(&card).Error
	})
}

// Delete removes a card and reindexes its column to close the gap.
func (r *CardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card model.Card
		if err := tx.First(&card, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return err
		}

		if err := tx.Delete(&model.Card{}, "id = ?", id).Error; err != nil {
			return err
		}

		remaining, err := listOthers(tx, card.ColumnID, card.ID)
		if err != nil {
			return err
		}
		return applyChanges(tx, reorder.Normalize(remaining))
	})
}

// listOthers загружает карточки колонки без перемещаемой, в порядке отображения
func listOthers(tx *gorm.DB, columnID, exceptID uuid.UUID) ([]model.Card, error) {
	var cards []model.Card
	err := tx.
		Where("column_id = ? AND id <> ?", columnID, exceptID).
		Order("position, created_at, id").
		Find(&cards).Error
	return cards, err
}

func applyChanges(tx *gorm.DB, changes []reorder.Change) error {
	for _, ch := range changes {
		if err := tx.Model(&model.Card{}).Where("id = ?", ch.ID).Update("position", ch.Position).Error; err != nil {
			return err
		}
	}
	return nil
}
