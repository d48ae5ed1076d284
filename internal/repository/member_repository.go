package repository

import (
	"context"
	"errors"

	"syncboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Add добавляет пользователя в комнату. Повторное добавление — no-op.
func (r *MemberRepository) Add(ctx context.Context, roomID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.RoomMember
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&model.RoomMember{RoomID: roomID, UserID: userID}).Error
	})
}

// IsMember проверяет членство пользователя в комнате
func (r *MemberRepository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var member model.RoomMember
	err := r.db.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
