package repository

import (
	"context"
	"errors"

	"syncboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Колонки, создаваемые для каждой новой комнаты
var defaultColumns = []string{"To Do", "In Progress", "Done"}

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create создает комнату вместе с колонками по умолчанию и членством создателя
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}

		for i, title := range defaultColumns {
			col := model.Column{RoomID: room.ID, Title: title, Position: i}
			if err := tx.Create(&col).Error; err != nil {
				return err
			}
		}

		membership := model.RoomMember{RoomID: room.ID, UserID: room.CreatedBy}
		return tx.Create(&membership).Error
	})
}

func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetDetail возвращает комнату с колонками и карточками, отсортированными по позиции
func (r *RoomRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Preload("Columns", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Preload("Columns.Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, created_at, id")
		}).
		First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).Where("room_code = ?", code).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// CodeExists проверяет занятость кода комнаты
func (r *RoomRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Room{}).Where("room_code = ?", code).Count(&count).Error
	return count > 0, err
}

// ListForUser возвращает комнаты, в которых пользователь состоит
func (r *RoomRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Order("rooms.created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Room{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
