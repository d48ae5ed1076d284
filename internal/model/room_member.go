package model

import (
	"time"

	"github.com/google/uuid"
)

// RoomMember связывает пользователя с комнатой. Пара (room_id, user_id) уникальна.
type RoomMember struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	RoomID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_room_user"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_room_user"`
	JoinedAt time.Time `gorm:"autoCreateTime"`

	Room Room `gorm:"foreignKey:RoomID"`
	User User `gorm:"foreignKey:UserID"`
}
