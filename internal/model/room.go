package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name      string    `gorm:"not null"`
	RoomCode  string    `gorm:"size:8;uniqueIndex;not null"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Creator User     `gorm:"foreignKey:CreatedBy"`
	Columns []Column `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}
