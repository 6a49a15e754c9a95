package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	Email        string     `gorm:"column:email;type:varchar(255);uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
