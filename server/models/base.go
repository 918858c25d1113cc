package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DEFAULT_ALERTS_LIMIT = 100
	MAX_ALERTS_LIMIT     = 1000
	MAX_CONTACTS_LIMIT   = 500
)

type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (model *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	return nil
}

// ---------------------------------------------------------------------------------//
// Scopes
// --------------------------------------------------------------------------------//

// Newest orders rows by creation time, latest first, and caps the result size.
func Newest(limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at desc").Limit(limit)
	}
}

// OwnedBy restricts a query to rows belonging to userID.
func OwnedBy(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
