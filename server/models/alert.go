package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SAFE_STATUS    = "safe"
	WARNING_STATUS = "warning"
	DANGER_STATUS  = "danger"
)

var AlertStatusNameMap = map[string]bool{
	SAFE_STATUS:    true,
	WARNING_STATUS: true,
	DANGER_STATUS:  true,
}

// DeliveryResult records what happened when one contact was notified.
type DeliveryResult struct {
	Contact string   `json:"contact"`
	Methods []string `json:"methods"`
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
}

func NewDeliveryResult(contactName string) DeliveryResult {
	return DeliveryResult{
		Contact: contactName,
		Methods: []string{},
		Success: []string{},
		Failed:  []string{},
	}
}

// Alert rows are append-only, hence no UpdatedAt.
type Alert struct {
	ID               string                   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID           string                   `json:"-" gorm:"type:varchar(36);not null;index"`
	AlertType        string                   `json:"alert_type" gorm:"type:varchar(100);not null"`
	Status           string                   `json:"status" gorm:"type:varchar(10);not null"`
	Confidence       int                      `json:"confidence" gorm:"not null"`
	Description      string                   `json:"description" gorm:"type:text;not null"`
	Location         string                   `json:"location" gorm:"type:varchar(255);not null"`
	CameraID         *string                  `json:"camera_id" gorm:"type:varchar(100)"`
	CameraName       *string                  `json:"camera_name" gorm:"type:varchar(255)"`
	ActionTaken      string                   `json:"action_taken" gorm:"type:text;not null"`
	ContactsNotified JSONList[string]         `json:"contacts_notified" gorm:"type:text"`
	AlertResults     JSONList[DeliveryResult] `json:"alert_results" gorm:"type:text"`
	CreatedAt        time.Time                `json:"created_at" gorm:"index"`
}

func (alert *Alert) BeforeCreate(tx *gorm.DB) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	return nil
}

// ClampConfidence bounds a confidence score to [0, 100].
func ClampConfidence(confidence int) int {
	switch {
	case confidence < 0:
		return 0
	case confidence > 100:
		return 100
	}
	return confidence
}
