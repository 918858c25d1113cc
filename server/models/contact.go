package models

const (
	EMAIL_METHOD = "email"
	SMS_METHOD   = "sms"
	PUSH_METHOD  = "push"
	CALL_METHOD  = "call"

	DEFAULT_RELATIONSHIP = "Friend"
)

var AlertMethodNameMap = map[string]bool{
	EMAIL_METHOD: true,
	SMS_METHOD:   true,
	PUSH_METHOD:  true,
	CALL_METHOD:  true,
}

type EmergencyContact struct {
	BaseModel
	UserID       string           `json:"-" gorm:"type:varchar(36);not null;index"`
	Name         string           `json:"name" gorm:"type:varchar(255);not null"`
	Email        string           `json:"email" gorm:"type:varchar(255);not null"`
	Phone        string           `json:"phone" gorm:"type:varchar(50);not null"`
	Relationship string           `json:"relationship" gorm:"type:varchar(100);not null"`
	IsActive     bool             `json:"is_active" gorm:"not null"`
	AlertMethods JSONList[string] `json:"alert_methods" gorm:"type:text;not null"`
}

// Methods returns the contact's alert methods, falling back to email.
func (contact *EmergencyContact) Methods() []string {
	if len(contact.AlertMethods) == 0 {
		return []string{EMAIL_METHOD}
	}
	return contact.AlertMethods
}
