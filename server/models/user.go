package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/auth"
	"gorm.io/gorm"
)

var allFieldsExceptPassword = []string{"id",
	"email",
	"created_at",
	"updated_at",
}

type User struct {
	BaseModel
	Email    string             `json:"email" validate:"required,email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Password string             `json:"password,omitempty" validate:"required,password" gorm:"column:password_hash;not null"`
	Settings *UserSetting       `json:"settings,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Contacts []EmergencyContact `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Alerts   []Alert            `json:"alerts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CreateUser hashes the user's password and stores the user together with
// its default settings row.
func CreateUser(db *gorm.DB, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	exists, err := emailTaken(db, user.Email)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validationf("This email is already registered")
	}

	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Settings", "Contacts", "Alerts").Create(user).Error; err != nil {
			return err
		}

		user.Settings = DefaultUserSetting(user.ID)
		return tx.Create(user.Settings).Error
	})
}

func FindUserBy(db *gorm.DB, field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindUserWithPassword is only meant for credential checks.
func FindUserWithPassword(db *gorm.DB, email string) (*User, error) {
	user := User{}
	err := db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// DeleteUser removes the user along with everything they own. Children are
// deleted explicitly as well, for drivers that do not enforce foreign keys.
func DeleteUser(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&UserSetting{}, &EmergencyContact{}, &Alert{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&User{}, "id = ?", id).Error
	})
}

func emailTaken(db *gorm.DB, email string) (bool, error) {
	err := db.Select("id").First(&User{}, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
