// Package contacts manages the emergency contacts a user alerts.
package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/validation"
	"github.com/go-playground/validator"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ContactInput is the client payload for creating or replacing a contact.
type ContactInput struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone"`
	Relationship string   `json:"relationship"`
	IsActive     *bool    `json:"is_active"`
	AlertMethods []string `json:"alert_methods" validate:"omitempty,dive,alert_method"`
}

func (input ContactInput) apply(contact *models.EmergencyContact) {
	contact.Name = strings.TrimSpace(input.Name)
	contact.Email = strings.TrimSpace(input.Email)
	contact.Phone = strings.TrimSpace(input.Phone)

	contact.Relationship = strings.TrimSpace(input.Relationship)
	if contact.Relationship == "" {
		contact.Relationship = models.DEFAULT_RELATIONSHIP
	}

	contact.IsActive = input.IsActive == nil || *input.IsActive

	contact.AlertMethods = models.JSONList[string]{models.EMAIL_METHOD}
	if len(input.AlertMethods) > 0 {
		contact.AlertMethods = dedupe(input.AlertMethods)
	}
}

// Store manages a user's emergency contacts.
type Store struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, validate: validation.New()}
}

// List returns the user's contacts, newest first.
func (store *Store) List(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	contacts := []models.EmergencyContact{}

	err := store.db.WithContext(ctx).
		Scopes(models.OwnedBy(userID), models.Newest(models.MAX_CONTACTS_LIMIT)).
		Find(&contacts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "contacts: list")
	}

	return contacts, nil
}

// Active returns the contacts that should receive emergency alerts.
func (store *Store) Active(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	contacts := []models.EmergencyContact{}

	err := store.db.WithContext(ctx).
		Scopes(models.OwnedBy(userID)).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&contacts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "contacts: active")
	}

	return contacts, nil
}

func (store *Store) Create(ctx context.Context, userID string, input ContactInput) (*models.EmergencyContact, error) {
	if err := store.validateInput(input); err != nil {
		return nil, err
	}

	contact := models.EmergencyContact{UserID: userID}
	input.apply(&contact)

	if err := store.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "contacts: create")
	}

	return &contact, nil
}

// Update replaces every editable field of the contact.
func (store *Store) Update(ctx context.Context, userID, contactID string, input ContactInput) (*models.EmergencyContact, error) {
	if err := store.validateInput(input); err != nil {
		return nil, err
	}

	db := store.db.WithContext(ctx)

	contact, err := store.find(db, userID, contactID)
	if err != nil {
		return nil, err
	}

	input.apply(contact)

	err = db.Model(contact).Select("name", "email", "phone", "relationship", "is_active", "alert_methods").
		Updates(contact).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "contacts: update")
	}

	return contact, nil
}

func (store *Store) Delete(ctx context.Context, userID, contactID string) error {
	result := store.db.WithContext(ctx).
		Scopes(models.OwnedBy(userID)).
		Delete(&models.EmergencyContact{}, "id = ?", contactID)
	if result.Error != nil {
		return pkgerrors.Wrap(result.Error, "contacts: delete")
	}

	if result.RowsAffected == 0 {
		return apperr.NotFoundf("Contact not found")
	}

	return nil
}

// find treats a contact owned by someone else the same as a missing one.
func (store *Store) find(db *gorm.DB, userID, contactID string) (*models.EmergencyContact, error) {
	contact := models.EmergencyContact{}

	err := db.Scopes(models.OwnedBy(userID)).First(&contact, "id = ?", contactID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Contact not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "contacts: find")
	}

	return &contact, nil
}

func (store *Store) validateInput(input ContactInput) error {
	if err := store.validate.Struct(input); err != nil {
		return apperr.Validationf("%v", strings.Join(validation.Errors(err), "; "))
	}
	return nil
}

func dedupe(methods []string) models.JSONList[string] {
	seen := map[string]bool{}
	unique := models.JSONList[string]{}

	for _, method := range methods {
		if !seen[method] {
			seen[method] = true
			unique = append(unique, method)
		}
	}

	return unique
}
