// Package alerts keeps the append-only alert log and runs the emergency
// notification workflow.
package alerts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/logger"
	"github.com/Daskott/guardian/server/metrics"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/notify"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	MANUAL_EMERGENCY_TYPE = "Manual Emergency"
	UNKNOWN_LOCATION      = "Location not available"
)

var logg = logger.NewLogger()

// Deliverer notifies one contact over all of its alert methods.
type Deliverer interface {
	Deliver(ctx context.Context, contact models.EmergencyContact, msg notify.Message) models.DeliveryResult
}

// ContactSource returns the contacts to alert in an emergency.
type ContactSource interface {
	Active(ctx context.Context, userID string) ([]models.EmergencyContact, error)
}

type NewAlert struct {
	AlertType        string                  `json:"alert_type"`
	Status           string                  `json:"status"`
	Confidence       int                     `json:"confidence"`
	Description      string                  `json:"description"`
	Location         string                  `json:"location"`
	CameraID         *string                 `json:"camera_id"`
	CameraName       *string                 `json:"camera_name"`
	ActionTaken      string                  `json:"action_taken"`
	ContactsNotified []string                `json:"contacts_notified"`
	AlertResults     []models.DeliveryResult `json:"alert_results"`
}

type EmergencyRequest struct {
	Location   string  `json:"location"`
	AlertType  string  `json:"alert_type"`
	CameraID   *string `json:"camera_id"`
	CameraName *string `json:"camera_name"`
}

type EmergencyResult struct {
	ContactsNotified int                     `json:"contacts_notified"`
	Results          []models.DeliveryResult `json:"results"`
	AlertID          string                  `json:"alert_id"`
}

type Recorder struct {
	db        *gorm.DB
	contacts  ContactSource
	deliverer Deliverer
	metrics   *metrics.Metrics
}

func NewRecorder(db *gorm.DB, contacts ContactSource, deliverer Deliverer, m *metrics.Metrics) *Recorder {
	return &Recorder{db: db, contacts: contacts, deliverer: deliverer, metrics: m}
}

// Create validates and appends one alert, returning its id.
func (recorder *Recorder) Create(ctx context.Context, userID string, input NewAlert) (string, error) {
	if err := validateNewAlert(input); err != nil {
		return "", err
	}

	alert := models.Alert{
		UserID:           userID,
		AlertType:        strings.TrimSpace(input.AlertType),
		Status:           input.Status,
		Confidence:       models.ClampConfidence(input.Confidence),
		Description:      input.Description,
		Location:         input.Location,
		CameraID:         input.CameraID,
		CameraName:       input.CameraName,
		ActionTaken:      input.ActionTaken,
		ContactsNotified: models.JSONList[string]{},
		AlertResults:     models.JSONList[models.DeliveryResult]{},
	}

	if input.ContactsNotified != nil {
		alert.ContactsNotified = input.ContactsNotified
	}
	if input.AlertResults != nil {
		alert.AlertResults = input.AlertResults
	}

	if err := recorder.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return "", pkgerrors.Wrap(err, "alerts: create")
	}

	recorder.metrics.AlertRecorded(alert.Status)

	return alert.ID, nil
}

// List returns the user's alerts, newest first. Limits outside
// (0, MAX_ALERTS_LIMIT] are normalized.
func (recorder *Recorder) List(ctx context.Context, userID string, limit int) ([]models.Alert, error) {
	alerts := []models.Alert{}

	err := recorder.db.WithContext(ctx).
		Scopes(models.OwnedBy(userID), models.Newest(normalizeLimit(limit))).
		Find(&alerts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "alerts: list")
	}

	return alerts, nil
}

// SendEmergency notifies every active contact and records a single danger
// alert summarizing the outcome. It fails without writing anything when the
// user has no active contacts. Cancelling ctx does not stop a send in progress.
func (recorder *Recorder) SendEmergency(ctx context.Context, userID string, request EmergencyRequest) (*EmergencyResult, error) {
	ctx = context.WithoutCancel(ctx)

	contacts, err := recorder.contacts.Active(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		return nil, apperr.NoActiveContactsf("No active emergency contacts found")
	}

	alertType := strings.TrimSpace(request.AlertType)
	if alertType == "" {
		alertType = MANUAL_EMERGENCY_TYPE
	}

	location := strings.TrimSpace(request.Location)
	if location == "" {
		location = UNKNOWN_LOCATION
	}

	msg := emergencyMessage(alertType, location, request.CameraName)
	results := recorder.deliverAll(ctx, contacts, msg)

	names := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		names = append(names, contact.Name)
	}

	alertID, err := recorder.Create(ctx, userID, NewAlert{
		AlertType:        alertType,
		Status:           models.DANGER_STATUS,
		Confidence:       100,
		Description:      fmt.Sprintf("Emergency alert sent to %v contact(s)", len(contacts)),
		Location:         location,
		CameraID:         request.CameraID,
		CameraName:       request.CameraName,
		ActionTaken:      fmt.Sprintf("Alerted %v emergency contact(s)", len(contacts)),
		ContactsNotified: names,
		AlertResults:     results,
	})
	if err != nil {
		logg.Errorf("emergency for user %v delivered but not recorded: %v", userID, err)
		return nil, err
	}

	return &EmergencyResult{
		ContactsNotified: len(contacts),
		Results:          results,
		AlertID:          alertID,
	}, nil
}

// deliverAll notifies contacts concurrently; results keep the contacts' order.
func (recorder *Recorder) deliverAll(ctx context.Context, contacts []models.EmergencyContact, msg notify.Message) []models.DeliveryResult {
	results := make([]models.DeliveryResult, len(contacts))

	var wg sync.WaitGroup
	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact models.EmergencyContact) {
			defer wg.Done()
			results[i] = recorder.deliverer.Deliver(ctx, contact, msg)
		}(i, contact)
	}
	wg.Wait()

	return results
}

// ParseLimit reads a limit query value, falling back to the default for
// anything that is not an integer.
func ParseLimit(value string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return models.DEFAULT_ALERTS_LIMIT
	}
	return normalizeLimit(limit)
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return models.DEFAULT_ALERTS_LIMIT
	case limit > models.MAX_ALERTS_LIMIT:
		return models.MAX_ALERTS_LIMIT
	}
	return limit
}

func validateNewAlert(input NewAlert) error {
	required := []struct {
		field string
		value string
	}{
		{"alert_type", input.AlertType},
		{"status", input.Status},
		{"description", input.Description},
		{"location", input.Location},
		{"action_taken", input.ActionTaken},
	}

	missing := []string{}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}

	if len(missing) > 0 {
		return apperr.Validationf("Missing required fields: %v", strings.Join(missing, ", "))
	}

	if !models.AlertStatusNameMap[input.Status] {
		return apperr.Validationf("status must be one of safe, warning, danger")
	}

	return nil
}

func emergencyMessage(alertType, location string, cameraName *string) notify.Message {
	body := fmt.Sprintf("Guardian raised an emergency alert (%v). Location: %v.", alertType, location)
	if cameraName != nil && *cameraName != "" {
		body = fmt.Sprintf("%v Camera: %v.", body, *cameraName)
	}

	return notify.Message{
		Subject: "Emergency alert from Guardian",
		Body:    body + " Please check on them immediately.",
	}
}
