// Package settings persists the per-user detection and notification settings.
package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/quiethours"
	"github.com/Daskott/guardian/server/validation"
	"github.com/go-playground/validator"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Patch lists the settings a client may change. Nil fields are left untouched.
type Patch struct {
	DetectionSensitivity *string  `json:"detection_sensitivity" validate:"omitempty,oneof=low medium high"`
	ConfidenceThreshold  *int     `json:"confidence_threshold" validate:"omitempty,min=0,max=100"`
	RealtimeProcessing   *bool    `json:"realtime_processing"`
	VideoQuality         *string  `json:"video_quality" validate:"omitempty,oneof=sd hd fhd"`
	FrameRate            *int     `json:"frame_rate" validate:"omitempty,min=1,max=60"`
	AutoStartDetection   *bool    `json:"auto_start_detection"`
	AudioAlerts          *bool    `json:"audio_alerts"`
	AlertVolume          *int     `json:"alert_volume" validate:"omitempty,min=0,max=100"`
	AutoNotifyContacts   *bool    `json:"auto_notify_contacts"`
	QuietHoursEnabled    *bool    `json:"quiet_hours_enabled"`
	QuietHoursStart      *string  `json:"quiet_hours_start" validate:"omitempty,time_stamp"`
	QuietHoursEnd        *string  `json:"quiet_hours_end" validate:"omitempty,time_stamp"`
	QuietHoursDays       []string `json:"quiet_hours_days" validate:"omitempty,dive,weekday"`
}

// IsEmpty reports whether no field is set.
func (patch Patch) IsEmpty() bool {
	return len(patch.columns()) == 0
}

// columns maps every set field to its column value.
func (patch Patch) columns() map[string]interface{} {
	columns := map[string]interface{}{}

	setString := func(column string, value *string) {
		if value != nil {
			columns[column] = *value
		}
	}
	setInt := func(column string, value *int) {
		if value != nil {
			columns[column] = *value
		}
	}
	setBool := func(column string, value *bool) {
		if value != nil {
			columns[column] = *value
		}
	}

	setString("detection_sensitivity", patch.DetectionSensitivity)
	setInt("confidence_threshold", patch.ConfidenceThreshold)
	setBool("realtime_processing", patch.RealtimeProcessing)
	setString("video_quality", patch.VideoQuality)
	setInt("frame_rate", patch.FrameRate)
	setBool("auto_start_detection", patch.AutoStartDetection)
	setBool("audio_alerts", patch.AudioAlerts)
	setInt("alert_volume", patch.AlertVolume)
	setBool("auto_notify_contacts", patch.AutoNotifyContacts)
	setBool("quiet_hours_enabled", patch.QuietHoursEnabled)
	setString("quiet_hours_start", patch.QuietHoursStart)
	setString("quiet_hours_end", patch.QuietHoursEnd)

	if patch.QuietHoursDays != nil {
		columns["quiet_hours_days"] = models.JSONList[string](quiethours.SortDays(patch.QuietHoursDays))
	}

	return columns
}

// Store reads and patches the per-user settings row.
type Store struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, validate: validation.New()}
}

// Get returns the user's settings, creating the default row on first access.
// Concurrent first calls race on the unique user_id index; the losers' inserts
// are ignored and everyone reads the single surviving row.
func (store *Store) Get(ctx context.Context, userID string) (*models.UserSetting, error) {
	db := store.db.WithContext(ctx)

	setting, err := store.find(db, userID)
	if err == nil {
		return setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(err, "settings: get")
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(models.DefaultUserSetting(userID)).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "settings: create defaults")
	}

	setting, err = store.find(db, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "settings: get")
	}

	return setting, nil
}

// Update applies the set fields of patch and returns the stored row.
func (store *Store) Update(ctx context.Context, userID string, patch Patch) (*models.UserSetting, error) {
	if patch.IsEmpty() {
		return nil, apperr.Validationf("No valid fields to update")
	}

	if err := store.validate.Struct(patch); err != nil {
		return nil, apperr.Validationf("%v", strings.Join(validation.Errors(err), "; "))
	}

	db := store.db.WithContext(ctx)

	setting, err := store.find(db, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Settings not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "settings: update")
	}

	columns := patch.columns()
	columns["updated_at"] = time.Now()

	if err = db.Model(setting).Updates(columns).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "settings: update")
	}

	setting, err = store.find(db, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "settings: update")
	}

	return setting, nil
}

func (store *Store) find(db *gorm.DB, userID string) (*models.UserSetting, error) {
	setting := models.UserSetting{}
	if err := db.First(&setting, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}
