// Package detection turns a camera frame into alerts and, when allowed,
// emergency notifications.
package detection

import (
	"context"
	"time"

	"github.com/Daskott/guardian/server/alerts"
	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/logger"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/vision"
)

const (
	HARASSMENT_ALERT_TYPE = "harassment"
	AUTO_ACTION_TAKEN     = "Alert triggered automatically by AI detection"
)

var logg = logger.NewLogger()

type Analyzer interface {
	Analyze(ctx context.Context, frame vision.Frame) vision.Result
}

type SettingsSource interface {
	Get(ctx context.Context, userID string) (*models.UserSetting, error)
}

type AlertSink interface {
	Create(ctx context.Context, userID string, input alerts.NewAlert) (string, error)
	SendEmergency(ctx context.Context, userID string, request alerts.EmergencyRequest) (*alerts.EmergencyResult, error)
}

type Outcome struct {
	Analysis         vision.Result           `json:"analysis"`
	AlertID          string                  `json:"alert_id,omitempty"`
	AlertRecorded    bool                    `json:"alert_recorded"`
	ContactsNotified bool                    `json:"contacts_notified"`
	QuietHours       bool                    `json:"quiet_hours"`
	Emergency        *alerts.EmergencyResult `json:"emergency,omitempty"`
}

type Pipeline struct {
	analyzer Analyzer
	settings SettingsSource
	alerts   AlertSink
	location *time.Location
	now      func() time.Time
}

// NewPipeline evaluates quiet hours in loc; nil means UTC.
func NewPipeline(analyzer Analyzer, settings SettingsSource, sink AlertSink, loc *time.Location) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}

	return &Pipeline{
		analyzer: analyzer,
		settings: settings,
		alerts:   sink,
		location: loc,
		now:      time.Now,
	}
}

// Process analyzes frame for userID. A danger verdict at or above the user's
// confidence threshold is recorded, and contacts are notified unless
// auto-notify is off or quiet hours are in effect. Having no active contacts
// is not an error here.
func (pipeline *Pipeline) Process(ctx context.Context, userID string, frame vision.Frame, location string) (*Outcome, error) {
	outcome := &Outcome{Analysis: pipeline.analyzer.Analyze(ctx, frame)}

	if outcome.Analysis.Status != models.DANGER_STATUS {
		return outcome, nil
	}

	// a client disconnecting after a danger verdict must not cut the alert short
	ctx = context.WithoutCancel(ctx)

	setting, err := pipeline.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if outcome.Analysis.Confidence < setting.ConfidenceThreshold {
		return outcome, nil
	}

	outcome.AlertID, err = pipeline.alerts.Create(ctx, userID, alerts.NewAlert{
		AlertType:   HARASSMENT_ALERT_TYPE,
		Status:      models.DANGER_STATUS,
		Confidence:  outcome.Analysis.Confidence,
		Description: describe(outcome.Analysis),
		Location:    orUnknown(location),
		CameraID:    frame.CameraID,
		CameraName:  frame.CameraName,
		ActionTaken: AUTO_ACTION_TAKEN,
	})
	if err != nil {
		return nil, err
	}
	outcome.AlertRecorded = true

	if !setting.AutoNotifyContacts {
		return outcome, nil
	}

	suppressed, err := setting.QuietWindow().Suppressed(pipeline.now().In(pipeline.location))
	if err != nil {
		logg.Warnf("ignoring invalid quiet hours for user %v: %v", userID, err)
	}
	if suppressed {
		outcome.QuietHours = true
		return outcome, nil
	}

	outcome.Emergency, err = pipeline.alerts.SendEmergency(ctx, userID, alerts.EmergencyRequest{
		Location:   orUnknown(location),
		AlertType:  HARASSMENT_ALERT_TYPE,
		CameraID:   frame.CameraID,
		CameraName: frame.CameraName,
	})
	if apperr.Is(err, apperr.NoActiveContacts) {
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}

	outcome.ContactsNotified = true
	return outcome, nil
}

func describe(result vision.Result) string {
	if result.Description != "" {
		return result.Description
	}
	return "Threat detected"
}

func orUnknown(location string) string {
	if location == "" {
		return alerts.UNKNOWN_LOCATION
	}
	return location
}
