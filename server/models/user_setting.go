package models

import (
	"github.com/Daskott/guardian/server/quiethours"
)

const (
	DEFAULT_DETECTION_SENSITIVITY = "high"
	DEFAULT_CONFIDENCE_THRESHOLD  = 75
	DEFAULT_VIDEO_QUALITY         = "hd"
	DEFAULT_FRAME_RATE            = 30
	DEFAULT_ALERT_VOLUME          = 85
	DEFAULT_QUIET_HOURS_START     = "22:00"
	DEFAULT_QUIET_HOURS_END       = "08:00"
)

type UserSetting struct {
	BaseModel
	UserID               string           `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	DetectionSensitivity string           `json:"detection_sensitivity" gorm:"type:varchar(50);not null"`
	ConfidenceThreshold  int              `json:"confidence_threshold" gorm:"not null"`
	RealtimeProcessing   bool             `json:"realtime_processing" gorm:"not null"`
	VideoQuality         string           `json:"video_quality" gorm:"type:varchar(50);not null"`
	FrameRate            int              `json:"frame_rate" gorm:"not null"`
	AutoStartDetection   bool             `json:"auto_start_detection" gorm:"not null"`
	AudioAlerts          bool             `json:"audio_alerts" gorm:"not null"`
	AlertVolume          int              `json:"alert_volume" gorm:"not null"`
	AutoNotifyContacts   bool             `json:"auto_notify_contacts" gorm:"not null"`
	QuietHoursEnabled    bool             `json:"quiet_hours_enabled" gorm:"not null"`
	QuietHoursStart      string           `json:"quiet_hours_start" gorm:"type:varchar(10);not null"`
	QuietHoursEnd        string           `json:"quiet_hours_end" gorm:"type:varchar(10);not null"`
	QuietHoursDays       JSONList[string] `json:"quiet_hours_days" gorm:"type:text"`
}

// DefaultUserSetting returns the settings a user starts out with.
// Defaults live here rather than in column defaults so that false booleans
// are never replaced by a database default on insert.
func DefaultUserSetting(userID string) *UserSetting {
	return &UserSetting{
		UserID:               userID,
		DetectionSensitivity: DEFAULT_DETECTION_SENSITIVITY,
		ConfidenceThreshold:  DEFAULT_CONFIDENCE_THRESHOLD,
		RealtimeProcessing:   true,
		VideoQuality:         DEFAULT_VIDEO_QUALITY,
		FrameRate:            DEFAULT_FRAME_RATE,
		AutoStartDetection:   false,
		AudioAlerts:          true,
		AlertVolume:          DEFAULT_ALERT_VOLUME,
		AutoNotifyContacts:   true,
		QuietHoursEnabled:    false,
		QuietHoursStart:      DEFAULT_QUIET_HOURS_START,
		QuietHoursEnd:        DEFAULT_QUIET_HOURS_END,
		QuietHoursDays:       append(JSONList[string]{}, quiethours.Weekdays...),
	}
}

func (setting *UserSetting) QuietWindow() quiethours.Window {
	return quiethours.Window{
		Enabled: setting.QuietHoursEnabled,
		Start:   setting.QuietHoursStart,
		End:     setting.QuietHoursEnd,
		Days:    setting.QuietHoursDays,
	}
}
