package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/contacts"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeDeliverer fails every method listed in failing.
type fakeDeliverer struct {
	mu      sync.Mutex
	failing map[string]bool
	seen    []string
}

func (d *fakeDeliverer) Deliver(ctx context.Context, contact models.EmergencyContact, msg notify.Message) models.DeliveryResult {
	d.mu.Lock()
	d.seen = append(d.seen, contact.Name)
	d.mu.Unlock()

	result := models.NewDeliveryResult(contact.Name)
	for _, method := range contact.Methods() {
		result.Methods = append(result.Methods, method)
		if d.failing[method] {
			result.Failed = append(result.Failed, method)
		} else {
			result.Success = append(result.Success, method)
		}
	}
	return result
}

func setup(t *testing.T) (*gorm.DB, *Recorder, *contacts.Store, *fakeDeliverer) {
	db := models.InitializeTestDb(t)
	contactStore := contacts.NewStore(db)
	deliverer := &fakeDeliverer{failing: map[string]bool{}}

	return db, NewRecorder(db, contactStore, deliverer, nil), contactStore, deliverer
}

func countAlerts(t *testing.T, db *gorm.DB, userID string) int64 {
	var count int64
	require.NoError(t, db.Model(&models.Alert{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func TestCreateAndList(t *testing.T) {
	db, recorder, _, _ := setup(t)
	ctx := context.Background()
	user := models.CreateTestUser(t, db, "carol@avengers.com")
	camera := "Front door"

	id, err := recorder.Create(ctx, user.ID, NewAlert{
		AlertType:   "harassment",
		Status:      models.WARNING_STATUS,
		Confidence:  140,
		Description: "raised voices",
		Location:    "lobby",
		CameraName:  &camera,
		ActionTaken: "logged",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	time.Sleep(5 * time.Millisecond)
	secondID, err := recorder.Create(ctx, user.ID, NewAlert{
		AlertType: "harassment", Status: models.SAFE_STATUS, Confidence: -3,
		Description: "all clear", Location: "lobby", ActionTaken: "none",
	})
	require.NoError(t, err)

	alerts, err := recorder.List(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, secondID, alerts[0].ID, "newest alert should be first")
	assert.Equal(t, 0, alerts[0].Confidence)
	assert.Equal(t, 100, alerts[1].Confidence)
	assert.Equal(t, "Front door", *alerts[1].CameraName)
	assert.Nil(t, alerts[1].CameraID)
	assert.Equal(t, models.JSONList[string]{}, alerts[1].ContactsNotified)
	assert.Equal(t, models.JSONList[models.DeliveryResult]{}, alerts[1].AlertResults)

	limited, err := recorder.List(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	other := models.CreateTestUser(t, db, "monica@avengers.com")
	none, err := recorder.List(ctx, other.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateValidation(t *testing.T) {
	db, recorder, _, _ := setup(t)
	user := models.CreateTestUser(t, db, "carol@avengers.com")

	cases := []struct {
		description string
		input       NewAlert
	}{
		{"missing description", NewAlert{AlertType: "t", Status: "danger", Location: "l", ActionTaken: "a"}},
		{"missing status", NewAlert{AlertType: "t", Description: "d", Location: "l", ActionTaken: "a"}},
		{"unknown status", NewAlert{AlertType: "t", Status: "panic", Description: "d", Location: "l", ActionTaken: "a"}},
		{"blank alert type", NewAlert{AlertType: "  ", Status: "danger", Description: "d", Location: "l", ActionTaken: "a"}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			_, err := recorder.Create(context.Background(), user.ID, c.input)
			assert.True(t, apperr.Is(err, apperr.Validation))
		})
	}

	assert.Equal(t, int64(0), countAlerts(t, db, user.ID))
}

func TestLimits(t *testing.T) {
	cases := []struct {
		raw      string
		expected int
	}{
		{"", 100},
		{"abc", 100},
		{"0", 100},
		{"-5", 100},
		{"1", 1},
		{"250", 250},
		{"1000", 1000},
		{"5000", 1000},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, ParseLimit(c.raw), "limit %q", c.raw)
	}
}

func TestSendEmergencyWithoutActiveContacts(t *testing.T) {
	db, recorder, contactStore, deliverer := setup(t)
	ctx := context.Background()
	user := models.CreateTestUser(t, db, "thor@asgard.com")

	inactive := false
	_, err := contactStore.Create(ctx, user.ID, contactInput("Loki", &inactive, nil))
	require.NoError(t, err)

	_, err = recorder.SendEmergency(ctx, user.ID, EmergencyRequest{})
	assert.True(t, apperr.Is(err, apperr.NoActiveContacts))
	assert.Equal(t, int64(0), countAlerts(t, db, user.ID))
	assert.Empty(t, deliverer.seen)
}

func TestSendEmergencyRecordsOneSummary(t *testing.T) {
	db, recorder, contactStore, deliverer := setup(t)
	ctx := context.Background()
	user := models.CreateTestUser(t, db, "thor@asgard.com")
	deliverer.failing[models.SMS_METHOD] = true

	_, err := contactStore.Create(ctx, user.ID, contactInput("Heimdall", nil, []string{"email", "sms"}))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = contactStore.Create(ctx, user.ID, contactInput("Valkyrie", nil, nil))
	require.NoError(t, err)

	result, err := recorder.SendEmergency(ctx, user.ID, EmergencyRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ContactsNotified)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Heimdall", result.Results[0].Contact)
	assert.Equal(t, []string{"email"}, result.Results[0].Success)
	assert.Equal(t, []string{"sms"}, result.Results[0].Failed)
	assert.Equal(t, []string{"email"}, result.Results[1].Success)

	alerts, err := recorder.List(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, result.AlertID, alert.ID)
	assert.Equal(t, models.DANGER_STATUS, alert.Status)
	assert.Equal(t, 100, alert.Confidence)
	assert.Equal(t, MANUAL_EMERGENCY_TYPE, alert.AlertType)
	assert.Equal(t, UNKNOWN_LOCATION, alert.Location)
	assert.Equal(t, "Alerted 2 emergency contact(s)", alert.ActionTaken)
	assert.Equal(t, models.JSONList[string]{"Heimdall", "Valkyrie"}, alert.ContactsNotified)
	assert.Equal(t, models.JSONList[models.DeliveryResult](result.Results), alert.AlertResults)
}

// cancellingDeliverer cancels the caller's context as soon as delivery starts.
type cancellingDeliverer struct {
	fakeDeliverer
	cancel context.CancelFunc
}

func (d *cancellingDeliverer) Deliver(ctx context.Context, contact models.EmergencyContact, msg notify.Message) models.DeliveryResult {
	d.cancel()
	return d.fakeDeliverer.Deliver(ctx, contact, msg)
}

func TestSendEmergencySurvivesCallerCancellation(t *testing.T) {
	db := models.InitializeTestDb(t)
	contactStore := contacts.NewStore(db)
	user := models.CreateTestUser(t, db, "sif@asgard.com")

	_, err := contactStore.Create(context.Background(), user.ID, contactInput("Odin", nil, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliverer := &cancellingDeliverer{fakeDeliverer: fakeDeliverer{failing: map[string]bool{}}, cancel: cancel}
	recorder := NewRecorder(db, contactStore, deliverer, nil)

	result, err := recorder.SendEmergency(ctx, user.ID, EmergencyRequest{Location: "Bifrost"})
	require.NoError(t, err)
	assert.Error(t, ctx.Err())

	assert.Equal(t, 1, result.ContactsNotified)
	assert.Equal(t, []string{"email"}, result.Results[0].Success)
	assert.Equal(t, int64(1), countAlerts(t, db, user.ID))
}

func contactInput(name string, active *bool, methods []string) contacts.ContactInput {
	return contacts.ContactInput{Name: name, Email: name + "@asgard.com", IsActive: active, AlertMethods: methods}
}
