package models

import (
	"testing"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	db := InitializeTestDb(t)

	user := &User{Email: "  Tony@Avengers.com ", Password: "very-secure"}
	require.NoError(t, CreateUser(db, user))

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "tony@avengers.com", user.Email)
	assert.True(t, auth.CheckPasswordHash("very-secure", user.Password), "password should be stored hashed")

	var settingsCount int64
	db.Model(&UserSetting{}).Where("user_id = ?", user.ID).Count(&settingsCount)
	assert.Equal(t, int64(1), settingsCount, "signup should create the default settings row")

	err := CreateUser(db, &User{Email: "tony@avengers.com", Password: "another"})
	assert.True(t, apperr.Is(err, apperr.Validation), "duplicate email should be a validation error")
}

func TestFindUserByOmitsPassword(t *testing.T) {
	db := InitializeTestDb(t)
	created := CreateTestUser(t, db, "web@avengers.com")

	found, err := FindUserBy(db, "id", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, found.Email)
	assert.Empty(t, found.Password)

	withPassword, err := FindUserWithPassword(db, "WEB@avengers.com")
	require.NoError(t, err)
	assert.NotEmpty(t, withPassword.Password)
}

func TestDeleteUserCascades(t *testing.T) {
	db := InitializeTestDb(t)
	user := CreateTestUser(t, db, "strange@avengers.com")

	require.NoError(t, db.Create(&EmergencyContact{
		UserID: user.ID, Name: "wong", Email: "wong@kamar-taj.com", IsActive: true,
		Relationship: DEFAULT_RELATIONSHIP, AlertMethods: JSONList[string]{EMAIL_METHOD},
	}).Error)
	require.NoError(t, db.Create(&Alert{
		UserID: user.ID, AlertType: "test", Status: SAFE_STATUS, Description: "d",
		Location: "l", ActionTaken: "a",
	}).Error)

	require.NoError(t, DeleteUser(db, user.ID))

	for _, model := range []interface{}{&UserSetting{}, &EmergencyContact{}, &Alert{}} {
		var count int64
		db.Model(model).Where("user_id = ?", user.ID).Count(&count)
		assert.Equal(t, int64(0), count, "%T rows should be deleted with their user", model)
	}
}

func TestJSONListLenientScan(t *testing.T) {
	cases := []struct {
		description string
		src         interface{}
		expected    JSONList[string]
	}{
		{"valid json text", `["email","sms"]`, JSONList[string]{"email", "sms"}},
		{"valid json bytes", []byte(`["push"]`), JSONList[string]{"push"}},
		{"malformed json", `["email",`, JSONList[string]{}},
		{"wrong json shape", `{"email":true}`, JSONList[string]{}},
		{"json null", `null`, JSONList[string]{}},
		{"empty string", ``, JSONList[string]{}},
		{"sql null", nil, JSONList[string]{}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			var list JSONList[string]
			assert.NoError(t, list.Scan(c.src))
			assert.Equal(t, c.expected, list)
		})
	}
}

func TestMalformedColumnsDecodeIndependently(t *testing.T) {
	db := InitializeTestDb(t)
	user := CreateTestUser(t, db, "vision@avengers.com")

	alert := &Alert{
		UserID: user.ID, AlertType: "test", Status: DANGER_STATUS, Description: "d",
		Location: "l", ActionTaken: "a", ContactsNotified: JSONList[string]{"wanda"},
		AlertResults: JSONList[DeliveryResult]{NewDeliveryResult("wanda")},
	}
	require.NoError(t, db.Create(alert).Error)

	// Corrupt only one of the two list columns
	require.NoError(t, db.Exec("UPDATE alerts SET alert_results = ? WHERE id = ?", "{not json", alert.ID).Error)

	found := Alert{}
	require.NoError(t, db.First(&found, "id = ?", alert.ID).Error)
	assert.Equal(t, JSONList[string]{"wanda"}, found.ContactsNotified)
	assert.Equal(t, JSONList[DeliveryResult]{}, found.AlertResults)
}

func TestJSONListMarshalsNilAsEmptyArray(t *testing.T) {
	var list JSONList[string]

	encoded, err := list.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(encoded))

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}
