package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Password string   `json:"password" validate:"required,password"`
	Start    string   `json:"quiet_hours_start" validate:"omitempty,time_stamp"`
	Days     []string `json:"quiet_hours_days" validate:"omitempty,dive,weekday"`
	Methods  []string `json:"alert_methods" validate:"omitempty,dive,alert_method"`
	Volume   *int     `json:"alert_volume" validate:"omitempty,min=0,max=100"`
}

func TestCustomValidators(t *testing.T) {
	validate := New()
	tooLoud := 101

	cases := []struct {
		description string
		data        payload
		expectedErr []string
	}{
		{"valid payload", payload{Password: "secret", Start: "22:00", Days: []string{"monday"}, Methods: []string{"sms", "call"}}, nil},
		{"short password", payload{Password: "abc"}, []string{"password must be at least 6 characters without spaces"}},
		{"password with space", payload{Password: "abc defg"}, []string{"password must be at least 6 characters without spaces"}},
		{"unpadded time", payload{Password: "secret", Start: "7:00"}, []string{"quiet_hours_start must be a time in HH:MM format"}},
		{"out of range time", payload{Password: "secret", Start: "24:00"}, []string{"quiet_hours_start must be a time in HH:MM format"}},
		{"unknown weekday", payload{Password: "secret", Days: []string{"funday"}}, []string{"quiet_hours_days[0] must be a day of the week"}},
		{"unknown method", payload{Password: "secret", Methods: []string{"email", "pigeon"}}, []string{"alert_methods[1] must be one of email, sms, push, call"}},
		{"volume above max", payload{Password: "secret", Volume: &tooLoud}, []string{"alert_volume must be at most 100"}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			err := validate.Struct(c.data)
			if c.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, c.expectedErr, Errors(err))
		})
	}
}

func TestErrorsWithPlainError(t *testing.T) {
	assert.Equal(t, []string{"boom"}, Errors(errors.New("boom")))
}
