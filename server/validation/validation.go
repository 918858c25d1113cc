package validation

import (
	"reflect"
	"strings"

	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/quiethours"
	"github.com/go-playground/validator"
)

const MIN_PASSWORD_LENGTH = 6

// New returns a validator with the custom tags used by request payloads and
// config: password, time_stamp, weekday and alert_method. Errors name fields by
// their json tag.
func New() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs
	validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return len(password) >= MIN_PASSWORD_LENGTH && !strings.ContainsAny(password, " \t\n")
	})

	validate.RegisterValidation("time_stamp", func(fl validator.FieldLevel) bool {
		_, err := quiethours.ParseClock(fl.Field().String())
		return err == nil
	})

	validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return quiethours.IsWeekday(fl.Field().String())
	})

	validate.RegisterValidation("alert_method", func(fl validator.FieldLevel) bool {
		return models.AlertMethodNameMap[fl.Field().String()]
	})

	return validate
}

// Errors flattens a validation error into one readable message per field.
func Errors(err error) []string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		messages = append(messages, message(fieldErr))
	}

	return messages
}

func message(fieldErr validator.FieldError) string {
	field := fieldErr.Field()

	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "password":
		return field + " must be at least 6 characters without spaces"
	case "time_stamp":
		return field + " must be a time in HH:MM format"
	case "weekday":
		return field + " must be a day of the week"
	case "alert_method":
		return field + " must be one of email, sms, push, call"
	case "oneof":
		return field + " must be one of " + fieldErr.Param()
	case "min":
		return field + " must be at least " + fieldErr.Param()
	case "max":
		return field + " must be at most " + fieldErr.Param()
	}

	return field + " is invalid"
}
