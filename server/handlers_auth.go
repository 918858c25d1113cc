package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/auth"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/validation"
	"gorm.io/gorm"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (app *App) signupHandler(rw http.ResponseWriter, r *http.Request) {
	data := credentials{}
	if !decodeBody(rw, r, &data) {
		return
	}

	if err := app.validate.Struct(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: validation.Errors(err)}, http.StatusBadRequest)
		return
	}

	user := models.User{Email: data.Email, Password: data.Password}
	if err := models.CreateUser(app.db.WithContext(r.Context()), &user); err != nil {
		writeAppError(rw, err)
		return
	}

	app.writeSession(rw, &user, http.StatusCreated)
}

func (app *App) signinHandler(rw http.ResponseWriter, r *http.Request) {
	data := credentials{}
	if !decodeBody(rw, r, &data) {
		return
	}

	if strings.TrimSpace(data.Email) == "" || data.Password == "" {
		writeResponse(rw, ResponsePayload{Errors: []string{"Email and password are required"}}, http.StatusBadRequest)
		return
	}

	throttleKey := strings.ToLower(strings.TrimSpace(data.Email))
	if failures, found := app.signinFailures.Get(throttleKey); found && failures.(int) >= MAX_SIGNIN_FAILURES {
		writeResponse(rw, ResponsePayload{Errors: []string{"Too many failed sign in attempts, try again later"}}, http.StatusTooManyRequests)
		return
	}

	user, err := models.FindUserWithPassword(app.db.WithContext(r.Context()), data.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeAppError(rw, err)
		return
	}

	if user == nil || !auth.CheckPasswordHash(data.Password, user.Password) {
		app.recordSigninFailure(throttleKey)
		writeResponse(rw, ResponsePayload{Errors: []string{"Invalid email or password"}}, http.StatusUnauthorized)
		return
	}

	app.signinFailures.Delete(throttleKey)
	app.writeSession(rw, user, http.StatusOK)
}

func (app *App) meHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := models.FindUserBy(app.db.WithContext(r.Context()), "id", requestUserID(r))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeAppError(rw, apperr.NotFoundf("User not found"))
		return
	}
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    userView{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt},
	}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (app *App) writeSession(rw http.ResponseWriter, user *models.User, statusCode int) {
	ttl := time.Duration(app.config.Guardian.TokenTTLHours) * time.Hour

	token, err := auth.EncodeJWT(auth.NewTokenClaims(user.ID, user.Email, ttl), app.keyPair)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    sessionView{Token: token, User: userView{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}},
	}, statusCode)
}

// recordSigninFailure counts failures per email; the window starts at the
// first failure and is not extended by later ones.
func (app *App) recordSigninFailure(email string) {
	if err := app.signinFailures.Add(email, 1, SIGNIN_FAILURE_TTL); err == nil {
		return
	}

	if _, err := app.signinFailures.IncrementInt(email, 1); err != nil {
		app.signinFailures.Set(email, 1, SIGNIN_FAILURE_TTL)
	}
}
