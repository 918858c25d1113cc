package server

import (
	"encoding/json"
	"net/http"

	"github.com/Daskott/guardian/server/alerts"
	"github.com/Daskott/guardian/server/auth/key"
	"github.com/Daskott/guardian/server/contacts"
	"github.com/Daskott/guardian/server/settings"
	"github.com/Daskott/guardian/server/validation"
	"github.com/Daskott/guardian/server/vision"
	"github.com/gorilla/mux"
)

type detectionRequest struct {
	vision.Frame
	Location string `json:"location"`
}

func (app *App) healthHandler(rw http.ResponseWriter, r *http.Request) {
	database := "connecting"
	if app.ready.Load() {
		database = "ready"
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]string{"status": "ok", "database": database},
	}, http.StatusOK)
}

func (app *App) jwksHandler(rw http.ResponseWriter, r *http.Request) {
	jwk, err := app.keyPair.JWK()
	if err != nil {
		writeAppError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

// ---------------------------------------------------------------------------------//
// Settings
// --------------------------------------------------------------------------------//

func (app *App) getSettingsHandler(rw http.ResponseWriter, r *http.Request) {
	setting, err := app.settings.Get(r.Context(), requestUserID(r))
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: setting}, http.StatusOK)
}

func (app *App) updateSettingsHandler(rw http.ResponseWriter, r *http.Request) {
	patch := settings.Patch{}
	if !decodeBody(rw, r, &patch) {
		return
	}

	setting, err := app.settings.Update(r.Context(), requestUserID(r), patch)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: setting}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Emergency contacts
// --------------------------------------------------------------------------------//

func (app *App) listContactsHandler(rw http.ResponseWriter, r *http.Request) {
	contactList, err := app.contacts.List(r.Context(), requestUserID(r))
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contactList}, http.StatusOK)
}

func (app *App) createContactHandler(rw http.ResponseWriter, r *http.Request) {
	input := contacts.ContactInput{}
	if !decodeBody(rw, r, &input) {
		return
	}

	contact, err := app.contacts.Create(r.Context(), requestUserID(r), input)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusCreated)
}

func (app *App) updateContactHandler(rw http.ResponseWriter, r *http.Request) {
	input := contacts.ContactInput{}
	if !decodeBody(rw, r, &input) {
		return
	}

	contact, err := app.contacts.Update(r.Context(), requestUserID(r), mux.Vars(r)["id"], input)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusOK)
}

func (app *App) deleteContactHandler(rw http.ResponseWriter, r *http.Request) {
	err := app.contacts.Delete(r.Context(), requestUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Alerts
// --------------------------------------------------------------------------------//

func (app *App) listAlertsHandler(rw http.ResponseWriter, r *http.Request) {
	limit := alerts.ParseLimit(r.URL.Query().Get("limit"))

	alertList, err := app.alerts.List(r.Context(), requestUserID(r), limit)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: alertList}, http.StatusOK)
}

func (app *App) createAlertHandler(rw http.ResponseWriter, r *http.Request) {
	input := alerts.NewAlert{}
	if !decodeBody(rw, r, &input) {
		return
	}

	id, err := app.alerts.Create(r.Context(), requestUserID(r), input)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]string{"id": id}}, http.StatusCreated)
}

func (app *App) emergencyAlertHandler(rw http.ResponseWriter, r *http.Request) {
	request := alerts.EmergencyRequest{}
	if r.ContentLength != 0 && !decodeBody(rw, r, &request) {
		return
	}

	result, err := app.alerts.SendEmergency(r.Context(), requestUserID(r), request)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: result}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Detection
// --------------------------------------------------------------------------------//

func (app *App) analyzeFrameHandler(rw http.ResponseWriter, r *http.Request) {
	frame := vision.Frame{}
	if !decodeBody(rw, r, &frame) {
		return
	}

	if err := app.validate.Struct(frame); err != nil {
		writeResponse(rw, ResponsePayload{Errors: validation.Errors(err)}, http.StatusBadRequest)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: app.vision.Analyze(r.Context(), frame)}, http.StatusOK)
}

func (app *App) detectionHandler(rw http.ResponseWriter, r *http.Request) {
	request := detectionRequest{}
	if !decodeBody(rw, r, &request) {
		return
	}

	if err := app.validate.Struct(request.Frame); err != nil {
		writeResponse(rw, ResponsePayload{Errors: validation.Errors(err)}, http.StatusBadRequest)
		return
	}

	outcome, err := app.pipeline.Process(r.Context(), requestUserID(r), request.Frame, request.Location)
	if err != nil {
		writeAppError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: outcome}, http.StatusOK)
}
