package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/auth"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/utils"
	"github.com/getsentry/sentry-go"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

// writeAppError maps err's kind to a status code. Internal errors are
// reported to sentry and never shown to the client.
func writeAppError(rw http.ResponseWriter, err error) {
	statusCode := statusForKind(apperr.KindOf(err))

	if statusCode >= http.StatusInternalServerError {
		logg.Errorf("%+v", err)
		sentry.CaptureException(err)
	}

	writeResponse(rw, ResponsePayload{Errors: []string{apperr.Message(err)}}, statusCode)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.NoActiveContacts:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.UpstreamUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeBody reads a JSON request body into dst, answering 400 itself when
// the body is unreadable.
func decodeBody(rw http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, MAX_BODY_BYTES)).Decode(dst)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"Invalid JSON body"}}, http.StatusBadRequest)
		return false
	}
	return true
}

func requestUserID(r *http.Request) string {
	userID, _ := r.Context().Value(requestUserIDKey).(string)
	return userID
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func (app *App) decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 || strings.TrimSpace(authHeaderList[1]) == "" {
		return DecodedJWT{ErrorMsg: "Access token required"}
	}

	tokenClaims, err := auth.DecodeJWT(strings.TrimSpace(authHeaderList[1]), app.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "Invalid or expired token"}
	}

	// validate that the user account still exists
	_, err = models.FindUserBy(app.db, "id", tokenClaims.Subject)
	if err != nil {
		return DecodedJWT{ErrorMsg: "Invalid or expired token"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Guardian server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func shutdown(server *http.Server) {
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Guardian server shutdown failed:%+s", err)
	}
}

// configDirectory retrieves the directory to store guardian data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'guardian' folder in home directory for prod
	configFolderName := "guardian"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
