package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Daskott/guardian/colors"
	"github.com/gorilla/mux"
)

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func (app *App) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         http.StatusOK,
		}

		defer func() {
			duration := time.Since(start)

			log.Println(r.Method, r.RequestURI, colors.Status(responseWriter.Status), colors.Duration(duration))

			app.metrics.ObserveRequest(routeTemplate(r), r.Method, responseWriter.Status, duration)
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func jsonContentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// readinessMiddleware answers 503 until the database handle is attached.
func (app *App) readinessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.ready.Load() {
			writeResponse(w, ResponsePayload{Errors: []string{"Database not ready. Please wait..."}}, http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *App) protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT := app.decodeAndVerifyAuthHeader(r.Header.Get("Authorization"))
		if decodedJWT.ErrorMsg != "" {
			writeResponse(w, ResponsePayload{Errors: []string{decodedJWT.ErrorMsg}}, http.StatusUnauthorized)
			return
		}

		// Add decoded token & requestUserID to request context
		ctx := context.WithValue(r.Context(), decodedJWTKey, decodedJWT)
		ctx = context.WithValue(ctx, requestUserIDKey, decodedJWT.Claims.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// routeTemplate keeps metric labels bounded by using the mux path template
// instead of the raw path.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}

	template, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}

	return template
}
