package server

import "github.com/Daskott/guardian/server/auth"

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type DecodedJWT struct {
	Claims   *auth.GuardianTokenClaims
	ErrorMsg string
}

type RequestContextKey string

const (
	decodedJWTKey    = RequestContextKey("decodedJWT")
	requestUserIDKey = RequestContextKey("requestUserID")
)
