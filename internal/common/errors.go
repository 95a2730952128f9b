package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// session errors surfaced to the user
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNetworkOrBackend   = errors.New("network or backend unavailable")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrUnknown            = errors.New("unknown error")

	// restoration errors
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrProcessingFailed    = errors.New("processing failed")
	ErrTrialUnavailable    = errors.New("free trial not available")
	ErrInvalidImage        = errors.New("invalid image")

	// client-side guards
	ErrAuthInProgress     = errors.New("authentication already in progress")
	ErrInvalidAmount      = errors.New("credit amount must be positive")
	ErrUnknownReservation = errors.New("unknown or already settled reservation")
	ErrInvalidSignature   = errors.New("invalid signature")

	// server-side request errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
)
