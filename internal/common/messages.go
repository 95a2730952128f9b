package common

import "errors"

// taxonomy lists the user-facing error kinds in match priority order.
var taxonomy = []error{
	ErrInvalidCredentials,
	ErrProfileNotFound,
	ErrInsufficientCredits,
	ErrNotAuthenticated,
	ErrProcessingFailed,
	ErrAuthInProgress,
	ErrTrialUnavailable,
	ErrInvalidImage,
	ErrorAlreadyExists,
	ErrNetworkOrBackend,
}

var messages = map[error]string{
	ErrInvalidCredentials:  "Incorrect email or password.",
	ErrProfileNotFound:     "Your profile could not be found. Please sign in again.",
	ErrInsufficientCredits: "You have no restoration credits left. Buy a plan to continue.",
	ErrNotAuthenticated:    "Please sign in to restore photos.",
	ErrProcessingFailed:    "The restoration failed. Your credit was returned.",
	ErrAuthInProgress:      "A sign-in is already in progress.",
	ErrTrialUnavailable:    "The free trial has already been used.",
	ErrInvalidImage:        "Please choose an image file no larger than 10MB.",
	ErrorAlreadyExists:     "An account with this email already exists.",
	ErrNetworkOrBackend:    "The service is unreachable. Check your connection and try again.",
	ErrUnknown:             "Something went wrong. Please try again.",
}

// Classify maps err onto one of the user-facing sentinels. Anything that does
// not match a known kind is reported as ErrUnknown. A nil error stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnknown
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return messages[Classify(err)]
}

// Recoverable reports whether the user can resolve err on their own
// (retype a password, sign in again, buy credits).
func Recoverable(err error) bool {
	switch Classify(err) {
	case ErrInvalidCredentials, ErrProfileNotFound, ErrInsufficientCredits, ErrNotAuthenticated, ErrInvalidImage:
		return true
	}
	return false
}
