// Package common holds constants, sentinel errors and small helpers shared by
// the photorestore client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key that carries the access token.
const AccessTokenHeaderName = "access_token"

// ForwardedForHeaderName is consulted when resolving the caller address for
// trial eligibility behind a proxy.
const ForwardedForHeaderName = "x-forwarded-for"

// Credits granted by the placeholder free trial and charged per restoration.
const (
	CreditsPerRestoration = 1
	TrialCredits          = 1
)

// MaxImageSize is the largest original photo accepted for restoration.
const MaxImageSize = 10 << 20
