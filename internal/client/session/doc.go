// Package session tracks the client's authentication lifecycle and keeps the
// local identity and entitlement consistent with the backend.
//
// A Store is created once per client runtime and passed to whoever needs it.
// It moves between anonymous, authenticating and authenticated. Failures are
// recorded as LastError rather than panicking, every backend call is bounded
// by the configured timeout, and a request token drops results of calls that
// were superseded (for example by a logout) while in flight.
package session
