package models

// Status is the authentication lifecycle state.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
)

// SessionState is a point-in-time copy of the client session.
// IsAuthenticated implies Identity != nil.
type SessionState struct {
	Identity        *Identity
	Entitlement     Entitlement
	Status          Status
	IsAuthenticated bool
	IsLoading       bool
	LastError       error
}

// CachedSession is the advisory record written to local storage after every
// session change and read back on startup.
type CachedSession struct {
	Identity        *Identity `json:"identity"`
	Credits         int64     `json:"credits"`
	TrialUsed       bool      `json:"trialUsed"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	Version         int64     `json:"version"`
}

// TokenPair is the credential pair issued by the backend.
type TokenPair struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}
