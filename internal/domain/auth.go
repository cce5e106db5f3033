package domain

// LoginResult is the outcome of a password check. Either an MFA code was
// issued and the client must call verify-mfa, or the account is exempt from
// step-up auth and a session token is returned immediately.
type LoginResult struct {
	UserID      string    `json:"user_id"`
	MFARequired bool      `json:"mfa_required"`
	Token       string    `json:"token,omitempty"`
	User        *UserInfo `json:"user,omitempty"`
}

type SessionResult struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}
