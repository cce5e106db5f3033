package notify

// SMSSender delivers one-time login codes out of band.
type SMSSender interface {
	SendMFACode(phone, code string) error
}

// InviteMailer delivers onboarding invitations.
type InviteMailer interface {
	SendInvitation(toEmail, toName, acceptURL, token string) error
}
