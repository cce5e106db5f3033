package notify

import (
	"github.com/rhcare/clinic-api/pkg/logger"
)

// DevSMS prints codes to the log instead of calling a gateway.
type DevSMS struct{}

func NewDevSMS() *DevSMS { return &DevSMS{} }

func (d *DevSMS) SendMFACode(phone, code string) error {
	logger.Info("[DEV SMS] MFA code",
		"to", phone,
		"code", code,
	)
	return nil
}

// DevMailer prints invitations to the log instead of sending email.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (d *DevMailer) SendInvitation(toEmail, toName, acceptURL, token string) error {
	logger.Info("[DEV MAIL] Invitation Email",
		"to", toEmail,
		"name", toName,
		"accept_url", acceptURL,
		"token", token,
	)
	return nil
}
