package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendInvitation(toEmail, toName, acceptURL, token string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "You have been invited to join RHC Clinic"
	html := fmt.Sprintf(`
		<h2>Welcome to RHC Clinic!</h2>
		<p>Hi %s,</p>
		<p>You have been invited to create a staff account. Click the link below to set your password:</p>
		<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Accept Invitation</a></p>
		<p>This invitation expires in 7 days.</p>
		<p>If you were not expecting this invitation, please ignore this email.</p>
	`, toName, acceptURL)

	text := fmt.Sprintf("You have been invited to join RHC Clinic. Accept here: %s\n\nInvitation token: %s", acceptURL, token)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
