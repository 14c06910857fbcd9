package notification

import (
	"fmt"
	"net/smtp"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger"
)

// Mail implements core.Notifier over SMTP
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string
	to                string
	from              string
	sendMail          func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log               logger.Logger
}

// MailParams contains all parameters needed to initialize a Mail instance
type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string
	To                string
	From              string
	Password          string
}

// NewMail creates a new Mail instance with the provided parameters
func NewMail(params MailParams, log logger.Logger) Mail {
	return Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		auth: smtp.PlainAuth(
			"",
			params.From,
			params.Password,
			params.SMTPServerAddress,
		),
		sendMail: smtp.SendMail,
		log:      log,
	}
}

// Notify sends an email notification with the given text
func (m Mail) Notify(text string) {
	serverAddress := fmt.Sprintf("%s:%d", m.smtpServerAddress, m.smtpServerPort)

	message := fmt.Sprintf(
		`To: "User" <%s>
From: "Trailstop" <%s>
%s`,
		m.to,
		m.from,
		text,
	)

	err := m.sendMail(
		serverAddress,
		m.auth,
		m.from,
		[]string{m.to},
		[]byte(message),
	)

	if err != nil {
		m.log.WithError(err).Error("notification/mail: failed to send email")
	}
}

// OnOrder mails placements, fills, withdrawals and claims
func (m Mail) OnOrder(event core.OrderEvent) {
	title := eventTitle(event)
	if title == "" {
		return
	}
	m.Notify(fmt.Sprintf("Subject: %s\n\n%s", title, event))
}

// OnError sends an error notification
func (m Mail) OnError(err error) {
	m.Notify(fmt.Sprintf("Subject: 🛑 ERROR\n\n%s", err))
}
