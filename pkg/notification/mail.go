package notification

import (
	"fmt"
	"net/smtp"

	"github.com/raykavin/pairwatch/pkg/logger"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mail handles email notifications for the application
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string
	to                string
	from              string
	send              sendMailFunc
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
func NewMail(log logger.Logger, params MailParams) *Mail {
	return &Mail{
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
		send: smtp.SendMail,
		log:  log.WithField("sink", "mail"),
	}
}

func (m *Mail) deliver(subject, text string) {
	serverAddress := fmt.Sprintf("%s:%d", m.smtpServerAddress, m.smtpServerPort)

	message := fmt.Sprintf(
		"To: \"User\" <%s>\r\nFrom: \"pairwatch\" <%s>\r\nSubject: %s\r\n\r\n%s",
		m.to,
		m.from,
		subject,
		text,
	)

	err := m.send(
		serverAddress,
		m.auth,
		m.from,
		[]string{m.to},
		[]byte(message),
	)

	if err != nil {
		m.log.WithError(err).Error("failed to send email")
	}
}

// Notify sends an email notification with the given text
func (m *Mail) Notify(text string) {
	m.deliver("pairwatch alert", text)
}

// OnError sends an error notification
func (m *Mail) OnError(err error) {
	m.deliver("🛑 ERROR", formatError(err))
}
