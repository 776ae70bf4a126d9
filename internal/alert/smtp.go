package alert

import (
	"context"
	"crypto/tls"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// SMTPConfig configures the mail sink.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLSMode  string `yaml:"tls_mode"` // "auto" | "ssl" | "none"
}

// SMTPNotifier mails alerts to the operator address.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTP creates the mail sink.
func NewSMTP(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (s *SMTPNotifier) Notify(ctx context.Context, ev Event) {
	log := logger.From(ctx).With(
		logger.Component("alert.smtp"),
		logger.String("host", s.cfg.Host),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", subjectFor(ev))
	m.SetBody("text/plain", bodyFor(ev))

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("alert mail failed", logger.Err(err))
		return
	}
	log.Info("alert mail sent", logger.String("kind", ev.Kind))
}
