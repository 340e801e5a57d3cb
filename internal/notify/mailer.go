package notify

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"

	mail "github.com/go-mail/mail/v2"
)

// SMTPConfig holds mail transport settings, loaded from environment.
type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "IEEE Portal <no-reply@ieeeucsd.org>"
	SkipTLSVerify bool
}

// SMTPConfigFromEnv reads SMTP_* environment variables.
func SMTPConfigFromEnv() SMTPConfig {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return SMTPConfig{
		Host:          os.Getenv("SMTP_HOST"),
		Port:          port,
		User:          os.Getenv("SMTP_USER"),
		Pass:          os.Getenv("SMTP_PASS"),
		From:          os.Getenv("SMTP_FROM"),
		SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
}

// SendMail delivers one HTML email through the configured SMTP relay.
func (c SMTPConfig) SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if c.Host == "" || c.From == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	m := mail.NewMessage()
	m.SetHeader("From", c.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := mail.NewDialer(c.Host, c.Port, c.User, c.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         c.Host,
		InsecureSkipVerify: c.SkipTLSVerify, // dev only
	}

	return d.DialAndSend(m)
}
