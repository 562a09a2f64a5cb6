package certificate

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"github.com/rs/zerolog"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends certificates via SMTP.
type Mailer struct {
	cfg    EmailConfig
	send   sendFunc
	logger zerolog.Logger
}

// NewMailer creates a certificate mailer.
func NewMailer(cfg EmailConfig, logger zerolog.Logger) *Mailer {
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = "quiz@localhost"
	}
	return &Mailer{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: logger.With().Str("component", "certificate_email").Logger(),
	}
}

// Configured reports whether host and credentials are set.
func (m *Mailer) Configured() bool {
	return m.cfg.SMTPHost != "" && m.cfg.SMTPUsername != "" && m.cfg.SMTPPassword != ""
}

// SendCertificate mails the rendered certificate as a PNG attachment.
func (m *Mailer) SendCertificate(ctx context.Context, toEmail string, c Certificate, png []byte) error {
	if !m.Configured() {
		return fmt.Errorf("email service not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.buildMessage(toEmail, c, png)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := m.send(addr, auth, m.cfg.FromEmail, []string{toEmail}, msg); err != nil {
		m.logger.Error().Err(err).Str("to", toEmail).Msg("failed to send certificate email")
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info().Str("to", toEmail).Str("level", c.Level).Msg("certificate email sent")
	return nil
}

func (m *Mailer) buildMessage(toEmail string, c Certificate, png []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	fmt.Fprintf(text, "Hi %s,\r\n\r\nAttached is your Dog Quiz certificate. Great job!\r\n", c.Name)

	attachment, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType("image/png", map[string]string{"name": c.FileName()})},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": c.FileName()})},
	})
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(png)
	for len(encoded) > 76 {
		fmt.Fprintf(attachment, "%s\r\n", encoded[:76])
		encoded = encoded[76:]
	}
	fmt.Fprintf(attachment, "%s\r\n", encoded)

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.FromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", toEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Your Dog Quiz Certificate"))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
