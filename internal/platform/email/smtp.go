package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"subroflow/contexts/subrogation/demand-service/ports"
)

// SMTPSender delivers mail over authenticated SMTP with attachments encoded
// as a MIME multipart body. The returned tracking id is the generated
// Message-ID header.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	Logger   *slog.Logger
}

var _ ports.EmailSender = (*SMTPSender)(nil)

func NewSMTPSender(host string, port int, username, password string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Logger:   logger,
	}
}

func (s *SMTPSender) Send(_ context.Context, message ports.OutboundEmail) (string, error) {
	if s.Host == "" {
		return "", errors.New("smtp host is not configured")
	}
	if len(message.To) == 0 {
		return "", errors.New("no recipients")
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.Host)
	body, err := buildMIME(message, messageID)
	if err != nil {
		return "", err
	}

	recipients := append(append([]string(nil), message.To...), message.Cc...)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	if err := smtp.SendMail(addr, auth, message.From, recipients, body); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("email sent",
			"event", "email_sent",
			"module", "internal/platform/email",
			"layer", "platform",
			"message_id", messageID,
			"recipient_count", len(recipients),
			"attachment_count", len(message.Attachments),
		)
	}
	return messageID, nil
}

func buildMIME(message ports.OutboundEmail, messageID string) ([]byte, error) {
	var buf bytes.Buffer
	boundary := "mixed-" + uuid.NewString()

	from := message.From
	if message.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", message.FromName), message.From)
	}
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(message.To, ", "))
	if len(message.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(message.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", message.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	if message.HTMLBody != "" {
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		buf.WriteString(message.HTMLBody)
	} else {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(message.PlainTextBody)
	}
	buf.WriteString("\r\n")

	for _, attachment := range message.Attachments {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", attachment.FileName)

		encoded := base64.StdEncoding.EncodeToString(attachment.Content)
		for len(encoded) > 0 {
			n := 76
			if n > len(encoded) {
				n = len(encoded)
			}
			buf.WriteString(encoded[:n])
			buf.WriteString("\r\n")
			encoded = encoded[n:]
		}
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

// NoopSender stands in when SMTP is not configured: sends succeed with a
// synthetic tracking id and a warning in the log.
type NoopSender struct {
	Logger *slog.Logger
}

var _ ports.EmailSender = NoopSender{}

func (s NoopSender) Send(_ context.Context, message ports.OutboundEmail) (string, error) {
	if s.Logger != nil {
		s.Logger.Warn("email transport not configured, delivery skipped",
			"event", "email_send_skipped",
			"module", "internal/platform/email",
			"layer", "platform",
			"subject", message.Subject,
			"recipient_count", len(message.To),
		)
	}
	return "noop-" + uuid.NewString(), nil
}
