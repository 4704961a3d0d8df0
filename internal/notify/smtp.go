package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig addresses an authenticated submission server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends multipart text and HTML mail through an SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	from *mail.Address
	send sendFunc
	now  func() time.Time
}

// NewSMTP validates the sender address and returns a notifier.
func NewSMTP(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("parse smtp from address: %w", err)
	}
	return &SMTPNotifier{cfg: cfg, from: from, send: smtp.SendMail, now: time.Now}, nil
}

func (n *SMTPNotifier) SendDonationRequest(ctx context.Context, msg DonationRequest) error {
	m, err := RenderDonationRequest(msg)
	if err != nil {
		return err
	}
	return n.deliver(ctx, m)
}

func (n *SMTPNotifier) SendDoneeVerified(ctx context.Context, msg DoneeVerification) error {
	m, err := RenderDoneeVerified(msg)
	if err != nil {
		return err
	}
	return n.deliver(ctx, m)
}

func (n *SMTPNotifier) SendDoneeRejected(ctx context.Context, msg DoneeRejection) error {
	m, err := RenderDoneeRejected(msg)
	if err != nil {
		return err
	}
	return n.deliver(ctx, m)
}

func (n *SMTPNotifier) deliver(ctx context.Context, m Message) error {
	to, err := mail.ParseAddress(m.To)
	if err != nil {
		return fmt.Errorf("parse recipient: %w", err)
	}
	raw, err := n.compose(to, m)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	// smtp.SendMail has no context; run it aside so cancellation returns promptly.
	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, auth, n.from.Address, []string{to.Address}, raw)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (n *SMTPNotifier) compose(to *mail.Address, m Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []struct{ key, value string }{
		{"From", n.from.String()},
		{"To", to.String()},
		{"Subject", mimeEncodeHeader(m.Subject)},
		{"Date", n.now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", "<" + uuid.NewString() + "@" + n.cfg.Host + ">"},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	var head strings.Builder
	for _, h := range headers {
		head.WriteString(h.key + ": " + h.value + "\r\n")
	}
	head.WriteString("\r\n")

	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", m.TextBody},
		{"text/html; charset=UTF-8", m.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("close mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return append([]byte(head.String()), buf.Bytes()...), nil
}

func mimeEncodeHeader(s string) string {
	return mime.QEncoding.Encode("utf-8", s)
}
