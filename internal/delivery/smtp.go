// Package delivery sends application materials over SMTP. The posting
// identity is embedded verbatim in the subject line so inbound replies can
// be reconciled back to their ledger row.
package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"applypilot-engine/internal/domain"
)

type SMTPSubmitter struct {
	Host     string
	Port     int
	From     string
	To       string
	Password string
}

// Subject formats the submission subject for a posting. Reconciliation
// depends on the identity appearing here as a full token.
func Subject(p domain.Posting) string {
	return fmt.Sprintf("Application: %s [%s]", p.Title, p.Identity)
}

// Submit delivers the generated documents. Any error means the submission
// did not happen; the caller leaves the row at DOCS_READY and retries on a
// later run.
func (s *SMTPSubmitter) Submit(ctx context.Context, p domain.Posting, d domain.Documents) error {
	msg, err := s.buildMessage(p, d)
	if err != nil {
		return fmt.Errorf("submit %s: %w", p.Identity, err)
	}

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	c, err := smtp.DialTLS(addr, &tls.Config{
		ServerName: s.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer c.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	if err := c.Auth(sasl.NewPlainClient("", s.From, s.Password)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(s.From, nil); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(s.To, nil); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return c.Quit()
}

func (s *SMTPSubmitter) buildMessage(p domain.Posting, d domain.Documents) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: s.From}})
	h.SetAddressList("To", []*mail.Address{{Address: s.To}})
	h.SetSubject(Subject(p))

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}
	body := fmt.Sprintf("Posting: %s\n\n--- Resume ---\n\n%s\n\n--- Cover Letter ---\n\n%s\n",
		p.Link, d.Resume, d.CoverLetter)
	if _, err := io.WriteString(w, body); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
