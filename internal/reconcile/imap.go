package reconcile

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"applypilot-engine/internal/domain"
)

// Message is one unseen mailbox message: the reply payload plus the UID
// needed to mark it seen once it has been handled.
type Message struct {
	UID   imap.UID
	Reply domain.Reply
}

type InboxConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	Max      int
}

type Inbox struct {
	c   *imapclient.Client
	cfg InboxConfig
}

// DialInbox connects over TLS, logs in, and selects the reply mailbox.
func DialInbox(ctx context.Context, cfg InboxConfig) (*Inbox, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("imap host/username/password are required")
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// best-effort close on context cancel
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(cfg.Mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap select %s: %w", cfg.Mailbox, err)
	}
	return &Inbox{c: c, cfg: cfg}, nil
}

// Unseen pulls up to cfg.Max unseen messages by UID, newest first, using
// BODY.PEEK so fetching alone never sets \Seen.
func (in *Inbox) Unseen(ctx context.Context) ([]Message, error) {
	max := in.cfg.Max
	if max <= 0 {
		max = 50
	}

	// replies older than this are stale; don't even consider them
	cutoff := time.Now().AddDate(0, -3, 0)

	searchData, err := in.c.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   cutoff,
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := in.c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]Message, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		var m Message
		m.UID = buf.UID
		if buf.Envelope != nil {
			m.Reply.Subject = buf.Envelope.Subject
			m.Reply.ReceivedAt = buf.Envelope.Date
			m.Reply.Sender = joinAddrs(buf.Envelope.From)
		}
		if raw := buf.FindBodySection(bodyAll); raw != nil {
			m.Reply.Body = extractTextBody(raw)
		}
		out = append(out, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

// MarkSeen flags handled messages so the next poll skips them.
func (in *Inbox) MarkSeen(uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := in.c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

func (in *Inbox) Close() {
	if in == nil || in.c == nil {
		return
	}
	if err := in.c.Logout().Wait(); err != nil {
		log.Printf("[reconcile] imap logout: %v", err)
	}
	_ = in.c.Close()
}

func joinAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}

// extractTextBody pulls the first inline text part of a raw RFC822 message,
// falling back to the raw bytes when the MIME structure won't parse.
func extractTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	var fallback string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct == "text/plain" {
			return string(b)
		}
		if fallback == "" {
			fallback = string(b)
		}
	}
	if fallback != "" {
		return fallback
	}
	return string(raw)
}
