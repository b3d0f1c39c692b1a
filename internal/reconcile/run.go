package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/emersion/go-imap/v2"

	"applypilot-engine/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Report summarizes one reconciliation poll.
type Report struct {
	Fetched    int
	Matched    int
	NoMatch    int
	Unresolved int
	Positive   int
	Negative   int
}

// RunOnce polls the inbox and reconciles every unseen reply. Handled and
// no-match messages are marked seen; unresolved ones (classification
// failure) stay unseen so the next poll retries them. One notification
// covers the whole poll.
func RunOnce(ctx context.Context, cfg InboxConfig, r *Reconciler, notifier Notifier) (Report, error) {
	var rep Report

	inbox, err := DialInbox(ctx, cfg)
	if err != nil {
		return rep, err
	}
	defer inbox.Close()

	msgs, err := inbox.Unseen(ctx)
	if err != nil {
		return rep, err
	}
	rep.Fetched = len(msgs)
	if len(msgs) == 0 {
		return rep, nil
	}

	var handled []imap.UID
	var lines []string
	for _, m := range msgs {
		res, err := r.Reconcile(ctx, m.Reply)
		switch {
		case errors.Is(err, ErrUnresolved):
			rep.Unresolved++
			log.Printf("[reconcile] unresolved reply from %s: %v", m.Reply.Sender, err)
			continue // leave unseen, retry next poll
		case err != nil:
			rep.Unresolved++
			log.Printf("[reconcile] error for reply from %s: %v", m.Reply.Sender, err)
			continue
		case !res.Matched:
			rep.NoMatch++
			lines = append(lines, fmt.Sprintf("no match: %q from %s", m.Reply.Subject, m.Reply.Sender))
		default:
			rep.Matched++
			if res.Response == domain.ResponsePositive {
				rep.Positive++
			} else {
				rep.Negative++
			}
			line := fmt.Sprintf("%s -> %s", res.Identity, res.Response)
			if res.Drafted {
				line += " (draft ready)"
			}
			lines = append(lines, line)
		}
		handled = append(handled, m.UID)
	}

	if err := inbox.MarkSeen(handled); err != nil {
		log.Printf("[reconcile] mark seen: %v", err)
	}

	if notifier != nil && len(lines) > 0 {
		text := fmt.Sprintf("Replies: %d matched, %d no-match, %d unresolved\n%s",
			rep.Matched, rep.NoMatch, rep.Unresolved, strings.Join(lines, "\n"))
		if err := notifier.Notify(ctx, text); err != nil {
			log.Printf("[reconcile] notify: %v", err)
		}
	}
	return rep, nil
}
