// Package reconcile maps inbound replies back to their ledger rows.
//
// The submission step embeds the posting identity (its canonical link) in
// the subject line; reconciliation extracts URL tokens from the subject,
// canonicalizes them, and requires an exact identity match. Substring
// matching against the whole subject would misattribute replies between
// postings sharing a link prefix.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"applypilot-engine/internal/domain"
	"applypilot-engine/internal/identity"
	"applypilot-engine/internal/ledger"
)

// ErrUnresolved marks a reply that matched a row but could not be
// classified this run. It is distinct from no-match: the message stays
// unseen and is retried on the next poll.
var ErrUnresolved = errors.New("reconcile: reply classification unresolved")

var urlRe = regexp.MustCompile(`https?://[^\s<>"'\[\]]+`)

type SentimentClassifier interface {
	Sentiment(ctx context.Context, body string) (domain.ResponseStatus, error)
}

type Drafter interface {
	DraftReply(ctx context.Context, reply domain.Reply) (string, error)
}

type DraftStore interface {
	SaveDraft(ident, text string) (string, error)
}

type Reconciler struct {
	Ledger     *ledger.DB
	Classifier SentimentClassifier
	// Drafter and Drafts are optional; without them positive replies still
	// get their response status persisted, just no follow-up draft.
	Drafter Drafter
	Drafts  DraftStore
}

// Reconcile matches one reply to a ledger row and records its sentiment.
// A reply with no matching row returns Matched=false and a nil error; the
// caller reports it rather than silently dropping it. Reprocessing the same
// reply is idempotent: re-setting an identical response status is a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, reply domain.Reply) (domain.ReconcileResult, error) {
	match, err := r.findRow(ctx, reply.Subject)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	if match == nil {
		return domain.ReconcileResult{Matched: false}, nil
	}

	rs, err := r.Classifier.Sentiment(ctx, reply.Body)
	if err != nil {
		// must not guess: leave the row untouched for the next run
		return domain.ReconcileResult{Matched: true, Identity: match.Identity},
			fmt.Errorf("%w: %v", ErrUnresolved, err)
	}

	// only response_status moves; status, refs, and timestamps are not ours
	if err := r.Ledger.SetResponseStatus(ctx, match.Identity, rs); err != nil {
		return domain.ReconcileResult{Matched: true, Identity: match.Identity}, err
	}

	res := domain.ReconcileResult{Matched: true, Identity: match.Identity, Response: rs}
	if rs == domain.ResponsePositive {
		res.Drafted = r.draftFollowUp(ctx, match.Identity, reply)
	}
	return res, nil
}

// findRow extracts candidate identities from the subject and picks the
// matching row; with several matches the most recently submitted wins.
func (r *Reconciler) findRow(ctx context.Context, subject string) (*domain.Posting, error) {
	var match *domain.Posting
	for _, tok := range urlRe.FindAllString(subject, -1) {
		tok = strings.TrimRight(tok, ".,;:)")
		p, err := r.Ledger.FindByIdentity(ctx, identity.Canonical(tok))
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if match == nil || moreRecentlySubmitted(p, match) {
			match = p
		}
	}
	return match, nil
}

func moreRecentlySubmitted(a, b *domain.Posting) bool {
	if a.SubmittedAt == nil {
		return false
	}
	if b.SubmittedAt == nil {
		return true
	}
	return a.SubmittedAt.After(*b.SubmittedAt)
}

// draftFollowUp is a side effect, not a ledger mutation: its failure never
// rolls back the persisted response status.
func (r *Reconciler) draftFollowUp(ctx context.Context, ident string, reply domain.Reply) bool {
	if r.Drafter == nil || r.Drafts == nil {
		return false
	}
	text, err := r.Drafter.DraftReply(ctx, reply)
	if err != nil {
		log.Printf("[reconcile] draft generation failed for %s: %v", ident, err)
		return false
	}
	ref, err := r.Drafts.SaveDraft(ident, text)
	if err != nil {
		log.Printf("[reconcile] draft save failed for %s: %v", ident, err)
		return false
	}
	log.Printf("[reconcile] follow-up draft ready for %s: %s", ident, ref)
	return true
}
