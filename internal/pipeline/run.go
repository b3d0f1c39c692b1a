package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"applypilot-engine/internal/domain"
	"applypilot-engine/internal/events"
	"applypilot-engine/internal/identity"
	"applypilot-engine/internal/llm"
)

const fetchTimeout = 2 * time.Minute

// Run executes one discovery batch end to end and emits exactly one summary
// notification. Re-running against the same ledger is idempotent: identities
// already known are skipped, rows left mid-lifecycle by an earlier run are
// resumed from their persisted status.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: time.Now()}

	p.resume(ctx, &sum)
	p.discover(ctx, &sum)

	if len(sum.Relevant) > 0 {
		token := uuid.New().String()
		ids := make([]string, 0, len(sum.Relevant))
		for _, r := range sum.Relevant {
			ids = append(ids, identity.Canonical(r.Link))
		}
		if err := p.Ledger.CreateSession(ctx, token, ids); err != nil {
			log.Printf("[pipeline] session write failed: %v", err)
		} else {
			sum.SessionToken = token
		}
	}

	if p.Notifier != nil {
		if err := p.Notifier.Notify(ctx, sum.Render()); err != nil {
			log.Printf("[pipeline] notify failed: %v", err)
		}
	}
	return sum, nil
}

// resume re-drives rows a previous batch left at NEW or DOCS_READY.
// DOCS_READY rows go straight to submission with their stored artifacts;
// regenerating documents is expensive and non-deterministic.
func (p *Pipeline) resume(ctx context.Context, sum *Summary) {
	rows, err := p.Ledger.ListByStatus(ctx, domain.StatusNew, domain.StatusDocsReady)
	if err != nil {
		log.Printf("[pipeline] resume scan failed: %v", err)
		return
	}
	for _, row := range rows {
		sum.Resumed++
		switch row.Status {
		case domain.StatusNew:
			p.advance(ctx, row, sum, false)
		case domain.StatusDocsReady:
			p.submit(ctx, row, domain.Documents{}, sum)
		}
	}
}

// discover fans out every enabled fetcher, dedups against the ledger
// snapshot, and processes surviving candidates in discovery order.
func (p *Pipeline) discover(ctx context.Context, sum *Summary) {
	results := make([][]domain.Posting, len(p.Fetchers))
	errs := make([]error, len(p.Fetchers))

	var g errgroup.Group
	for i, f := range p.Fetchers {
		i, f := i, f
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			log.Printf("[%s] fetching...", f.Name())
			postings, err := f.Fetch(fctx)
			if err != nil {
				// best-effort: a dead site must not block the others
				errs[i] = fmt.Errorf("%s: %w", f.Name(), err)
				return nil
			}
			results[i] = postings
			return nil
		})
	}
	_ = g.Wait()

	var candidates []domain.Posting
	for i := range p.Fetchers {
		if errs[i] != nil {
			log.Printf("[pipeline] fetch error: %v", errs[i])
			sum.SourceErrors = append(sum.SourceErrors, errs[i].Error())
			continue
		}
		candidates = append(candidates, results[i]...)
	}
	sum.Discovered = len(candidates)

	// identity before dedup; a link we cannot key we cannot process
	keyed := candidates[:0]
	for _, c := range candidates {
		id, err := identity.FromLink(c.Link)
		if err != nil {
			sum.DiscoveryErrors++
			log.Printf("[pipeline] rejected candidate with bad link source=%s title=%q", c.Source, c.Title)
			continue
		}
		c.Identity = id
		keyed = append(keyed, c)
	}

	known, err := p.Ledger.ReadIdentities(ctx)
	if err != nil {
		log.Printf("[pipeline] identity snapshot failed: %v", err)
		sum.Failures = append(sum.Failures, fmt.Sprintf("identity snapshot: %v", err))
		return
	}

	fresh := identity.Dedup(keyed, known)
	sum.New = len(fresh)

	for _, posting := range fresh {
		posting.DiscoveredAt = time.Now().UTC()
		posting.Status = domain.StatusNew

		// anchor write first: a crash after this point leaves a recoverable
		// partial record instead of losing the discovery
		added, err := p.Ledger.InsertNew(ctx, posting)
		if err != nil {
			sum.fail(posting.Identity, "anchor write", err)
			continue
		}
		if !added {
			continue
		}
		if p.Hub != nil {
			p.Hub.Publish(events.Make("posting_discovered", posting.Identity))
		}
		p.advance(ctx, posting, sum, true)
	}
}

// advance takes a NEW posting through classification, generation, and
// submission. Any step failing leaves the row at its last persisted status
// and the batch moves on.
func (p *Pipeline) advance(ctx context.Context, posting domain.Posting, sum *Summary, fresh bool) {
	text := fmt.Sprintf("%s (%s)\n%s", posting.Title, posting.Source, posting.Link)

	relevant, err := p.Classifier.Relevant(ctx, text)
	if err != nil {
		relevant = p.Policy == llm.FailOpen
		log.Printf("[pipeline] classifier error for %s (%s policy, treating as relevant=%t): %v",
			posting.Identity, p.Policy, relevant, err)
	}
	if !relevant {
		if err := p.Ledger.MarkFilteredOut(ctx, posting.Identity); err != nil {
			sum.fail(posting.Identity, "persist filtered", err)
			return
		}
		sum.Filtered++
		return
	}

	docs, err := p.Generator.Generate(ctx, posting)
	if err != nil {
		// stays NEW; retried by the resume pass of a later run
		sum.fail(posting.Identity, "generate", err)
		return
	}

	resumeRef, coverRef, err := p.Store.Save(posting.Identity, docs)
	if err != nil {
		sum.fail(posting.Identity, "store artifacts", err)
		return
	}

	if err := p.Ledger.SetDocs(ctx, posting.Identity, resumeRef, coverRef); err != nil {
		// persisted state is now behind what we did; do not trust the
		// in-memory row, leave it for the next resume pass
		sum.fail(posting.Identity, "persist docs", err)
		return
	}
	posting.ResumeRef, posting.CoverRef = resumeRef, coverRef
	posting.Status = domain.StatusDocsReady
	sum.DocsReady++

	if fresh {
		sum.Relevant = append(sum.Relevant, RelevantPosting{Title: posting.Title, Link: posting.Link})
	}

	p.submit(ctx, posting, docs, sum)
}

// submit delivers the materials for a DOCS_READY posting. docs may be empty
// when resuming; the stored artifacts are loaded by ref in that case.
func (p *Pipeline) submit(ctx context.Context, posting domain.Posting, docs domain.Documents, sum *Summary) {
	if p.Submitter == nil {
		return
	}

	if docs.Resume == "" && docs.CoverLetter == "" {
		loaded, err := p.Store.Load(posting.ResumeRef, posting.CoverRef)
		if err != nil {
			sum.fail(posting.Identity, "load artifacts", err)
			return
		}
		docs = loaded
	}

	if err := p.Submitter.Submit(ctx, posting, docs); err != nil {
		// stays DOCS_READY: retryable without regenerating
		sum.fail(posting.Identity, "submit", err)
		return
	}

	if err := p.Ledger.MarkSubmitted(ctx, posting.Identity, time.Now()); err != nil {
		sum.fail(posting.Identity, "persist submitted", err)
		return
	}
	sum.Submitted++
	if p.Hub != nil {
		p.Hub.Publish(events.Make("posting_submitted", posting.Identity))
	}
}
