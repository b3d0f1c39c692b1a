package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Summary is the single end-of-batch report. There are no per-posting
// notifications; everything a human needs lands here once.
type Summary struct {
	StartedAt       time.Time
	Discovered      int
	DiscoveryErrors int
	Resumed         int
	New             int
	Filtered        int
	DocsReady       int
	Submitted       int

	// Failures holds one human-readable reason per posting that could not
	// advance this run (it stays at its last persisted status).
	Failures []string
	// SourceErrors holds per-source fetch failures; a dead site never
	// aborts the batch.
	SourceErrors []string

	// SessionToken keys the persisted list of this batch's actionable
	// postings, so a follow-up command can reference them after a restart.
	SessionToken string

	// Relevant lists the new postings that survived filtering, in
	// discovery order, for the human-facing summary.
	Relevant []RelevantPosting
}

type RelevantPosting struct {
	Title string
	Link  string
}

func (s *Summary) fail(ident, step string, err error) {
	s.Failures = append(s.Failures, fmt.Sprintf("%s: %s: %v", ident, step, err))
}

// Render formats the summary for the notification channel.
func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s\n", s.StartedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "discovered=%d new=%d filtered=%d docs_ready=%d submitted=%d failed=%d\n",
		s.Discovered, s.New, s.Filtered, s.DocsReady, s.Submitted, len(s.Failures))
	if s.DiscoveryErrors > 0 {
		fmt.Fprintf(&b, "discovery errors: %d (unparsable links)\n", s.DiscoveryErrors)
	}
	if s.Resumed > 0 {
		fmt.Fprintf(&b, "resumed from earlier runs: %d\n", s.Resumed)
	}
	if len(s.Relevant) > 0 {
		b.WriteString("\nRelevant new postings:\n")
		for i, r := range s.Relevant {
			fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, r.Title, r.Link)
		}
	}
	for _, e := range s.SourceErrors {
		fmt.Fprintf(&b, "\nsource error: %s", e)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\nfailed: %s", f)
	}
	if s.SessionToken != "" {
		fmt.Fprintf(&b, "\n\nsession: %s", s.SessionToken)
	}
	return b.String()
}
