package llm

import (
	"context"
	"fmt"
	"strings"

	"applypilot-engine/internal/domain"
)

// FailPolicy decides what a classification error means for the relevance
// gate. It is fixed for a whole run; the pipeline never alternates
// mid-batch.
type FailPolicy int

const (
	// FailOpen treats a classification error as "relevant". Default: a
	// missed application costs more than reviewing one extra posting.
	FailOpen FailPolicy = iota
	// FailClosed treats a classification error as "irrelevant".
	FailClosed
)

func (p FailPolicy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

const relevantPrompt = `You screen job postings for a candidate looking for roles matching these titles:
%s

Posting:
%s

Is this posting relevant for the candidate? Reply with only the word yes or no.`

// Relevant asks the model for a binary relevance decision on the posting's
// descriptive text.
func (c *Client) Relevant(ctx context.Context, titles []string, text string) (bool, error) {
	prompt := fmt.Sprintf(relevantPrompt, "- "+strings.Join(titles, "\n- "), text)
	out, err := c.complete(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("classify relevance: %w", err)
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(out)), "yes"), nil
}

const sentimentPrompt = `Classify the following email response to a job application as 'positive' (interested, interview, follow-up) or 'negative' (rejection). Reply with only the word positive or negative.

%s`

// Sentiment classifies an inbound reply body. An answer that is neither
// positive nor negative is an error, not a guess.
func (c *Client) Sentiment(ctx context.Context, body string) (domain.ResponseStatus, error) {
	out, err := c.complete(ctx, fmt.Sprintf(sentimentPrompt, body))
	if err != nil {
		return domain.ResponseNone, fmt.Errorf("classify reply: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(out)) {
	case "positive":
		return domain.ResponsePositive, nil
	case "negative":
		return domain.ResponseNegative, nil
	}
	return domain.ResponseNone, fmt.Errorf("classify reply: unexpected answer %q", strings.TrimSpace(out))
}
