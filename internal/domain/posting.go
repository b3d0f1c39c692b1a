package domain

import "time"

// Status is the lifecycle state of a posting. Transitions are forward-only:
// NEW -> FILTERED_OUT, NEW -> DOCS_READY -> SUBMITTED.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusFilteredOut Status = "FILTERED_OUT"
	StatusDocsReady   Status = "DOCS_READY"
	StatusSubmitted   Status = "SUBMITTED"
)

// Rank orders statuses for the forward-only guard. FILTERED_OUT and
// DOCS_READY sit on parallel branches at the same depth.
func (s Status) Rank() int {
	switch s {
	case StatusNew:
		return 0
	case StatusFilteredOut, StatusDocsReady:
		return 1
	case StatusSubmitted:
		return 2
	}
	return -1
}

func (s Status) Terminal() bool {
	return s == StatusFilteredOut || s == StatusSubmitted
}

// ResponseStatus records the sentiment of a matched inbound reply.
// Empty means no reply has been reconciled yet.
type ResponseStatus string

const (
	ResponseNone     ResponseStatus = ""
	ResponsePositive ResponseStatus = "POSITIVE"
	ResponseNegative ResponseStatus = "NEGATIVE"
)

// Posting is one tracked job opportunity. Identity is derived solely from
// the canonical link, never from the title (titles mutate between scrapes).
type Posting struct {
	Identity       string
	Source         string
	Title          string
	Link           string
	DiscoveredAt   time.Time
	Status         Status
	ResumeRef      string
	CoverRef       string
	ResponseStatus ResponseStatus
	SubmittedAt    *time.Time
}

// Documents is the structured output of the document generator.
// Both fields are always set together; a generator that returns one
// without the other is treated as failed.
type Documents struct {
	Resume      string `json:"resume"`
	CoverLetter string `json:"cover_letter"`
}
