// Package pipeline drives each discovered posting through its lifecycle:
// NEW -> FILTERED_OUT, or NEW -> DOCS_READY -> SUBMITTED. Every transition
// is persisted before the next step starts, so a killed batch resumes from
// the ledger on the next run. Failures are contained per posting: one bad
// generator call never aborts the rest of the batch.
package pipeline

import (
	"context"

	"applypilot-engine/internal/domain"
	"applypilot-engine/internal/events"
	"applypilot-engine/internal/ledger"
	"applypilot-engine/internal/llm"
	"applypilot-engine/internal/source"
)

// Collaborators the orchestrator calls out to. All of them are fallible and
// slow (network); none are trusted to succeed.

type Classifier interface {
	Relevant(ctx context.Context, text string) (bool, error)
}

type Generator interface {
	Generate(ctx context.Context, p domain.Posting) (domain.Documents, error)
}

type ArtifactStore interface {
	Save(ident string, d domain.Documents) (resumeRef, coverRef string, err error)
	Load(resumeRef, coverRef string) (domain.Documents, error)
}

type Submitter interface {
	Submit(ctx context.Context, p domain.Posting, d domain.Documents) error
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Pipeline struct {
	Ledger     *ledger.DB
	Fetchers   []source.Fetcher
	Classifier Classifier
	Policy     llm.FailPolicy
	Generator  Generator
	Store      ArtifactStore
	// Submitter may be nil when delivery is disabled; postings then park at
	// DOCS_READY and are submitted by a later run once it is configured.
	Submitter Submitter
	Notifier  Notifier
	Hub       *events.Hub
}
