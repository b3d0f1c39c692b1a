package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"applypilot-engine/internal/domain"
)

const generatePrompt = `Write a tailored resume summary and a cover letter for this job posting.

Title: %s
Source: %s
Link: %s

Respond with ONLY a JSON object, no markdown fences, in this shape:
{"resume": "...", "cover_letter": "..."}`

// Generate produces the application documents for a posting. The model is
// required to honor the structured contract; output where either field is
// missing is a generation failure, never a silent empty artifact.
func (c *Client) Generate(ctx context.Context, p domain.Posting) (domain.Documents, error) {
	out, err := c.complete(ctx, fmt.Sprintf(generatePrompt, p.Title, p.Source, p.Link))
	if err != nil {
		return domain.Documents{}, fmt.Errorf("generate documents: %w", err)
	}

	var docs domain.Documents
	if err := json.Unmarshal([]byte(stripFences(out)), &docs); err != nil {
		return domain.Documents{}, fmt.Errorf("generate documents: unstructured model output: %w", err)
	}
	if strings.TrimSpace(docs.Resume) == "" || strings.TrimSpace(docs.CoverLetter) == "" {
		return domain.Documents{}, fmt.Errorf("generate documents: model omitted a field")
	}
	return docs, nil
}

const draftPrompt = `Craft a concise, professional email reply to the following positive response to a job application:

%s`

// DraftReply writes a follow-up draft for a positive reply.
func (c *Client) DraftReply(ctx context.Context, reply domain.Reply) (string, error) {
	out, err := c.complete(ctx, fmt.Sprintf(draftPrompt, reply.Body))
	if err != nil {
		return "", fmt.Errorf("draft reply: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// stripFences tolerates models that wrap JSON in a code fence anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
