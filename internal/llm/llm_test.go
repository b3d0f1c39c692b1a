package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"applypilot-engine/internal/domain"
)

type scriptedModel struct {
	out string
	err error
}

func (m *scriptedModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.out}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, _ string, _ ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.out, nil
}

func client(out string) *Client {
	return &Client{model: &scriptedModel{out: out}}
}

func TestRelevantParsesYesNo(t *testing.T) {
	ctx := context.Background()
	titles := []string{"Backend Engineer"}

	for answer, want := range map[string]bool{
		"yes":        true,
		"Yes.":       true,
		"  YES  ":    true,
		"no":         false,
		"No, it is a sales role.": false,
	} {
		got, err := client(answer).Relevant(ctx, titles, "some posting")
		require.NoError(t, err)
		assert.Equal(t, want, got, "answer %q", answer)
	}
}

func TestRelevantPropagatesModelError(t *testing.T) {
	c := &Client{model: &scriptedModel{err: errors.New("rate limited")}}
	_, err := c.Relevant(context.Background(), []string{"SRE"}, "posting")
	require.Error(t, err)
}

func TestSentiment(t *testing.T) {
	ctx := context.Background()

	rs, err := client("positive").Sentiment(ctx, "we'd love to chat")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponsePositive, rs)

	rs, err = client(" Negative\n").Sentiment(ctx, "we went with someone else")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseNegative, rs)

	_, err = client("maybe").Sentiment(ctx, "ambiguous")
	require.Error(t, err, "an answer outside the contract must not be guessed at")
}

func TestGenerateParsesStructuredOutput(t *testing.T) {
	c := client(`{"resume": "r text", "cover_letter": "c text"}`)

	docs, err := c.Generate(context.Background(), domain.Posting{Title: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, "r text", docs.Resume)
	assert.Equal(t, "c text", docs.CoverLetter)
}

func TestGenerateToleratesCodeFences(t *testing.T) {
	c := client("```json\n{\"resume\": \"r\", \"cover_letter\": \"c\"}\n```")

	docs, err := c.Generate(context.Background(), domain.Posting{Title: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, "r", docs.Resume)
}

func TestGenerateRejectsIncompleteOutput(t *testing.T) {
	ctx := context.Background()

	_, err := client(`{"resume": "r"}`).Generate(ctx, domain.Posting{})
	require.Error(t, err)

	_, err = client("Sure! Here is your resume: ...").Generate(ctx, domain.Posting{})
	require.Error(t, err)
}

func TestDraftReplyTrimsOutput(t *testing.T) {
	c := client("\n  Dear hiring team,\nthank you.  \n")
	out, err := c.DraftReply(context.Background(), domain.Reply{Body: "interview?"})
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring team,\nthank you.", out)
}
