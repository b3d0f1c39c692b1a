package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLinkedInParsesResultCards(t *testing.T) {
	srv := serveHTML(t, `
<ul class="jobs-search__results-list">
  <li>
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/123?refId=abc"></a>
    <h3 class="base-search-card__title">
      Backend Engineer
    </h3>
  </li>
  <li>
    <a class="base-card__full-link" href=""></a>
    <h3 class="base-search-card__title">broken card</h3>
  </li>
  <li>
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/456"></a>
    <h3 class="base-search-card__title">Platform Engineer</h3>
  </li>
</ul>`)

	f := NewLinkedIn(config.Source{Name: "linkedin", URL: srv.URL}, NewHostLimiter(100, 10))
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2, "cards without a link are skipped")
	assert.Equal(t, domain.Posting{
		Source: "linkedin",
		Title:  "Backend Engineer",
		Link:   "https://www.linkedin.com/jobs/view/123?refId=abc",
	}, got[0])
	assert.Equal(t, "Platform Engineer", got[1].Title)
}

func TestFetchDocRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	f := NewLinkedIn(config.Source{Name: "linkedin", URL: srv.URL}, NewHostLimiter(100, 10))
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRegistryBuildPreservesConfigOrder(t *testing.T) {
	r := Default()
	fetchers, err := r.Build([]config.Source{
		{Name: "drushim", URL: "https://www.drushim.co.il/jobs", Enabled: true},
		{Name: "linkedin", URL: "https://www.linkedin.com/jobs", Enabled: false},
		{Name: "alljobs", URL: "https://www.alljobs.co.il/x", Enabled: true},
	}, NewHostLimiter(1, 1))
	require.NoError(t, err)

	require.Len(t, fetchers, 2)
	assert.Equal(t, "drushim", fetchers[0].Name())
	assert.Equal(t, "alljobs", fetchers[1].Name())
}

func TestRegistryBuildRejectsUnknownSource(t *testing.T) {
	r := Default()
	_, err := r.Build([]config.Source{
		{Name: "monster", URL: "https://example.com", Enabled: true},
	}, NewHostLimiter(1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monster")
}

func TestAbsLinkResolvesRelativeHrefs(t *testing.T) {
	assert.Equal(t, "https://www.alljobs.co.il/job/123",
		absLink("/job/123", "https://www.alljobs.co.il"))
	assert.Equal(t, "https://other.example.com/j/9",
		absLink("https://other.example.com/j/9", "https://www.alljobs.co.il"))
	assert.Equal(t, "", absLink("  ", "https://www.alljobs.co.il"))
}
