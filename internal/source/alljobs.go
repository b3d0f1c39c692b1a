package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

type AllJobs struct {
	src     config.Source
	limiter *HostLimiter
}

func NewAllJobs(src config.Source, limiter *HostLimiter) Fetcher {
	return &AllJobs{src: src, limiter: limiter}
}

func (a *AllJobs) Name() string { return "alljobs" }

func (a *AllJobs) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := fetchDoc(ctx, a.limiter, a.src.URL)
	if err != nil {
		return nil, err
	}

	var out []domain.Posting
	doc.Find(".search-result-item").Each(func(_ int, card *goquery.Selection) {
		t := card.Find("h3.job-title").First()
		l := card.Find("a.job-item-vacancy-title").First()
		href, ok := l.Attr("href")
		if t.Length() == 0 || !ok || href == "" {
			return
		}
		out = append(out, domain.Posting{
			Source: a.Name(),
			Title:  cleanText(t.Text()),
			Link:   absLink(href, "https://www.alljobs.co.il"),
		})
	})
	return out, nil
}
