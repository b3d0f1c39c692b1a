package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

type LinkedIn struct {
	src     config.Source
	limiter *HostLimiter
}

func NewLinkedIn(src config.Source, limiter *HostLimiter) Fetcher {
	return &LinkedIn{src: src, limiter: limiter}
}

func (l *LinkedIn) Name() string { return "linkedin" }

func (l *LinkedIn) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := fetchDoc(ctx, l.limiter, l.src.URL)
	if err != nil {
		return nil, err
	}

	var out []domain.Posting
	doc.Find("ul.jobs-search__results-list li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a.base-card__full-link").First()
		t := li.Find("h3.base-search-card__title").First()
		href, ok := a.Attr("href")
		if !ok || href == "" || t.Length() == 0 {
			return
		}
		out = append(out, domain.Posting{
			Source: l.Name(),
			Title:  cleanText(t.Text()),
			Link:   href,
		})
	})
	return out, nil
}
