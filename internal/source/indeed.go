package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

type Indeed struct {
	src     config.Source
	limiter *HostLimiter
}

func NewIndeed(src config.Source, limiter *HostLimiter) Fetcher {
	return &Indeed{src: src, limiter: limiter}
}

func (i *Indeed) Name() string { return "indeed" }

func (i *Indeed) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := fetchDoc(ctx, i.limiter, i.src.URL)
	if err != nil {
		return nil, err
	}

	var out []domain.Posting
	doc.Find("a.tapItem").Each(func(_ int, card *goquery.Selection) {
		t := card.Find("h2.jobTitle span[title]").First()
		href, _ := card.Attr("href")
		if t.Length() == 0 || href == "" {
			return
		}
		out = append(out, domain.Posting{
			Source: i.Name(),
			Title:  cleanText(t.Text()),
			Link:   absLink(href, "https://il.indeed.com"),
		})
	})
	return out, nil
}
