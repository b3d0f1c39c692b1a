package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

type Glassdoor struct {
	src     config.Source
	limiter *HostLimiter
}

func NewGlassdoor(src config.Source, limiter *HostLimiter) Fetcher {
	return &Glassdoor{src: src, limiter: limiter}
}

func (g *Glassdoor) Name() string { return "glassdoor" }

func (g *Glassdoor) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := fetchDoc(ctx, g.limiter, g.src.URL)
	if err != nil {
		return nil, err
	}

	var out []domain.Posting
	doc.Find("li.react-job-listing").Each(func(_ int, card *goquery.Selection) {
		a := card.Find("a.job-link").First()
		span := card.Find("a > span").First()
		href, ok := a.Attr("href")
		if !ok || href == "" || span.Length() == 0 {
			return
		}
		out = append(out, domain.Posting{
			Source: g.Name(),
			Title:  cleanText(span.Text()),
			Link:   absLink(href, "https://www.glassdoor.com"),
		})
	})
	return out, nil
}
