package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

type Drushim struct {
	src     config.Source
	limiter *HostLimiter
}

func NewDrushim(src config.Source, limiter *HostLimiter) Fetcher {
	return &Drushim{src: src, limiter: limiter}
}

func (d *Drushim) Name() string { return "drushim" }

func (d *Drushim) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := fetchDoc(ctx, d.limiter, d.src.URL)
	if err != nil {
		return nil, err
	}

	var out []domain.Posting
	doc.Find(".job-list__item").Each(func(_ int, item *goquery.Selection) {
		a := item.Find("a.job-list__link").First()
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		title := cleanText(a.Text())
		if title == "" {
			return
		}
		out = append(out, domain.Posting{
			Source: d.Name(),
			Title:  title,
			Link:   absLink(href, "https://www.drushim.co.il"),
		})
	})
	return out, nil
}
