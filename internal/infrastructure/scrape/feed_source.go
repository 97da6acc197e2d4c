package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

// Feed is one public channel mirror page to pull posts from.
type Feed struct {
	Name string
	URL  string
	Lang string
}

// FeedSource scrapes channel preview pages and extracts posts for a time
// window. Pages render newest posts first inside .tgme_widget_message blocks.
type FeedSource struct {
	client *http.Client
	feeds  []Feed
}

var _ ports.PostSource = (*FeedSource)(nil)

// NewFeedSource wires an HTTP client; a nil client gets a 20s-timeout default.
func NewFeedSource(client *http.Client, feeds []Feed) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &FeedSource{client: client, feeds: feeds}
}

// FetchWindow pulls every configured feed and keeps posts whose timestamp
// falls inside [from, to]. Posts without text or timestamp are skipped.
func (s *FeedSource) FetchWindow(ctx context.Context, from, to time.Time) ([]domain.Post, error) {
	if len(s.feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	results := make([]domain.Post, 0)
	for _, feed := range s.feeds {
		doc, err := s.fetchDocument(ctx, feed.URL)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
		}
		results = append(results, extractPosts(doc, feed, from, to)...)
	}

	return results, nil
}

func (s *FeedSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "GeoGlobe/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractPosts(doc *goquery.Document, feed Feed, from, to time.Time) []domain.Post {
	var collected []domain.Post

	doc.Find(".tgme_widget_message").Each(func(i int, msg *goquery.Selection) {
		text := strings.TrimSpace(msg.Find(".tgme_widget_message_text").First().Text())
		if text == "" {
			return
		}

		stamp, ok := msg.Find("time[datetime]").First().Attr("datetime")
		if !ok {
			return
		}
		createdAt, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return
		}

		if createdAt.Before(from) || createdAt.After(to) {
			return
		}

		collected = append(collected, domain.Post{
			TextRaw:   text,
			Source:    feed.Name,
			Lang:      feed.Lang,
			CreatedAt: createdAt,
		})
	})

	return collected
}
