package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// URLDiscovery yields candidate article URLs published on one date
// (YYYY-MM-DD).
type URLDiscovery interface {
	URLsForDate(ctx context.Context, date string, max int) ([]string, error)
}

// SitemapDiscovery walks a news sitemap index and collects article URLs
// whose lastmod falls on the requested date.
type SitemapDiscovery struct {
	indexURL  string
	client    *http.Client
	userAgent string
}

func NewSitemapDiscovery(indexURL string, timeout time.Duration) *SitemapDiscovery {
	return &SitemapDiscovery{
		indexURL:  indexURL,
		client:    &http.Client{Timeout: timeout},
		userAgent: browserUserAgent,
	}
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	URLs []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

func (d *SitemapDiscovery) URLsForDate(ctx context.Context, date string, max int) ([]string, error) {
	var index sitemapIndex
	if err := d.getXML(ctx, d.indexURL, &index); err != nil {
		return nil, fmt.Errorf("failed to read sitemap index: %w", err)
	}
	slog.Info("[Discovery] Sitemap index loaded",
		slog.Int("sitemaps", len(index.Sitemaps)))

	// Only sitemaps covering the target month, plus the rolling ones,
	// are worth downloading.
	yearMonth := monthTag(date)

	var urls []string
	for _, sm := range index.Sitemaps {
		if len(urls) >= max {
			break
		}
		if !strings.Contains(sm.Loc, yearMonth) &&
			!strings.Contains(sm.Loc, "sitemap_recent") &&
			!strings.Contains(sm.Loc, "sitemap_news") {
			continue
		}

		var entries urlSet
		if err := d.getXML(ctx, sm.Loc, &entries); err != nil {
			slog.Warn("[Discovery] Skipping unreadable sitemap",
				slog.String("sitemap", sm.Loc),
				slog.String("error", err.Error()))
			continue
		}

		for _, entry := range entries.URLs {
			if strings.HasPrefix(entry.LastMod, date) {
				urls = append(urls, entry.Loc)
				if len(urls) >= max {
					break
				}
			}
		}
	}

	slog.Info("[Discovery] Article URLs discovered",
		slog.String("date", date),
		slog.Int("count", len(urls)))
	return urls, nil
}

func (d *SitemapDiscovery) getXML(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return xml.Unmarshal(body, out)
}

// monthTag turns "2025-09-24" into the "sitemap_2025_9" fragment used in
// sitemap file names.
func monthTag(date string) string {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) < 2 {
		return "sitemap_"
	}
	month := strings.TrimPrefix(parts[1], "0")
	return fmt.Sprintf("sitemap_%s_%s", parts[0], month)
}

// FeedDiscovery reads RSS/Atom feeds and keeps the links published on the
// requested date. Useful for sources without a sitemap index.
type FeedDiscovery struct {
	parser   *gofeed.Parser
	feedURLs []string
}

func NewFeedDiscovery(feedURLs []string) *FeedDiscovery {
	parser := gofeed.NewParser()
	parser.UserAgent = browserUserAgent
	return &FeedDiscovery{parser: parser, feedURLs: feedURLs}
}

func (d *FeedDiscovery) URLsForDate(ctx context.Context, date string, max int) ([]string, error) {
	var urls []string
	for _, feedURL := range d.feedURLs {
		feed, err := d.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			slog.Warn("[Discovery] Skipping unreadable feed",
				slog.String("feed", feedURL),
				slog.String("error", err.Error()))
			continue
		}

		for _, item := range feed.Items {
			if item.PublishedParsed == nil || item.Link == "" {
				continue
			}
			if item.PublishedParsed.Format("2006-01-02") != date {
				continue
			}
			urls = append(urls, item.Link)
			if len(urls) >= max {
				return urls, nil
			}
		}
	}
	return urls, nil
}
