// Package fetch collects article headlines: URL discovery by date,
// article field extraction, and bundling per date. These are thin
// collaborators around the scoring pipeline; any single URL failing is
// logged and skipped.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/quantpulse/jumpsent/internal/models"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/115.0.0.0 Safari/537.36"

// Selector fallbacks tried in order; news sites move their markup around,
// so the parser keeps several generations of selectors alive.
var (
	titleSelectors   = []string{"h1", ".headline", ".story-headline", "title"}
	dateSelectors    = []string{"time", ".timestamp", ".story-timestamp", ".date", `[data-testid="timestamp"]`}
	authorSelectors  = []string{".byline__name", ".author-link", ".story-byline", ".byline", `[data-testid="byline"]`}
	contentSelectors = []string{".body-copy", ".story-body", "article", ".content", `[data-module="ArticleBody"]`, ".article-body"}
)

// ArticleFetcher returns one article's extracted fields or a failure.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (models.Article, error)
}

// HTTPFetcher fetches and parses article pages over plain HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: browserUserAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Article{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.doWithRetry(req)
	if err != nil {
		return models.Article{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Article{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.Article{}, fmt.Errorf("failed to parse article HTML: %w", err)
	}

	article := models.Article{
		URL:     url,
		Title:   firstText(doc, titleSelectors),
		Date:    firstText(doc, dateSelectors),
		Author:  firstText(doc, authorSelectors),
		Content: extractContent(doc),
	}
	if article.Title == "" && article.Content == "" {
		return models.Article{}, fmt.Errorf("no extractable content at %s", url)
	}
	return article, nil
}

func (f *HTTPFetcher) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = f.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == 2 {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}

		slog.Warn("[Fetcher] Request failed, will retry",
			slog.String("url", req.URL.String()),
			slog.Int("attempt", attempt+1))
		time.Sleep(backoff)
		backoff *= 2
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}

		var parts []string
		container.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			// very short paragraphs are captions and navigation crumbs
			if len([]rune(text)) > 10 {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}
