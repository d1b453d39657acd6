package fetch

import (
	"context"
	"log/slog"
	"strings"
)

// Bundle is one date's headlines joined by the dataset delimiter, ready
// to become a dataset row.
type Bundle struct {
	Date    string
	Titles  string
	Found   int
	Skipped int
}

// BuildBundles discovers and fetches every article for each date and
// joins the titles into one delimiter-separated bundle per date. A failed
// URL is skipped, never fatal; a date with no reachable articles yields
// an empty bundle.
func BuildBundles(ctx context.Context, discovery URLDiscovery, fetcher ArticleFetcher, dates []string, maxPerDate int, delimiter rune) ([]Bundle, error) {
	bundles := make([]Bundle, 0, len(dates))

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bundle := Bundle{Date: date}
		urls, err := discovery.URLsForDate(ctx, date, maxPerDate)
		if err != nil {
			slog.Warn("[Bundles] Discovery failed for date, emitting empty bundle",
				slog.String("date", date),
				slog.String("error", err.Error()))
			bundles = append(bundles, bundle)
			continue
		}

		var titles []string
		for _, url := range urls {
			article, err := fetcher.Fetch(ctx, url)
			if err != nil {
				slog.Warn("[Bundles] Skipping article",
					slog.String("url", url),
					slog.String("error", err.Error()))
				bundle.Skipped++
				continue
			}
			if article.Title != "" {
				titles = append(titles, article.Title)
				bundle.Found++
			}
		}

		bundle.Titles = strings.Join(titles, string(delimiter))
		bundles = append(bundles, bundle)

		slog.Info("[Bundles] Date bundled",
			slog.String("date", date),
			slog.Int("titles", bundle.Found),
			slog.Int("skipped", bundle.Skipped))
	}

	return bundles, nil
}
