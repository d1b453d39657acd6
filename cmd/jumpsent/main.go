// jumpsent — batch sentiment scoring for news-headline datasets and
// correlation against market jump width.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantpulse/jumpsent/config"
	"github.com/quantpulse/jumpsent/internal/analysis"
	"github.com/quantpulse/jumpsent/internal/classifier"
	"github.com/quantpulse/jumpsent/internal/dataset"
	"github.com/quantpulse/jumpsent/internal/fetch"
	"github.com/quantpulse/jumpsent/internal/logging"
	"github.com/quantpulse/jumpsent/internal/models"
	"github.com/quantpulse/jumpsent/internal/pipeline"
	"github.com/quantpulse/jumpsent/internal/sentiment"
	"github.com/quantpulse/jumpsent/internal/store"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jumpsent",
	Short: "Score news-headline sentiment and correlate it with jump width",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "dev"
		}
		config.LoadEnv(env)
		logging.InitLogger()
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jumpsent %s\n", version)
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the batch sentiment pipeline over a CSV dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		limit, _ := cmd.Flags().GetInt("limit")
		workers, _ := cmd.Flags().GetInt("workers")
		kind, _ := cmd.Flags().GetString("classifier")
		weighting, _ := cmd.Flags().GetString("weighting")
		bundleColumn, _ := cmd.Flags().GetString("bundle-column")
		keyColumn, _ := cmd.Flags().GetString("key-column")
		publish, _ := cmd.Flags().GetBool("publish-results")
		persist, _ := cmd.Flags().GetBool("store-results")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		table, err := dataset.Load(input)
		if err != nil {
			return err
		}
		slog.Info("[Analyze] Dataset loaded",
			slog.String("path", input),
			slog.Int("rows", len(table.Rows)))

		cls, cleanup, err := buildClassifier(kind, workers)
		if err != nil {
			return err
		}
		defer cleanup()

		weight, err := weightingFor(weighting)
		if err != nil {
			return err
		}
		scorer := sentiment.NewScorer(cls,
			sentiment.WithWeighting(weight),
			sentiment.WithTimeout(scoreTimeout()))
		processor := pipeline.New(scorer,
			pipeline.WithWorkers(workers),
			pipeline.WithDelimiter(pipeline.DefaultDelimiter))

		results, summary, err := processor.Run(ctx, table, bundleColumn, limit)
		if err != nil {
			return err
		}

		if err := dataset.Write(output, table); err != nil {
			return err
		}
		slog.Info("[Analyze] Results written",
			slog.String("path", output),
			slog.Int("rows", summary.TotalRows))

		// Optional sinks: failures here are operational, the batch output
		// on disk is already complete.
		rowResults := pipeline.RowResults(table, keyColumn, results)
		if publish {
			publishResults(rowResults)
		}
		if persist {
			persistResults(ctx, rowResults)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("input", "data_with_news_titles.csv", "input CSV path")
	analyzeCmd.Flags().String("output", "data_with_sentiment_scores.csv", "output CSV path")
	analyzeCmd.Flags().Int("limit", 0, "process only the first N rows (0 = all; dry runs)")
	analyzeCmd.Flags().Int("workers", 1, "concurrent rows (1 = sequential)")
	analyzeCmd.Flags().String("classifier", "local", "classifier backend: local, remote, vader, openai")
	analyzeCmd.Flags().String("weighting", "signed", "score weighting: signed (P(pos)-P(neg)) or scaled (neutral-discounted)")
	analyzeCmd.Flags().String("bundle-column", "news_titles", "column holding the |-joined headlines")
	analyzeCmd.Flags().String("key-column", "date", "column used as the result key for sinks")
	analyzeCmd.Flags().Bool("publish-results", false, "publish row results to the Kafka results topic")
	analyzeCmd.Flags().Bool("store-results", false, "persist row results to DynamoDB")
}

func buildClassifier(kind string, workers int) (classifier.Classifier, func(), error) {
	cleanup := func() {}
	var cls classifier.Classifier

	switch kind {
	case "local":
		local, err := classifier.NewLocal(os.Getenv("MODEL_DIR"), os.Getenv("MODEL_NAME"))
		if err != nil {
			return nil, nil, err
		}
		cleanup = local.Close
		cls = local
		if workers > 1 {
			// the ONNX pipeline is shared across workers but is not
			// reentrant
			cls = classifier.Serialize(local)
		}
	case "remote":
		endpoint := os.Getenv("SENTIMENT_ENDPOINT")
		if endpoint == "" {
			return nil, nil, fmt.Errorf("remote classifier needs SENTIMENT_ENDPOINT")
		}
		cls = classifier.NewRemote(endpoint, scoreTimeout())
	case "vader":
		cls = classifier.NewVader()
	case "openai":
		oa, err := classifier.NewOpenAI(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
		if err != nil {
			return nil, nil, err
		}
		cls = oa
	default:
		return nil, nil, fmt.Errorf("unknown classifier %q", kind)
	}

	if addr := os.Getenv("VALKEY_INIT_ADDRESS"); addr != "" {
		cached, err := classifier.NewCached(cls,
			addr,
			os.Getenv("VALKEY_PASSWORD"),
			os.Getenv("VALKEY_TLS") == "true")
		if err != nil {
			return nil, nil, err
		}
		inner := cleanup
		cleanup = func() {
			cached.Close()
			inner()
		}
		cls = cached
	}

	return cls, cleanup, nil
}

func weightingFor(name string) (sentiment.Weighting, error) {
	switch name {
	case "signed", "":
		return sentiment.SignedDiff, nil
	case "scaled":
		return sentiment.WeightedScale, nil
	default:
		return nil, fmt.Errorf("unknown weighting %q", name)
	}
}

func scoreTimeout() time.Duration {
	raw := config.Get("SCORE_TIMEOUT", "")
	if raw == "" {
		return sentiment.DefaultScoreTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("[Analyze] Invalid SCORE_TIMEOUT, using default",
			slog.String("value", raw))
		return sentiment.DefaultScoreTimeout
	}
	return d
}

// publishResults streams row results to the Kafka results topic. Sink
// failures are logged, never fatal: the CSV on disk is the source of
// truth.
func publishResults(results []models.RowResult) {
	broker := config.Get("KAFKA_BROKER", "localhost:29092")
	topic := config.Get("KAFKA_RESULTS_TOPIC", "sentiment-row-results")

	publisher, err := store.NewKafkaPublisher(broker, topic)
	if err != nil {
		slog.Warn("[Analyze] Kafka publisher unavailable, skipping",
			slog.String("error", err.Error()))
		return
	}
	defer publisher.Close()

	if err := publisher.Publish(results); err != nil {
		slog.Warn("[Analyze] Failed to publish results",
			slog.String("error", err.Error()))
	}
}

// persistResults writes row results to DynamoDB, same degrade-and-log
// policy as publishing.
func persistResults(ctx context.Context, results []models.RowResult) {
	db, err := store.NewDynamo(ctx)
	if err != nil {
		slog.Warn("[Analyze] DynamoDB unavailable, skipping",
			slog.String("error", err.Error()))
		return
	}
	if err := db.StoreResults(ctx, results); err != nil {
		slog.Warn("[Analyze] Failed to store results",
			slog.String("error", err.Error()))
	}
}

// --- correlate ---

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate average sentiment with jump width",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		xName, _ := cmd.Flags().GetString("x")
		yName, _ := cmd.Flags().GetString("y")
		reportPath, _ := cmd.Flags().GetString("report")

		table, err := dataset.Load(input)
		if err != nil {
			return err
		}

		xs, err := columnFloats(table, xName)
		if err != nil {
			return err
		}
		ys, err := columnFloats(table, yName)
		if err != nil {
			return err
		}

		result, err := analysis.Correlate(xs, ys)
		if err != nil {
			return err
		}

		report := analysis.Report(result, xName, yName, analysis.Describe(xs), analysis.Describe(ys))
		fmt.Print(report)

		if reportPath != "" {
			if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			slog.Info("[Correlate] Report written",
				slog.String("path", reportPath))
		}
		return nil
	},
}

func init() {
	correlateCmd.Flags().String("input", "data_with_sentiment_scores.csv", "input CSV path")
	correlateCmd.Flags().String("x", "jump_width", "first column")
	correlateCmd.Flags().String("y", "avg_sentiment_score", "second column")
	correlateCmd.Flags().String("report", "", "optional report file path")
}

func columnFloats(table *dataset.Table, name string) ([]float64, error) {
	col, ok := table.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found in dataset", name)
	}

	values := make([]float64, len(table.Rows))
	for i := range table.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(table.Cell(i, col)), 64)
		if err != nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = v
	}
	return values, nil
}

// --- fetch ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect headline bundles for the dates in a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("dates-from")
		dateColumn, _ := cmd.Flags().GetString("date-column")
		output, _ := cmd.Flags().GetString("output")
		maxPerDate, _ := cmd.Flags().GetInt("max-per-date")
		feeds, _ := cmd.Flags().GetStringSlice("feeds")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		table, err := dataset.Load(input)
		if err != nil {
			return err
		}
		col, ok := table.Column(dateColumn)
		if !ok {
			return fmt.Errorf("date column %q not found in dataset", dateColumn)
		}

		dates := make([]string, 0, len(table.Rows))
		for i := range table.Rows {
			dates = append(dates, strings.TrimSpace(table.Cell(i, col)))
		}

		var discovery fetch.URLDiscovery
		if len(feeds) > 0 {
			discovery = fetch.NewFeedDiscovery(feeds)
		} else {
			indexURL := config.Get("SITEMAP_INDEX_URL",
				"https://www.bloomberg.co.jp/feeds/cojp/sitemap_index.xml")
			discovery = fetch.NewSitemapDiscovery(indexURL, 30*time.Second)
		}
		fetcher := fetch.NewHTTPFetcher(30 * time.Second)

		bundles, err := fetch.BuildBundles(ctx, discovery, fetcher, dates, maxPerDate, pipeline.DefaultDelimiter)
		if err != nil {
			return err
		}

		titleCols := table.EnsureColumns("news_titles")
		for i, bundle := range bundles {
			table.SetCell(i, titleCols[0], bundle.Titles)
		}
		if err := dataset.Write(output, table); err != nil {
			return err
		}
		slog.Info("[Fetch] Bundles written",
			slog.String("path", output),
			slog.Int("dates", len(bundles)))
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("dates-from", "data.csv", "CSV whose date column drives discovery")
	fetchCmd.Flags().String("date-column", "date", "column holding YYYY-MM-DD dates")
	fetchCmd.Flags().String("output", "data_with_news_titles.csv", "output CSV path")
	fetchCmd.Flags().Int("max-per-date", 20, "maximum articles per date")
	fetchCmd.Flags().StringSlice("feeds", nil, "RSS/Atom feed URLs (default: sitemap discovery)")
}
