// Package store holds the optional result sinks: DynamoDB persistence
// and a Kafka results topic. Both are disabled unless configured, and
// their failures never abort a batch run.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/quantpulse/jumpsent/internal/models"
)

const (
	resultsTableName = "SentimentRows"
	maxBatchSize     = 25
)

type Dynamo struct {
	client *dynamodb.Client
	table  string
}

func NewDynamo(ctx context.Context) (*Dynamo, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-west-2"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("[Dynamo] failed to load AWS config: %w", err)
	}

	endpoint := os.Getenv("AWS_ENDPOINT")
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	table := os.Getenv("DYNAMO_RESULTS_TABLE")
	if table == "" {
		table = resultsTableName
	}

	slog.Info("[Dynamo] Result store initialized",
		slog.String("table", table),
		slog.String("region", region))
	return &Dynamo{client: client, table: table}, nil
}

// StoreResults batch-writes row results in chunks of 25, retrying
// unprocessed items with backoff.
func (d *Dynamo) StoreResults(ctx context.Context, results []models.RowResult) error {
	for i := 0; i < len(results); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			slog.Warn("[Dynamo] context canceled")
			return err
		}

		end := min(i+maxBatchSize, len(results))

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, result := range results[i:end] {
			item, err := attributevalue.MarshalMap(result)
			if err != nil {
				return fmt.Errorf("[Dynamo] failed to marshal row %d: %w", result.RowIndex, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				d.table: writeRequests,
			},
		})
		if err != nil {
			return fmt.Errorf("[Dynamo] failed to batch write results: %w", err)
		}

		retryCount := 0
		backoff := 500 * time.Millisecond
		for len(out.UnprocessedItems) > 0 && retryCount < 3 {
			time.Sleep(backoff)
			backoff *= 2
			retryCount++
			slog.Warn("[Dynamo] Retrying unprocessed items...",
				slog.Int("retry_attempt", retryCount),
				slog.Int("remaining", len(out.UnprocessedItems[d.table])))

			out, err = d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[Dynamo] failed to retry unprocessed items: %w", err)
			}
		}
		if len(out.UnprocessedItems) > 0 {
			return fmt.Errorf("[Dynamo] %d items still unprocessed after retries",
				len(out.UnprocessedItems[d.table]))
		}
	}

	slog.Info("[Dynamo] Results stored",
		slog.Int("count", len(results)))
	return nil
}
