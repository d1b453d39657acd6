package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/quantpulse/jumpsent/internal/models"
)

const publishRetries = 3

// KafkaPublisher streams scored row results onto a results topic so
// downstream consumers can pick them up without reading the output CSV.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	buffer   *ChunkBuffer[models.RowResult]
}

func NewKafkaPublisher(broker, topic string) (*KafkaPublisher, error) {
	slog.Info("[KafkaPublisher] Initializing Kafka producer...",
		slog.String("broker", broker),
		slog.String("topic", topic))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaPublisher] failed to create producer: %w", err)
	}

	return &KafkaPublisher{
		producer: p,
		topic:    topic,
		buffer:   NewChunkBuffer[models.RowResult](DefaultChunkSize),
	}, nil
}

// Publish buffers results and sends them to the topic in bounded chunks,
// one JSON-encoded message per chunk.
func (k *KafkaPublisher) Publish(results []models.RowResult) error {
	k.buffer.Add(results...)

	for {
		chunk := k.buffer.NextChunk()
		if chunk == nil {
			return nil
		}
		if err := k.publishChunk(chunk); err != nil {
			return err
		}
	}
}

func (k *KafkaPublisher) publishChunk(chunk []models.RowResult) error {
	jsonData, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("[KafkaPublisher] failed to marshal chunk: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(chunk[0].RowKey),
		Value:          jsonData,
	}

	for i := 0; i < publishRetries; i++ {
		err = k.producer.Produce(msg, nil)
		if err == nil {
			return nil
		}
		slog.Warn("[KafkaPublisher] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("[KafkaPublisher] failed to produce chunk after retries: %w", err)
}

func (k *KafkaPublisher) Close() {
	slog.Info("[KafkaPublisher] Flushing Kafka producer before shutdown...")
	if remaining := k.producer.Flush(5000); remaining > 0 {
		slog.Warn("[KafkaPublisher] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	k.producer.Close()
}
