package consumers

import (
	"context"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/commentpulse/internal/checkpoint"
	"github.com/spacesedan/commentpulse/internal/clients/kafka_client"
	"github.com/spacesedan/commentpulse/internal/models"
	"github.com/spacesedan/commentpulse/internal/utils"
)

// FetchConsumer handles fetch requests: one pagination cycle per message.
// Running an extra cycle for an entity is always safe, so redelivered
// requests need no dedup.
type FetchConsumer struct {
	manager  *checkpoint.Manager
	producer *kafka_client.Producer
}

func NewFetchConsumer(manager *checkpoint.Manager, producer *kafka_client.Producer) *FetchConsumer {
	return &FetchConsumer{
		manager:  manager,
		producer: producer,
	}
}

func (fc *FetchConsumer) Start(ctx context.Context, consumer *kafka.Consumer) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[FetchConsumer] Listening for fetch requests...")

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[FetchConsumer] Stopping consumer...")
			return
		default:
			msg, err := iterator.Next()
			if err != nil {
				utils.HandleConsumerError(err)
				continue
			}

			var request models.FetchRequest
			if err := utils.DeserializeFromJSON(msg.Value, &request); err != nil {
				// Unparseable request: commit so it is not redelivered forever.
				_ = committer.Commit(msg)
				continue
			}

			result, err := fc.manager.RunCycle(ctx, request.EntityID)
			if err != nil {
				// Offset stays uncommitted; redelivery retries the cycle.
				slog.Error("[FetchConsumer] Cycle failed",
					slog.String("entity_id", request.EntityID),
					slog.String("error", err.Error()))
				continue
			}

			if len(result.DedupKeys) > 0 {
				notification := models.BatchIngested{
					EntityID:  result.EntityID,
					DedupKeys: result.DedupKeys,
				}
				if err := fc.producer.Publish(kafka_client.KAFKA_TOPIC_BATCH_INGESTED, result.EntityID, notification); err != nil {
					slog.Error("[FetchConsumer] Failed to publish batch-ingested",
						slog.String("entity_id", result.EntityID),
						slog.String("error", err.Error()))
					// Redelivery refetches the page; dedup ingestion absorbs it.
					continue
				}
			}

			if err := committer.Commit(msg); err != nil {
				slog.Warn("[FetchConsumer] Failed to commit offset",
					slog.String("error", err.Error()))
			}
		}
	}
}
