package consumers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/commentpulse/internal/clients"
	"github.com/spacesedan/commentpulse/internal/clients/kafka_client"
	"github.com/spacesedan/commentpulse/internal/enrichment"
	"github.com/spacesedan/commentpulse/internal/models"
	"github.com/spacesedan/commentpulse/internal/utils"
)

// EnrichmentConsumer handles batch-ingested notifications: it scores each
// referenced comment and, once anything new is enriched, signals that
// aggregation is due. Valkey remembers handled notifications as a fast-path
// skip; the enricher's already-enriched check is the actual idempotence.
type EnrichmentConsumer struct {
	enricher *enrichment.Enricher
	producer *kafka_client.Producer
	valkey   *clients.ValkeyClient
}

func NewEnrichmentConsumer(enricher *enrichment.Enricher, producer *kafka_client.Producer, valkey *clients.ValkeyClient) *EnrichmentConsumer {
	return &EnrichmentConsumer{
		enricher: enricher,
		producer: producer,
		valkey:   valkey,
	}
}

func (ec *EnrichmentConsumer) Start(ctx context.Context, consumer *kafka.Consumer) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[EnrichmentConsumer] Listening for ingested batches...")

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[EnrichmentConsumer] Stopping consumer...")
			return
		default:
			msg, err := iterator.Next()
			if err != nil {
				utils.HandleConsumerError(err)
				continue
			}

			var notification models.BatchIngested
			if err := utils.DeserializeFromJSON(msg.Value, &notification); err != nil {
				_ = committer.Commit(msg)
				continue
			}

			notificationID := batchNotificationID(notification)
			if ec.valkey.WasNotificationHandled(ctx, notificationID) {
				slog.Info("[EnrichmentConsumer] Notification already handled, skipping",
					slog.String("entity_id", notification.EntityID))
				_ = committer.Commit(msg)
				continue
			}

			summary, err := ec.enricher.EnrichBatch(ctx, notification.EntityID, notification.DedupKeys)
			if err != nil {
				slog.Error("[EnrichmentConsumer] Batch enrichment failed",
					slog.String("entity_id", notification.EntityID),
					slog.String("error", err.Error()))
				continue
			}

			if summary.Enriched > 0 {
				due := models.AggregationDue{EntityID: notification.EntityID}
				if err := ec.producer.Publish(kafka_client.KAFKA_TOPIC_AGGREGATION_DUE, notification.EntityID, due); err != nil {
					slog.Error("[EnrichmentConsumer] Failed to publish aggregation-due",
						slog.String("entity_id", notification.EntityID),
						slog.String("error", err.Error()))
					continue
				}
			}

			if err := ec.valkey.MarkNotificationHandled(ctx, notificationID); err != nil {
				slog.Warn("[EnrichmentConsumer] Failed to mark notification handled",
					slog.String("error", err.Error()))
			}

			if err := committer.Commit(msg); err != nil {
				slog.Warn("[EnrichmentConsumer] Failed to commit offset",
					slog.String("error", err.Error()))
			}
		}
	}
}

func batchNotificationID(n models.BatchIngested) string {
	sum := sha256.Sum256([]byte(n.EntityID + "|" + strings.Join(n.DedupKeys, ",")))
	return hex.EncodeToString(sum[:])
}
