package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/commentpulse/internal/aggregation"
	"github.com/spacesedan/commentpulse/internal/clients/kafka_client"
	"github.com/spacesedan/commentpulse/internal/models"
	"github.com/spacesedan/commentpulse/internal/utils"
)

// AggregationConsumer handles aggregation-due notifications. Notifications
// for the same entity arriving in a burst are coalesced into one engine run;
// the strict processed_at > checkpoint filter makes the extra notifications
// no-ops anyway, coalescing just skips the redundant reads.
type AggregationConsumer struct {
	engine       *aggregation.Engine
	entityBuffer *utils.BatchBuffer[string]
}

func NewAggregationConsumer(engine *aggregation.Engine) *AggregationConsumer {
	return &AggregationConsumer{
		engine:       engine,
		entityBuffer: utils.NewBatchBuffer[string](),
	}
}

func (ac *AggregationConsumer) Start(ctx context.Context, consumer *kafka.Consumer) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[AggregationConsumer] Listening for aggregation triggers...")

	ticker := time.NewTicker(utils.BATCH_TIMEOUT)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[AggregationConsumer] Stopping consumer...")
			ac.drainBuffer(ctx, committer)
			return
		case <-ticker.C:
			ac.drainBuffer(ctx, committer)
		default:
			msg, err := iterator.Next()
			if err != nil {
				utils.HandleConsumerError(err)
				continue
			}

			var due models.AggregationDue
			if err := utils.DeserializeFromJSON(msg.Value, &due); err != nil {
				_ = committer.Commit(msg)
				continue
			}

			utils.TrackMessage(due.EntityID, msg)
			ac.entityBuffer.Add(due.EntityID)

			if ac.entityBuffer.Size() >= utils.BATCH_SIZE {
				ac.drainBuffer(ctx, committer)
			}
		}
	}
}

func (ac *AggregationConsumer) drainBuffer(ctx context.Context, committer *kafka_client.KafkaCommitHandler) {
	batch := ac.entityBuffer.GetAndClear()
	if len(batch) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(batch))
	for _, entityID := range batch {
		if _, dup := seen[entityID]; dup {
			continue
		}
		seen[entityID] = struct{}{}

		outcome, err := ac.engine.Aggregate(ctx, entityID)
		if err != nil {
			// Leave the tracked offset uncommitted so the trigger redelivers.
			slog.Error("[AggregationConsumer] Aggregation failed",
				slog.String("entity_id", entityID),
				slog.String("error", err.Error()))
			continue
		}
		if outcome.NoOp {
			slog.Info("[AggregationConsumer] Trigger was a no-op",
				slog.String("entity_id", entityID))
		}

		trackedMsg, found := utils.GetMessageForEntity(entityID)
		if found {
			if err := committer.Commit(trackedMsg); err != nil {
				slog.Warn("[AggregationConsumer] Failed to commit offset",
					slog.String("error", err.Error()))
			}
		}
	}
}
