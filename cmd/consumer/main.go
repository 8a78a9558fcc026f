package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/commentpulse/config"
	"github.com/spacesedan/commentpulse/internal/aggregation"
	"github.com/spacesedan/commentpulse/internal/checkpoint"
	"github.com/spacesedan/commentpulse/internal/clients"
	"github.com/spacesedan/commentpulse/internal/clients/kafka_client"
	"github.com/spacesedan/commentpulse/internal/consumers"
	"github.com/spacesedan/commentpulse/internal/enrichment"
	"github.com/spacesedan/commentpulse/internal/ingestion"
	"github.com/spacesedan/commentpulse/internal/logging"
	"github.com/spacesedan/commentpulse/internal/source"
	"github.com/spacesedan/commentpulse/internal/store"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := kafka_client.GetKafkaConfig()

	dynamoClient, err := clients.NewDynamoDBClient(ctx)
	if err != nil {
		slog.Error("[Main] Failed to initialize DynamoDB client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	valkeyClient, err := clients.NewValkeyClient()
	if err != nil {
		slog.Error("[Main] Failed to initialize Valkey client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(cfg)
		if err == nil {
			break
		}
		slog.Warn("Kafka init failed, retrying...", slog.String("error", err.Error()))
		time.Sleep(5 * time.Second)
	}
	defer producer.Close()

	commentStore := store.NewCommentStore(dynamoClient)
	aggregateStore := store.NewAggregateStore(dynamoClient)
	checkpointStore := store.NewCheckpointStore(dynamoClient)

	ingestor := ingestion.NewIngestor(commentStore)
	manager := checkpoint.NewManager(source.NewYouTubeClient(), ingestor, checkpointStore)
	enricher := enrichment.NewEnricher(enrichment.NewVADERClassifier(), commentStore)
	engine := aggregation.NewEngine(aggregateStore, commentStore)

	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_FETCH_REQUESTS,
		consumers.NewFetchConsumer(manager, producer).Start)
	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_BATCH_INGESTED,
		consumers.NewEnrichmentConsumer(enricher, producer, valkeyClient).Start)
	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_AGGREGATION_DUE,
		consumers.NewAggregationConsumer(engine).Start)

	if err := kafka_client.StartConsumer(ctx, cfg); err != nil {
		slog.Error("[Main] Failed to start consumer",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
}
