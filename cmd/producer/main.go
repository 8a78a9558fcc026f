package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spacesedan/commentpulse/config"
	"github.com/spacesedan/commentpulse/internal/clients"
	"github.com/spacesedan/commentpulse/internal/clients/kafka_client"
	"github.com/spacesedan/commentpulse/internal/logging"
	"github.com/spacesedan/commentpulse/internal/models"
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

	var producer *kafka_client.Producer
	var err error
	for {
		producer, err = kafka_client.NewProducer(kafka_client.GetKafkaConfig())
		if err == nil {
			break
		}
		slog.Warn("Kafka init failed, retrying...", slog.String("error", err.Error()))
		time.Sleep(5 * time.Second)
	}
	defer producer.Close()

	valkeyClient, err := clients.NewValkeyClient()
	if err != nil {
		slog.Error("[Producer] Failed to initialize Valkey client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

	fetchInterval, err := strconv.Atoi(os.Getenv("COMMENT_FETCH_INTERVAL"))
	if err != nil {
		fetchInterval = 1800 // Default to 30 minutes (in seconds)
	}

	fetchTicker := time.NewTicker(time.Duration(fetchInterval) * time.Second)
	defer fetchTicker.Stop()

	// Kick off one round on startup so a fresh watchlist is not stuck
	// waiting for the first tick.
	publishFetchRequests(ctx, valkeyClient, producer)

	for {
		select {
		case <-fetchTicker.C:
			publishFetchRequests(ctx, valkeyClient, producer)
		case <-ctx.Done():
			slog.Info("Shutting down producer gracefully...")
			return
		}
	}
}

func publishFetchRequests(ctx context.Context, valkeyClient *clients.ValkeyClient, producer *kafka_client.Producer) {
	watchlist, err := valkeyClient.Watchlist(ctx)
	if err != nil {
		slog.Error("[Producer] Failed to read watchlist", slog.String("error", err.Error()))
		return
	}

	for _, entityID := range watchlist {
		request := models.FetchRequest{EntityID: entityID}
		if err := producer.Publish(kafka_client.KAFKA_TOPIC_FETCH_REQUESTS, entityID, request); err != nil {
			slog.Error("[Producer] Failed to publish fetch request",
				slog.String("entity_id", entityID),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("[Producer] Fetch round published", slog.Int("entities", len(watchlist)))
}
