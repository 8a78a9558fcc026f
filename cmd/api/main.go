package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/spacesedan/commentpulse/config"
	"github.com/spacesedan/commentpulse/internal/clients"
	"github.com/spacesedan/commentpulse/internal/clients/kafka_client"
	"github.com/spacesedan/commentpulse/internal/logging"
	"github.com/spacesedan/commentpulse/internal/models"
	"github.com/spacesedan/commentpulse/internal/source"
	"github.com/spacesedan/commentpulse/internal/store"
)

type apiServer struct {
	valkey      *clients.ValkeyClient
	producer    *kafka_client.Producer
	aggregates  *store.AggregateStore
	checkpoints *store.CheckpointStore
}

type trackRequest struct {
	VideoURL string `json:"video_url"`
}

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := clients.NewDynamoDBClient(ctx)
	if err != nil {
		slog.Error("[API] Failed to initialize DynamoDB client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	valkeyClient, err := clients.NewValkeyClient()
	if err != nil {
		slog.Error("[API] Failed to initialize Valkey client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

	producer, err := kafka_client.NewProducer(kafka_client.GetKafkaConfig())
	if err != nil {
		slog.Error("[API] Failed to initialize Kafka producer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer producer.Close()

	srv := &apiServer{
		valkey:      valkeyClient,
		producer:    producer,
		aggregates:  store.NewAggregateStore(dynamoClient),
		checkpoints: store.NewCheckpointStore(dynamoClient),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/videos", srv.trackVideo)
	e.GET("/videos/:id/score", srv.getScore)
	e.POST("/videos/:id/reset", srv.resetPagination)

	addr := ":" + os.Getenv("API_PORT")
	if addr == ":" {
		addr = ":8080"
	}

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[API] Server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("[API] Shutdown failed", slog.String("error", err.Error()))
	}
}

// trackVideo registers a video on the watchlist and kicks off an immediate
// fetch cycle for it.
func (s *apiServer) trackVideo(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil || req.VideoURL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No video URL provided."})
	}

	videoID, err := source.VideoIDFromURL(req.VideoURL)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid YouTube URL. Please provide a valid video URL."})
	}

	ctx := c.Request().Context()
	if err := s.valkey.AddToWatchlist(ctx, videoID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	request := models.FetchRequest{EntityID: videoID}
	if err := s.producer.Publish(kafka_client.KAFKA_TOPIC_FETCH_REQUESTS, videoID, request); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, echo.Map{"entity_id": videoID})
}

func (s *apiServer) getScore(c echo.Context) error {
	agg, err := s.aggregates.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if agg == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No score for this video yet."})
	}
	return c.JSON(http.StatusOK, agg)
}

// resetPagination clears the stored continuation state so the next fetch
// cycle re-reads the video's comments from the beginning. Existing comments
// are untouched; re-ingesting them is a no-op by dedup key.
func (s *apiServer) resetPagination(c echo.Context) error {
	entityID := c.Param("id")
	if err := s.checkpoints.Delete(c.Request().Context(), entityID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	request := models.FetchRequest{EntityID: entityID}
	if err := s.producer.Publish(kafka_client.KAFKA_TOPIC_FETCH_REQUESTS, entityID, request); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"entity_id": entityID})
}
