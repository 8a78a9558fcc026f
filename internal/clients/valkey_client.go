package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_WATCHLIST_KEY    = "commentpulse:watchlist"
	VALKEY_NOTIFICATION_KEY = "commentpulse:handled:"

	notificationTTLSeconds = 86400
)

type ValkeyClient struct {
	Client valkey.Client
	mu     sync.Mutex
}

func NewValkeyClient() (*ValkeyClient, error) {
	client, err := dialValkey()
	if err != nil {
		return nil, err
	}
	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return &ValkeyClient{Client: client}, nil
}

func dialValkey() (valkey.Client, error) {
	valkeyAddr := os.Getenv("VALKEY_INIT_ADDRESS")
	valkeyPassword := os.Getenv("VALKEY_PASSWORD")
	useTLS := os.Getenv("VALKEY_TLS") == "true"

	opts := valkey.ClientOption{
		InitAddress:      []string{valkeyAddr},
		Password:         valkeyPassword,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if c := client.Do(ctx, client.B().Ping().Build()); c.Error() != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", c.Error())
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	vc.Client.Close()

	client, err := dialValkey()
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) Close() {
	vc.Client.Close()
}

// AddToWatchlist registers an entity for periodic comment fetching.
func (vc *ValkeyClient) AddToWatchlist(ctx context.Context, entityID string) error {
	res := vc.DoWithRetry(ctx, vc.Client.B().Sadd().Key(VALKEY_WATCHLIST_KEY).Member(entityID).Build(), 3)
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] Failed to add %s to watchlist: %w", entityID, err)
	}
	return nil
}

// Watchlist returns every entity currently tracked for fetching.
func (vc *ValkeyClient) Watchlist(ctx context.Context) ([]string, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Smembers().Key(VALKEY_WATCHLIST_KEY).Build(), 3)
	if err := res.Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return nil, fmt.Errorf("[ValkeyClient] Failed to read watchlist: %w", err)
	}
	return res.AsStrSlice()
}

// MarkNotificationHandled records a handled notification for a day, as a
// fast-path skip hint for redeliveries. The handlers themselves stay
// idempotent; this only saves work.
func (vc *ValkeyClient) MarkNotificationHandled(ctx context.Context, notificationID string) error {
	key := VALKEY_NOTIFICATION_KEY + notificationID
	res := vc.DoWithRetry(ctx, vc.Client.B().Set().Key(key).Value("1").ExSeconds(notificationTTLSeconds).Build(), 3)
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] Failed to mark notification handled: %w", err)
	}
	return nil
}

// WasNotificationHandled reports whether the notification was already
// handled. Errors read as "not handled": the worst case is redundant work.
func (vc *ValkeyClient) WasNotificationHandled(ctx context.Context, notificationID string) bool {
	key := VALKEY_NOTIFICATION_KEY + notificationID
	res := vc.DoWithRetry(ctx, vc.Client.B().Exists().Key(key).Build(), 3)
	if err := res.Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return false
	}
	n, err := res.AsInt64()
	if err != nil {
		return false
	}
	return n > 0
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		if result.Error() == nil {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
