package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/perceforge/dotafetch/pkg/cache"
	"github.com/perceforge/dotafetch/pkg/config"
	"github.com/perceforge/dotafetch/pkg/fetcher"
	"github.com/perceforge/dotafetch/pkg/keypool"
	"github.com/perceforge/dotafetch/pkg/logging"
	"github.com/perceforge/dotafetch/pkg/provider"
	"github.com/perceforge/dotafetch/pkg/provider/opendota"
	"github.com/perceforge/dotafetch/pkg/provider/stratz"
	"github.com/perceforge/dotafetch/pkg/ratelimit"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		startupLogger := logging.NewLogger("main")
		startupLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("main")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	connectRedis(redisClient, logger)

	svc, err := buildFetcher(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build fetcher")
	}

	addr := ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Int("stratz_keys", len(cfg.StratzTokens)).
		Msg("Starting stats proxy")

	if err := http.ListenAndServe(addr, newServer(svc)); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// connectRedis pings the store a few times with backoff. The service
// still starts when every attempt fails: the cache and the rate limiter
// fail open, so a late-arriving Redis only costs hit rate.
func connectRedis(client *redis.Client, logger zerolog.Logger) {
	backoff := time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			logger.Info().Str("addr", client.Options().Addr).Msg("Connected to Redis")
			return
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Redis ping failed")
		if attempt < 3 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	logger.Warn().Msg("Redis unreachable, starting degraded (no cache, limits fail open)")
}

func buildFetcher(cfg config.Config, redisClient *redis.Client) (*fetcher.Fetcher, error) {
	primaryCfg := stratz.Config{}
	if cfg.StratzBaseURL != "" {
		primaryCfg.BaseURL = cfg.StratzBaseURL
	}
	secondaryCfg := opendota.Config{}
	if cfg.OpenDotaBaseURL != "" {
		secondaryCfg.BaseURL = cfg.OpenDotaBaseURL
	}

	return fetcher.New(fetcher.Config{
		Cache:           cache.New(redisClient),
		Limiter:         ratelimit.NewLimiter(redisClient),
		Keys:            keypool.New("stratz", cfg.StratzTokens),
		Primary:         stratz.New(primaryCfg),
		Secondary:       opendota.New(secondaryCfg),
		PrimaryLimit:    cfg.PrimaryLimit,
		PrimaryWindow:   cfg.PrimaryWindow,
		SecondaryLimit:  cfg.SecondaryLimit,
		SecondaryWindow: cfg.SecondaryWindow,
		KeyCooldown:     cfg.KeyCooldown,
		ProviderTimeout: cfg.ProviderTimeout,
	})
}

// statsService is the slice of the fetcher the HTTP layer consumes.
type statsService interface {
	LastMatch(ctx context.Context, steamID string) (*provider.MatchRecord, error)
	Profile(ctx context.Context, steamID string) (*provider.Profile, error)
	History(ctx context.Context, steamID string, limit int) ([]provider.HistoryEntry, error)
	Invalidate(ctx context.Context, steamID string)
}

func newServer(svc statsService) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /players/{id}/last-match", lastMatchHandler(svc))
	mux.HandleFunc("GET /players/{id}/profile", profileHandler(svc))
	mux.HandleFunc("GET /players/{id}/matches", historyHandler(svc))
	mux.HandleFunc("DELETE /players/{id}/cache", invalidateHandler(svc))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func lastMatchHandler(svc statsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.LastMatch(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, record)
	}
}

func profileHandler(svc statsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Profile(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, profile)
	}
}

func historyHandler(svc statsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := parseLimit(raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			limit = n
		}
		entries, err := svc.History(r.Context(), r.PathValue("id"), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, entries)
	}
}

func invalidateHandler(svc statsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Invalidate(r.Context(), r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		httpLogger := logging.NewLogger("http")
		httpLogger.Error().Err(err).Msg("Failed to write response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Quota failures
// mean every source is exhausted, which is a service-level 503.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch provider.KindOf(err) {
	case provider.KindNotFound:
		status = http.StatusNotFound
	case provider.KindQuota:
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
