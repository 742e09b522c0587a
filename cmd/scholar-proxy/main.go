package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/scholar-serp/internal/config"
	"github.com/Sternrassler/scholar-serp/pkg/client"
	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/Sternrassler/scholar-serp/pkg/metrics"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
	"github.com/Sternrassler/scholar-serp/pkg/ratelimit"
	"github.com/Sternrassler/scholar-serp/pkg/scholar"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(getEnv("SCHOLAR_CONFIG", "scholar.json5"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger(logging.ComponentProxy)

	redisClient, err := cfg.Redis()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid Redis configuration")
	}
	if redisClient != nil {
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		logger.Info().Msg("Connected to Redis")
		defer redisClient.Close()
	}

	serpClient, err := client.New(cfg.ClientConfig(redisClient))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create SerpApi client")
	}
	defer serpClient.Close()

	srv := &server{
		service:  scholar.NewService(serpClient, cfg.PaginationConfig()),
		redis:    redisClient,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		logger:   logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting scholar proxy server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

type server struct {
	service  *scholar.Service
	redis    *redis.Client
	apiKey   string
	language string
	logger   zerolog.Logger
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(s.redis))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /scholar/organic", s.organicHandler)
	mux.HandleFunc("GET /scholar/author", s.authorHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready when Redis (if configured) answers.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// response is the JSON body of the scholar endpoints.
type response struct {
	Results   []pagination.Item `json:"results,omitempty"`
	Document  pagination.Page   `json:"document,omitempty"`
	Pages     int               `json:"pages"`
	Truncated string            `json:"truncated,omitempty"`
}

func (s *server) organicHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.service.OrganicResults(r.Context(), scholar.OrganicRequest{
		Query:    q.Get("q"),
		APIKey:   s.key(r),
		Language: s.lang(r),
		Paginate: flag(q.Get("paginate")),
	})
	s.respond(w, "organic", res, err)
}

func (s *server) authorHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.service.AuthorResults(r.Context(), scholar.AuthorRequest{
		AuthorID:          q.Get("author_id"),
		APIKey:            s.key(r),
		Language:          s.lang(r),
		ParseArticles:     flag(q.Get("articles")),
		ArticlePagination: flag(q.Get("paginate")),
	})
	s.respond(w, "author", res, err)
}

func (s *server) respond(w http.ResponseWriter, route string, res *pagination.Result, err error) {
	if err != nil {
		status := statusFor(err)
		s.logger.Warn().Err(err).Str("route", route).Int("status", status).Msg("Scholar request failed")
		writeJSON(w, status, map[string]string{"error": publicMessage(err)})
		return
	}

	body := response{Pages: res.Pages}
	if res.Shape == pagination.ShapeList {
		body.Results = res.Items
		if body.Results == nil {
			body.Results = []pagination.Item{}
		}
	} else {
		body.Document = res.Document
	}
	if res.Truncated != nil {
		body.Truncated = res.Truncated.Message
	}
	writeJSON(w, http.StatusOK, body)
}

// statusFor maps retrieval errors onto HTTP statuses.
func statusFor(err error) int {
	var cfgErr *scholar.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	default:
		// remote and transport errors
		return http.StatusBadGateway
	}
}

// publicMessage is the error text shown to callers. Transport failures are
// reported generically; their details stay in the server log.
func publicMessage(err error) string {
	var (
		cfgErr *scholar.ConfigurationError
		remote *pagination.RemoteError
	)
	switch {
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.As(err, &remote):
		return remote.Error()
	case errors.Is(err, ratelimit.ErrQuotaExhausted):
		return ratelimit.ErrQuotaExhausted.Error()
	default:
		return "upstream request to SerpApi failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) key(r *http.Request) string {
	if k := r.URL.Query().Get("api_key"); k != "" {
		return k
	}
	return s.apiKey
}

func (s *server) lang(r *http.Request) string {
	if hl := r.URL.Query().Get("hl"); hl != "" {
		return hl
	}
	return s.language
}

func flag(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
