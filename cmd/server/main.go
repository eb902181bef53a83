package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/naybourhood/naybourhood-server/internal/ai"
	"github.com/naybourhood/naybourhood-server/internal/airtable"
	"github.com/naybourhood/naybourhood-server/internal/api"
	"github.com/naybourhood/naybourhood-server/internal/auth"
	"github.com/naybourhood/naybourhood-server/internal/billing"
	"github.com/naybourhood/naybourhood-server/internal/config"
	"github.com/naybourhood/naybourhood-server/internal/notify"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
	"github.com/naybourhood/naybourhood-server/internal/repository/postgres"
	"github.com/naybourhood/naybourhood-server/internal/service/assignment"
	"github.com/naybourhood/naybourhood-server/internal/service/messaging"
	"github.com/naybourhood/naybourhood-server/internal/service/subscription"
	"github.com/naybourhood/naybourhood-server/internal/storage"
)

// checkPortAvailable verifies the target port is free before any slow
// initialization happens.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("pre-flight check failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	defer db.Close()
	logger.Info("database connected")

	// Redis (optional: snapshot cache + rate limiting)
	var redisClient *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("parse redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without it", "error", err.Error())
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info("redis connected")
		}
	}

	// Blob storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	// Airtable client + buyer collector
	airtableClient := airtable.NewClient(airtable.Config{
		APIKey:  cfg.Airtable.APIKey,
		BaseID:  cfg.Airtable.BaseID,
		BaseURL: cfg.Airtable.BaseURL,
		Timeout: cfg.Airtable.Timeout(),
	})
	collector := airtable.NewCollector(airtableClient, cfg.Airtable.BuyersTable, cfg.Polling.Interval(), cfg.Polling.PageSize)
	if redisClient != nil {
		collector.SetRedisClient(redisClient)
	}
	collector.Start(ctx)
	defer collector.Stop()

	// Billing + services
	billingSvc := billing.NewService(cfg.Stripe)
	subRepo := postgres.NewSubscriptionRepo(db)
	subSvc := subscription.NewService(subRepo, billingSvc)

	assignRepo := postgres.NewAssignmentRepo(db)
	assignSvc := assignment.NewService(assignRepo, subSvc, cfg.Refusal)
	assignSvc.StartHoldSweep(5 * time.Minute)
	defer assignSvc.Stop()

	msgSvc := messaging.NewService(postgres.NewConversationRepo(db))

	var webhook *billing.WebhookProcessor
	if cfg.Stripe.WebhookSecret != "" {
		webhook = billing.NewWebhookProcessor(cfg.Stripe.WebhookSecret, billingSvc, subSvc)
	} else {
		logger.Warn("stripe webhook secret missing, webhook endpoint disabled")
	}

	// LLM provider
	var aiSvc *ai.Service
	if cfg.AI.Enabled {
		provider, err := ai.NewProvider(cfg.AI)
		if err != nil {
			log.Fatalf("init ai provider: %v", err)
		}
		aiSvc = ai.NewService(provider)
		logger.Info("ai provider ready", "provider", cfg.AI.Provider)
	} else {
		logger.Info("ai features disabled")
	}

	// Transactional email
	notifier, err := notify.New(ctx, cfg.Notify)
	if err != nil {
		log.Fatalf("init notifier: %v", err)
	}

	// Auth
	baseURL := fmt.Sprintf("http://%s:%d", host, port)
	if envURL := os.Getenv("AUTH_BASE_URL"); envURL != "" {
		baseURL = envURL
	}
	authManager := auth.NewManager(cfg.Auth, baseURL, cfg.Stripe.SiteURL)
	if cfg.Auth.Enabled {
		if err := authManager.ValidateCredentials(ctx); err != nil {
			log.Fatalf("oauth pre-flight failed: %v", err)
		}
		authManager.StartSessionSweep(ctx, 5*time.Minute)
		logger.Info("google oauth enabled", "domain", cfg.Auth.AllowedDomain)
	} else {
		logger.Warn("authentication disabled, all requests run as the dev session")
	}

	// HTTP surface
	limiter := api.NewRateLimiter(redisClient, cfg.RateLimit)
	handlers := api.NewHandlers(collector, assignSvc, msgSvc, subSvc, aiSvc, webhook, store, airtableClient, notifier, cfg.Stripe.SiteURL)

	var origins []string
	if cfg.Stripe.SiteURL != "" {
		origins = []string{cfg.Stripe.SiteURL, "http://localhost:3000"}
	}
	router := api.SetupRoutes(handlers, authManager, limiter, origins)
	server := api.NewServer(router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		logger.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}
	logger.Info("server stopped")
}
