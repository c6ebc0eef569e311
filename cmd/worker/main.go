package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/config"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/mailer"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/distlock"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/repository/postgres"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/drip"
)

// tokenStore adapts the token repository to the mailer's narrower view.
type tokenStore struct {
	repo *postgres.TokenRepo
}

func (s *tokenStore) Get(ctx context.Context, userID string) (string, string, error) {
	t, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return t.Email, t.RefreshToken, nil
}

func main() {
	log.Println("Starting drip worker...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	cancel()
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable, campaign locks fall back to Postgres: %v", err)
			redisClient = nil
		}
	}

	campaignRepo := postgres.NewCampaignRepo(db)
	contactRepo := postgres.NewContactRepo(db)
	sendLogRepo := postgres.NewSendLogRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)

	sender, err := buildSender(cfg, tokenRepo)
	if err != nil {
		log.Fatalf("Failed to configure mail sender: %v", err)
	}

	renderer := mailer.NewRenderer(cfg.Tracking.BaseURL)
	dispatcher := drip.NewMailDispatcher(templateRepo, renderer, sender)

	locks := func(key string) distlock.DistLock {
		return distlock.New(redisClient, db, key, cfg.Drip.LockTTL())
	}

	scheduler := drip.NewScheduler(
		campaignRepo,
		contactRepo,
		sendLogRepo,
		dispatcher,
		locks,
		drip.WithPollInterval(cfg.Drip.PollInterval()),
		drip.WithBatchSize(cfg.Drip.CampaignBatch),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	log.Println("Drip scheduler running")

	<-ctx.Done()
	log.Println("Shutting down...")
	scheduler.Stop()
	log.Println("Worker stopped")
}

func buildSender(cfg *config.Config, tokens *postgres.TokenRepo) (mailer.Sender, error) {
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		log.Println("Using Gmail sender")
		return mailer.NewGmailSender(&tokenStore{repo: tokens}, cfg.Google.ClientID, cfg.Google.ClientSecret), nil
	}
	log.Println("Google OAuth not configured, using SES sender")
	return mailer.NewSESSender(context.Background(), cfg.SES.Region, cfg.SES.FromEmail)
}
