package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/ai"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/api"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/config"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/repository/postgres"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/campaign"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/catalog"
)

func main() {
	log.Println("Starting CTV API server...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := openDB(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	campaignRepo := postgres.NewCampaignRepo(db)
	sendLogRepo := postgres.NewSendLogRepo(db)
	contactRepo := postgres.NewContactRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)
	catalogRepo := postgres.NewCatalogRepo(db)

	provider, err := buildAIProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to configure AI provider: %v", err)
	}

	h := &api.Handlers{
		Campaigns: campaign.NewService(campaignRepo, sendLogRepo),
		Catalog:   catalog.NewService(catalogRepo),
		Drafter:   ai.NewDrafter(provider),
		Contacts:  contactRepo,
		Templates: templateRepo,
		Tokens:    tokenRepo,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.SetupRoutes(h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("API server listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func buildAIProvider(cfg *config.Config) (ai.Provider, error) {
	switch cfg.AI.Provider {
	case "bedrock":
		return ai.NewBedrockProvider(context.Background(), cfg.SES.Region, cfg.AI.Model)
	default:
		return ai.NewHTTPProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model), nil
	}
}
