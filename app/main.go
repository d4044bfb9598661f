package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sievekit/social-sieve/app/api"
	"github.com/sievekit/social-sieve/app/cache"
	"github.com/sievekit/social-sieve/app/cfg"
	"github.com/sievekit/social-sieve/app/database"
	"github.com/sievekit/social-sieve/app/ingest"
	"github.com/sievekit/social-sieve/app/rules"
	"github.com/sievekit/social-sieve/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting Social Sieve server", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database", "host", appCfg.DBHost, "name", appCfg.DBName)

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	postRepo := database.NewPostRepository(db)
	ruleRepo := database.NewRuleRepository(db)

	// Seed keyword rules from YAML on first start only; after that the
	// database is the source of truth.
	seedLoader := rules.NewLoader(appCfg.RulesDir)
	seedRules, err := seedLoader.LoadAll()
	if err != nil {
		slog.Error("Failed to load rule seed files", "dir", appCfg.RulesDir, "error", err)
		os.Exit(1)
	}
	if len(seedRules) > 0 {
		seeded, err := ruleRepo.SeedRules(seedRules)
		if err != nil {
			slog.Error("Failed to seed keyword rules", "error", err)
			os.Exit(1)
		}
		if seeded > 0 {
			slog.Info("Seeded keyword rules", "count", seeded)
		}
	}

	rulesCache := rules.NewCache()
	activeRules, err := ruleRepo.GetActiveRules()
	if err != nil {
		slog.Error("Failed to load active rules", "error", err)
		os.Exit(1)
	}
	ruleSet := rules.NewSet(activeRules)
	rulesCache.Update(ruleSet)
	slog.Info("Loaded keyword rules", "count", ruleSet.Len())

	var seenCache *cache.SeenCache
	if appCfg.RedisAddr != "" {
		seenCache, err = cache.NewSeenCache(appCfg.RedisAddr, time.Duration(appCfg.SeenTTL)*time.Second)
		if err != nil {
			slog.Warn("Seen cache unavailable, falling back to database dedup", "addr", appCfg.RedisAddr, "error", err)
			seenCache = nil
		} else {
			defer seenCache.Close()
			slog.Info("Connected to Redis seen cache", "addr", appCfg.RedisAddr)
		}
	}

	pipeline := ingest.NewPipeline(postRepo, seenCache, appCfg.WorkerCount)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(ruleRepo, rulesCache,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(postRepo, ruleRepo, rulesCache, pipeline, scheduler,
		time.Duration(appCfg.BatchTimeout)*time.Second)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Social Sieve server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Social Sieve server shutdown complete")
}
