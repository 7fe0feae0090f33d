package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	accountrepo "medportal/backend/internal/account/repository"
	accountservice "medportal/backend/internal/account/service"
	"medportal/backend/internal/audit"
	auditrepo "medportal/backend/internal/audit/repository"
	"medportal/backend/internal/blocklist"
	"medportal/backend/internal/config"
	"medportal/backend/internal/db"
	"medportal/backend/internal/governor"
	"medportal/backend/internal/ipregistry"
	ipregistryrepo "medportal/backend/internal/ipregistry/repository"
	"medportal/backend/internal/ratelimit"
	"medportal/backend/internal/security"
	"medportal/backend/internal/server"
	sessionrepo "medportal/backend/internal/session/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	dbh, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbh.Close()

	// Redis is optional; without it the limiter and blocklist state is
	// in-process, which is fine for a single node.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	var limitStore ratelimit.Store
	var blockStore blocklist.Store
	if rdb != nil {
		limitStore = ratelimit.NewRedisStore(rdb)
		blockStore = blocklist.NewRedisStore(rdb)
	} else {
		limitStore = ratelimit.NewMemoryStore()
		blockStore = blocklist.NewMemoryStore()
	}

	accounts := accountrepo.NewPostgresRepository(dbh)
	sessions := sessionrepo.NewPostgresRepository(dbh)
	knownIPs := ipregistryrepo.NewPostgresRepository(dbh)
	auditLogs := auditrepo.NewPostgresRepository(dbh)

	auditLog := audit.NewLogger(auditLogs, server.ClientIPFromContext)
	registry := ipregistry.NewRegistry(knownIPs)
	suspender := accountservice.NewSuspensionService(dbh, accounts, sessions, auditLog)
	gov := governor.NewGovernor(accounts, sessions, registry, suspender, auditLog, cfg.MaxUniqueIPs)

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	auth := accountservice.NewAuthService(accounts, sessions, gov, hasher, tokens, auditLog)

	limiters := server.Limiters{
		Auth:     ratelimit.NewAuth(limitStore),
		API:      ratelimit.NewAPI(limitStore),
		Quiz:     ratelimit.NewQuizSubmit(limitStore),
		Progress: ratelimit.NewProgress(limitStore),
	}
	bl := blocklist.New(blockStore, cfg.SuspiciousThreshold, cfg.BlockDuration(), cfg.SweepInterval())
	bl.Start()
	defer bl.Stop()

	srv := server.New(auth, tokens, sessions, limiters, bl, cfg.AllowedOrigins())
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
