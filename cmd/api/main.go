package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cvowf.org/internal/config"
	"cvowf.org/internal/httpapi"
	"cvowf.org/internal/identity"
	"cvowf.org/internal/obs"
	"cvowf.org/internal/profile"
	"cvowf.org/internal/ratelimit"
	"cvowf.org/internal/reporting"
	"cvowf.org/internal/session"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("CVOWF_BUILD_COMMIT"))
	cfg := config.Load()

	// Postgres backs the profile store and the readiness probe when a
	// DSN is configured.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var idSvc identity.Service
	if cfg.IdentityEndpoint != "" {
		idSvc = identity.NewClient(cfg.IdentityEndpoint, cfg.IdentityProjectID)
	} else {
		idSvc = identity.NewMemory()
	}

	var profiles profile.Store
	switch cfg.ProfileBackend {
	case "postgres":
		if db == nil {
			log.Fatal("profile backend postgres requires CVOWF_DATABASE_URL")
		}
		profiles = profile.NewPGStore(db)
	case "remote":
		if cfg.IdentityEndpoint == "" {
			log.Fatal("profile backend remote requires CVOWF_IDENTITY_ENDPOINT")
		}
		remote, err := profile.NewRemote(cfg.IdentityEndpoint, cfg.IdentityProjectID,
			profile.WithAPIKey(cfg.IdentityAPIKey))
		if err != nil {
			log.Fatalf("profile store: %v", err)
		}
		profiles = remote
	default:
		profiles = profile.NewMemoryStore()
	}

	manager, err := session.NewManager(idSvc, profiles,
		session.WithVerificationURL(cfg.PublicBaseURL+"/auth/verify-email"),
		session.WithRecoveryURL(cfg.PublicBaseURL+"/auth/reset-password"),
	)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}
	// Settle the auth state before taking traffic.
	manager.Bootstrap(context.Background())

	limiter := ratelimit.New(cfg.LoginAttempts, cfg.LoginWindow)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, manager, limiter, reporting.StaticSource{}, httpapi.Options{
		Version:      version,
		SessionTTL:   cfg.SessionTTL,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RatePerSec:   cfg.RatePerSec,
		RateBurst:    cfg.RateBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting cvowf-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
