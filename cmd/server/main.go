// Server wires storage, telemetry, and the HTTP routes, and runs until
// SIGINT/SIGTERM with graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"combo-auth/internal/audit"
	auditrepo "combo-auth/internal/audit/repository"
	authhandler "combo-auth/internal/auth/handler"
	authservice "combo-auth/internal/auth/service"
	"combo-auth/internal/authctx"
	"combo-auth/internal/config"
	"combo-auth/internal/db"
	"combo-auth/internal/federation"
	"combo-auth/internal/federation/google"
	identityrepo "combo-auth/internal/identity/repository"
	"combo-auth/internal/identity/resolver"
	"combo-auth/internal/security"
	"combo-auth/internal/server"
	"combo-auth/internal/session/manager"
	sessionsrepo "combo-auth/internal/session/repository"
	"combo-auth/internal/telemetry"
	"combo-auth/internal/telemetry/otel"
	"combo-auth/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "combo-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	sessions := newSessionStore(cfg, conn)
	identities := identityrepo.NewPostgresRepository(conn)
	mgr := manager.New(sessions, identities, cfg.TTL())

	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(conn), authctx.ClientIP)

	var emitter telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.AuthEventsKafkaBrokersList(), cfg.AuthEventsKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitter = kafkaProducer
		defer kafkaProducer.Close()
	}

	svc := authservice.New(
		identities,
		mgr,
		resolver.New(identities),
		security.NewHasher(cfg.BcryptCost),
		newStaticVerifier(cfg),
		auditor,
		emitter,
	)

	router := server.NewRouter(server.Deps{
		Auth:          svc,
		Sessions:      mgr,
		Google:        newGoogleProvider(ctx, cfg),
		AuditRepo:     auditrepo.NewPostgresRepository(conn),
		HealthPinger:  conn,
		SessionTTL:    cfg.TTL(),
		SecureCookies: cfg.Env != "development",
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before tearing providers down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

func newSessionStore(cfg *config.Config, conn *sql.DB) sessionsrepo.Store {
	if cfg.SessionStore == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return sessionsrepo.NewRedisStore(client)
	}
	return sessionsrepo.NewPostgresStore(conn)
}

func newStaticVerifier(cfg *config.Config) federation.Verifier {
	if cfg.FederatedIssuerKey == "" {
		return nil
	}
	pub, err := security.ParsePublicKey(cfg.FederatedIssuerKey)
	if err != nil {
		log.Fatalf("federated issuer key: %v", err)
	}
	v, err := federation.NewStaticVerifier(pub, cfg.FederatedAudience)
	if err != nil {
		log.Fatalf("static verifier: %v", err)
	}
	return v
}

func newGoogleProvider(ctx context.Context, cfg *config.Config) authhandler.GoogleProvider {
	if !cfg.GoogleEnabled() {
		log.Println("google login disabled (GOOGLE_CLIENT_ID/SECRET/REDIRECT_URL not set)")
		return nil
	}
	p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if err != nil {
		log.Fatalf("google provider: %v", err)
	}
	return p
}
