package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/bizhub/credits-api/internal/config"
	"github.com/bizhub/credits-api/internal/domain/auth"
	"github.com/bizhub/credits-api/internal/domain/catalog"
	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/domain/internalapi"
	"github.com/bizhub/credits-api/internal/domain/membership"
	"github.com/bizhub/credits-api/internal/domain/relationships"
	"github.com/bizhub/credits-api/internal/domain/user"
	"github.com/bizhub/credits-api/internal/middleware"
	"github.com/bizhub/credits-api/internal/pkg/database"
	"github.com/bizhub/credits-api/internal/pkg/jwt"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
	"github.com/bizhub/credits-api/internal/pkg/noncecache"
	"github.com/bizhub/credits-api/internal/pkg/partner"
	pkgresponse "github.com/bizhub/credits-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		Service:     "credits-api",
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting credits API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(context.Background(), db, "migrations"); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	redis, err := database.NewRedis(database.RedisConfig{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)
	if redis == nil {
		log.Warn().Msg("Redis not configured: nonce replay checks and OTP login are disabled")
	}

	m := metrics.NewDefault()
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	partnerClient := partner.NewClient(partner.Config{
		BaseURL:   cfg.PartnerBaseURL,
		SecretKey: cfg.PartnerSecretKey,
		AESKey:    cfg.PartnerAESKey,
		Timeout:   cfg.PartnerTimeout,
	})

	// ---------- Services ----------
	creditService := credit.NewService(credit.NewRepository(db), m)
	catalogService := catalog.NewService(catalog.NewRepository(db))
	relationshipService := relationships.NewService(relationships.NewRepository(db), partnerClient, relationships.Config{
		AppBaseURL: cfg.AppBaseURL,
		InviteTTL:  cfg.InviteTTL,
	})
	membershipRepo := membership.NewRepository(db)
	membershipService := membership.NewService(membershipRepo, catalogService, membershipRepo, relationshipService, creditService)
	userService := user.NewService(user.NewRepository(db), user.NewTicketStore(redis, db), cfg.SSOTicketTTL)

	var codes auth.CodeStore
	if redis != nil {
		codes = auth.NewRedisCodeStore(redis)
	}
	authService := auth.NewService(userService, jwtService, codes, auth.LogSender{}, auth.OTPConfig{
		Cooldown: cfg.OTPCooldown,
		CodeTTL:  cfg.OTPCodeTTL,
	})

	// ---------- Handlers ----------
	creditHandler := credit.NewHandler(creditService)
	catalogHandler := catalog.NewHandler(catalogService)
	relationshipHandler := relationships.NewHandler(relationshipService)
	membershipHandler := membership.NewHandler(membershipService)
	authHandler := auth.NewHandler(authService)
	internalHandler := internalapi.NewHandler(userService, relationshipService, membershipService, creditService)

	nonces := noncecache.New(nil)
	if cfg.NonceCacheEnabled {
		nonces = noncecache.New(redis)
	}
	partnerAuth := &middleware.PartnerAuth{
		Secret:  cfg.PartnerSecretKey,
		MaxAge:  cfg.SignatureMaxAge,
		Nonces:  nonces,
		Metrics: m,
	}

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover(m))
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(m))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok", "version": "1.0.0", "postgres": "ok", "redis": "ok"}
		if redis == nil {
			status["redis"] = "disabled"
		}
		if err := db.PingContext(ctx); err != nil {
			status["status"], status["postgres"] = "degraded", "down"
		}
		if err := database.PingRedis(ctx, redis); err != nil {
			status["status"], status["redis"] = "degraded", "down"
		}
		if status["status"] != "ok" {
			pkgresponse.JSON(w, http.StatusServiceUnavailable, "Service degraded", status)
			return
		}
		pkgresponse.OK(w, status)
	})
	r.Handle("/metrics", m.Handler())

	r.Mount("/api/v1/internal", internalHandler.Routes(partnerAuth.Verify, middleware.PartnerDecrypt(cfg.PartnerAESKey)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/auth", authHandler.Routes())
		r.Mount("/catalog", catalogHandler.Routes())
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.With(authMiddleware).Get("/membership", membershipHandler.Me)
		r.Mount("/", relationshipHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
