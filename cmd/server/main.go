package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/fieldform/backend/internal/authcache"
	"github.com/fieldform/backend/internal/claims"
	"github.com/fieldform/backend/internal/config"
	"github.com/fieldform/backend/internal/errtrack"
	"github.com/fieldform/backend/internal/events"
	"github.com/fieldform/backend/internal/httpserver"
	"github.com/fieldform/backend/internal/logging"
	"github.com/fieldform/backend/internal/repo"
	"github.com/fieldform/backend/internal/service"
	"github.com/fieldform/backend/internal/tokens"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	gormRepo := repo.New(db)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = gormRepo.EnsureAdminUser(seedCtx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
	cancel()
	if err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	var cache authcache.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		cache = authcache.NewRedis(client, tokenTTL)
		logger.Info("session_cache", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		cache = authcache.NewMemory()
		logger.Info("session_cache", "backend", "memory")
	}

	var publisher events.Publisher
	if cfg.KafkaAddress != "" {
		producer := events.NewProducer(cfg.KafkaAddress, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		logger.Info("auth_events", "address", cfg.KafkaAddress, "topic", cfg.KafkaTopic)
	}

	var reporter errtrack.Reporter = errtrack.Nop{}
	if cfg.ESURL != "" {
		elastic, err := errtrack.NewElastic(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.ESIndex)
		if err != nil {
			log.Fatalf("error tracking init: %v", err)
		}
		reporter = elastic
		logger.Info("error_tracking", "url", cfg.ESURL, "index", cfg.ESIndex)
	}

	signer := tokens.NewSigner([]byte(cfg.JWTSecret), cfg.JWTIssuer, tokenTTL)

	authSvc := &service.AuthService{
		Repo:     gormRepo,
		Resolver: &claims.Resolver{Repo: gormRepo},
		Cache:    cache,
		Signer:   signer,
		Events:   publisher,
		Errors:   reporter,
		AppName:  cfg.AppName,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc},
		Signer:      signer,
	})

	go func() {
		logger.Info("server_starting", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
