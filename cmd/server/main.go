package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/config"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/es"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/httpserver"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/logging"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/middleware"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/mykafka"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/oauth"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/repo"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/search"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.MustValidate()

	jwtKey, err := cfg.JWTKey()
	if err != nil {
		log.Fatalf("jwt key: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := cfg.InitDB(initCtx)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *mykafka.Producer
	if cfg.KafkaAddress != "" {
		producer = mykafka.NewProducer(config.CSV(cfg.KafkaAddress))
	}

	var searchSvc *search.Service
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		searchSvc = search.NewService(esClient, "timeline_entries")
	}

	provider := oauth.NewGoogleProvider(oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	})

	gormRepo := repo.New(db)
	authSvc := &service.AuthService{
		Provider: provider,
		Repo:     gormRepo,
		Producer: producer,
		Secret:   jwtKey,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}
	timelineSvc := &service.TimelineService{
		Repo:     gormRepo,
		Producer: producer,
		Search:   searchSvc,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:              authSvc,
			RedirectURI:      cfg.GoogleRedirectURI,
			FrontendRedirect: cfg.FrontendRedirect,
		},
		TimelineHandler: &httpserver.TimelineHTTP{Svc: timelineSvc},
		AuthMW:          middleware.NewBearerAuth(jwtKey, cfg.JWTIssuer, cfg.JWTAudience),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	logger.Info("server started", "port", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
