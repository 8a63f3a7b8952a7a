package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studentconnect/config"
	"studentconnect/internal/database"
	"studentconnect/internal/router"
	"studentconnect/pkg/cloudinary"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Server.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	log := logger.Sugar()

	var db *gorm.DB
	if cfg.Database.DSN != "" {
		db, err = database.NewDB(&cfg.Database)
		if err != nil {
			log.Fatalw("database connect failed", "error", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalw("database migrate failed", "error", err)
		}
	} else {
		log.Info("archive disabled: no database DSN configured")
	}

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			log.Fatalw("cloudinary init failed", "error", err)
		}
	} else {
		log.Info("document uploads disabled: cloudinary not configured")
	}

	app, err := router.Setup(cfg, db, cloud)
	if err != nil {
		log.Fatalw("setup failed", "error", err)
	}

	statsCtx, stopStats := context.WithCancel(context.Background())
	go app.Stats.Run(statsCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Infow("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")
	stopStats()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
