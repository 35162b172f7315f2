package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yaswanth65/houseway-backend/internal/config"
	"github.com/yaswanth65/houseway-backend/internal/db"
	"github.com/yaswanth65/houseway-backend/internal/notify"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
	"github.com/yaswanth65/houseway-backend/internal/server"
	"github.com/yaswanth65/houseway-backend/internal/services"
	"github.com/yaswanth65/houseway-backend/internal/storage"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	if lvl, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	if !cfg.App.Dev {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	dbConn, err := db.ConnectAndMigrate(cfg.Database.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("database setup failed")
	}
	if *migrateOnlyFlag {
		logrus.Info("migrations completed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rooms are process-local; the redis bridge mirrors events across
	// instances when configured.
	hub := realtime.NewHub()
	var broadcaster realtime.Broadcaster = hub
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("redis ping failed")
		}
		bridge := realtime.NewRedisBridge(hub, rdb)
		go bridge.Run(ctx)
		broadcaster = bridge
		logrus.WithField("addr", cfg.Redis.Addr).Info("redis event bridge enabled")
	}

	var attachments storage.AttachmentStore = storage.Disabled{}
	if cfg.Minio.Endpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.Options{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			logrus.WithError(err).Fatal("attachment store setup failed")
		}
		attachments = store
		logrus.WithField("endpoint", cfg.Minio.Endpoint).Info("attachment store enabled")
	}

	// Flag half-closed orders left behind by older deployments.
	delivery := services.NewDeliveryService(dbConn, realtime.NopBroadcaster{}, notify.Nop{})
	if err := delivery.CheckConsistency(ctx); err != nil {
		logrus.WithError(err).Warn("consistency check failed")
	}

	handler := server.New(server.Deps{
		DB:          dbConn,
		Hub:         hub,
		Broadcaster: broadcaster,
		Notifier:    notify.LogNotifier{},
		Attachments: attachments,
		JWTSecret:   cfg.Auth.JWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.Server.Port, "dev": cfg.App.Dev}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
	logrus.Info("server stopped gracefully")
}
