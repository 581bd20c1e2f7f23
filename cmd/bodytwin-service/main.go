package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bodytwin/platform/pkg/api"
	"github.com/bodytwin/platform/pkg/app"
	"github.com/bodytwin/platform/pkg/common/config"
	"github.com/bodytwin/platform/pkg/common/kafka"
	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/nutrition"
	"github.com/bodytwin/platform/pkg/serving"
)

func main() {
	logger.Init()
	cfg := config.Load()

	platform, res, err := app.Build(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize platform")
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close connections")
		}
	}()

	var (
		meals    api.Meals
		runs     api.RunLister
		recorder serving.Recorder
	)
	if res.DB != nil {
		meals = nutrition.NewService(res.Nutrition, platform.FoodPredictor())
		runs = res.Runs
		recorder = res.Predictions
	}

	handler := api.NewHandler(platform, meals, runs, recorder)
	server := &http.Server{
		Addr: fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler: api.NewRouter(handler, api.RouterOptions{
			MaxRequestBody:   cfg.MaxRequestBody,
			RetrainPerSecond: cfg.RetrainRateLimit,
			RetrainBurst:     cfg.RetrainBurst,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var consumer *kafka.Consumer
	if cfg.RetrainTopic != "" {
		consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.RetrainTopic, cfg.KafkaGroupID)
		go func() {
			logger.Log.WithField("topic", cfg.RetrainTopic).Info("Consuming retrain requests")
			if err := consumer.Consume(ctx, platform.HandleEvent); err != nil && ctx.Err() == nil {
				logger.Log.WithError(err).Error("Retrain consumer stopped")
			}
		}()
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("BodyTwin Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down BodyTwin Service...")
	stop()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close retrain consumer")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("BodyTwin Service stopped")
}
