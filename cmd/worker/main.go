// Package main runs the background alert worker (arrival alert fan-out to
// chat webhooks).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherly/backend/config"
	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/internal/worker"
	"github.com/gatherly/backend/pkg/queue"
	"github.com/gatherly/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var channels []notify.Channel
	if cfg.Alerts.SlackWebhookURL != "" {
		channels = append(channels, notify.NewSlackChannel(cfg.Alerts.SlackWebhookURL))
	}
	if cfg.Alerts.DiscordWebhookURL != "" {
		channels = append(channels, notify.NewDiscordChannel(cfg.Alerts.DiscordWebhookURL))
	}
	if len(channels) == 0 {
		logger.Warn("no alert channels configured, alerts will be dropped")
	}

	fanout := notify.NewFanout(channels, time.Duration(cfg.Alerts.ChannelTimeoutSec)*time.Second, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	dispatcher := worker.NewAlertDispatcher(jobQueue, fanout, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatcher.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
