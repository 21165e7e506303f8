package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"gigwork-engine/internal/config"
	"gigwork-engine/internal/notify"
	"gigwork-engine/internal/telemetry"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	queue := notify.NewQueue(redisClient)
	dispatcher := notify.NewDispatcher(redisClient, queue)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("notifier draining %s", cfg.RedisAddr)
	if err := dispatcher.Run(ctx); err != nil {
		log.Printf("notifier stopped: %v", err)
	}
}
