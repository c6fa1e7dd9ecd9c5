package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"pixelwar/internal/canvas"
	"pixelwar/internal/pixelwar"
	"pixelwar/internal/ratelimit"
)

func openStorage(ctx context.Context, cfg config) (canvas.Storage, io.Closer, error) {
	switch cfg.Storage {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("error connecting to Redis: %v", err)
		}
		return canvas.NewRedisStorage(rdb, cfg.RedisKey), rdb, nil
	default:
		fs, err := canvas.OpenFile(cfg.PixelFile)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening pixel file: %v", err)
		}
		return fs, fs, nil
	}
}

func main() {
	loadEnv()
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closer, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	store, err := canvas.Open(ctx, storage, cfg.Dimensions)
	if err != nil {
		log.Fatalf("error opening canvas: %v", err)
	}

	service := pixelwar.NewService(store, ratelimit.NewCooldown(), pixelwar.Settings{
		Active:   cfg.Active,
		Cooldown: cfg.Cooldown,
	})

	clients := newClientManager()
	go clients.Run(ctx)

	server := NewServer(service, clients, newSessions(cfg.AdminHashedPassword, cfg.CookieHashKey, cfg.CookieBlockKey), cfg.AllowedOrigin)
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down server: %v", err)
		}
	}()

	log.Printf("Server is running on %s (%dx%d canvas, %s storage)", cfg.Address, cfg.Dimensions.Width, cfg.Dimensions.Height, cfg.Storage)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("ListenAndServe: ", err)
	}
}
