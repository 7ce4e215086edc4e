package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kinoteka.org/internal/auth"
	"kinoteka.org/internal/config"
	"kinoteka.org/internal/httpapi"
	"kinoteka.org/internal/obs"
	"kinoteka.org/internal/registry"
	"kinoteka.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	reg, err := registry.Connect(ctx, cfg.RedisAddr, cfg.AccessLifetime, cfg.RefreshLifetime)
	cancel()
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}

	codec, err := auth.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessLifetime, cfg.RefreshLifetime)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	sessions, err := auth.NewSessions(store.Users(), store.History(), reg, codec)
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Sessions:   sessions,
		Users:      store.Users(),
		Roles:      store.Roles(),
		History:    store.History(),
		ReadyProbe: httpapi.ReadyProbe{DB: store.DB(), Registry: reg},
		Version:    version,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting kinoteka-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = reg.Close()
	_ = store.Close()
	log.Println("Stopped")
}
