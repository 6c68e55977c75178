package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/backend"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-inventory-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting inventory store server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage behind the REST surface, postgres unless API_BACKEND says otherwise
	store, closer, err := backend.Open(ctx, backend.ServerConfigFromEnv(), sugar)
	if err != nil {
		sugar.Fatalf("open storage: %v", err)
	}
	defer closer.Close()

	keys, err := accesskey.NewService(accesskey.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("access keys: %v", err)
	}

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}

	// mount http server
	handler := router.RegisterRoutes(sugar, store, keys, router.ConfigFromEnv())
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
