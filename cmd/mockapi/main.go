// Command mockapi serves the marketplace REST contract from memory for local
// development. Data is lost on exit.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/naveenspark/handyhub/internal/logging"
	"github.com/naveenspark/handyhub/internal/mockapi"
)

const defaultAddr = "127.0.0.1:5000"

func main() {
	_ = godotenv.Load()
	logger := logging.Console(os.Stderr, os.Getenv("HANDYHUB_LOG_LEVEL"))

	addr := os.Getenv("MOCKAPI_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	gin.SetMode(gin.ReleaseMode)
	opts := []mockapi.Option{mockapi.WithDemoData(), mockapi.WithLogger(logger)}
	if secret := os.Getenv("MOCKAPI_SECRET"); secret != "" {
		opts = append(opts, mockapi.WithSecret(secret))
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mockapi.New(opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info().Str("addr", addr).
		Str("user", "user@handyhub.test").
		Str("provider", "provider@handyhub.test").
		Msg("mock api listening (demo password: password)")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("mock api server error")
	}
	logger.Info().Msg("mock api stopped")
}
