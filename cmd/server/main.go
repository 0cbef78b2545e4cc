// Command server runs the photoshare web application.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photoshare/internal/bootstrap"
	"photoshare/internal/config"
	"photoshare/internal/server"
)

// @title Photoshare API
// @version 1.0
// @description Photo sharing API with categories, tags, likes, comments and admin moderation

// @contact.name API Support
// @contact.email support@photoshare.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		ApplySchema:    true,
		SeedCategories: true,
		SeedAdmin:      true,
		Tracing:        true,
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Blobs, rt.Mailer)
	if err != nil {
		_ = rt.Close(context.Background())
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := run(ctx, srv, rt.ShutdownTracing); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

type lifecycle interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// run serves until ctx is cancelled or Start fails, and returns only after
// shutdown has closed the server's stores and flushed traces.
func run(ctx context.Context, srv lifecycle, flushTraces func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := flushTraces(shutdownCtx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	err := srv.Start(ctx)
	cancel()
	<-done
	return err
}
