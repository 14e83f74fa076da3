// Command server runs the Trigger & Read HTTP Surface only (spec.md §2,
// §4.5). Grounded on the teacher's cmd/tarsy/main.go: godotenv load,
// env-driven HTTP port, gin.Default router, /health endpoint.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tulkka/lessonpipe/pkg/anastore"
	"github.com/tulkka/lessonpipe/pkg/api"
	"github.com/tulkka/lessonpipe/pkg/config"
	"github.com/tulkka/lessonpipe/pkg/dispatch"
	"github.com/tulkka/lessonpipe/pkg/opstore"
	"github.com/tulkka/lessonpipe/pkg/version"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opStore, err := opstore.Open(ctx, cfg.OperationalDSN)
	if err != nil {
		log.Fatalf("failed to connect to operational store: %v", err)
	}
	defer opStore.Close()

	anaStore, err := anastore.Open(ctx, cfg.AnalyticalURL, "lessonpipe")
	if err != nil {
		log.Fatalf("failed to connect to analytical store: %v", err)
	}
	defer func() { _ = anaStore.Close(ctx) }()

	dispatchClient := dispatch.New(cfg.WebhookURL, cfg.WebhookTimeout)

	gin.SetMode(getEnv("GIN_MODE", "release"))
	router := api.NewRouter(opStore, anaStore, dispatchClient)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		log.Printf("%s listening on %s", version.Full(), srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
