// Command monitor runs the Class Monitor poll loop only (spec.md §2, §4.1,
// §5 "each role runs in its own process"). Grounded on the teacher's
// cmd/tarsy/main.go startup sequence (godotenv, config load, store
// connect), narrowed to the single monitor loop instead of an HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tulkka/lessonpipe/pkg/config"
	"github.com/tulkka/lessonpipe/pkg/dispatch"
	"github.com/tulkka/lessonpipe/pkg/monitor"
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

	store, err := opstore.Open(ctx, cfg.OperationalDSN)
	if err != nil {
		log.Fatalf("failed to connect to operational store: %v", err)
	}
	defer store.Close()

	dispatchClient := dispatch.New(cfg.WebhookURL, cfg.WebhookTimeout)

	m := monitor.New(store, dispatchClient, monitor.Config{
		PollInterval:       cfg.Monitor.PollInterval,
		PollIntervalJitter: cfg.Monitor.PollInterval / 4,
		BatchSize:          cfg.Monitor.BatchSize,
	})

	log.Printf("%s class monitor starting", version.Full())
	m.Start(ctx)

	<-ctx.Done()
	log.Println("shutting down class monitor")
	m.Stop()
}
