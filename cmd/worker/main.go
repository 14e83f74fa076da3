// Command worker runs the Transcript Worker poll loop only (spec.md §2,
// §4.3, §5). Grounded on the teacher's cmd/tarsy/main.go startup sequence,
// narrowed to the single worker loop instead of an HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tulkka/lessonpipe/pkg/anastore"
	"github.com/tulkka/lessonpipe/pkg/config"
	"github.com/tulkka/lessonpipe/pkg/engine"
	"github.com/tulkka/lessonpipe/pkg/llm"
	"github.com/tulkka/lessonpipe/pkg/version"
	"github.com/tulkka/lessonpipe/pkg/worker"
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

	store, err := anastore.Open(ctx, cfg.AnalyticalURL, "lessonpipe")
	if err != nil {
		log.Fatalf("failed to connect to analytical store: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	var llmClient llm.Client
	if cfg.Engine.LLMAvailable() {
		llmClient = llm.NewHTTPClient("https://api.openai.com", cfg.Engine.LLMAPIKey, cfg.Engine.LLMModel, 30*time.Second)
	}

	exerciseEngine := engine.New(llmClient, engine.Config{
		TranslationTargetLang: cfg.Engine.TranslationTargetLang,
		QualityMin:            cfg.Engine.QualityMin,
	})

	w := worker.New(store, exerciseEngine, worker.Config{
		WorkerID:           uuid.NewString(),
		PollInterval:       cfg.Worker.PollInterval,
		PollIntervalJitter: cfg.Worker.PollInterval / 4,
		LeaseDuration:      cfg.Worker.LeaseSeconds,
		MaxRetries:         cfg.Worker.MaxRetries,
		MinTranscriptChars: cfg.Worker.MinTranscriptChars,
	})

	log.Printf("%s transcript worker starting", version.Full())
	w.Start(ctx)

	<-ctx.Done()
	log.Println("shutting down transcript worker")
	w.Stop()
}
