// Command docsage starts the DocSage document chat HTTP server.
//
// It reads configuration from environment variables (a local .env file is
// loaded when present) and serves the session, document, and chat APIs.
//
// # Environment Variables
//
//   - DOCSAGE_PORT: HTTP server port (default: 12300)
//   - LLM_BACKEND_TYPE: LLM provider - openai, ollama (default: openai)
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (optional; in-memory index when unset)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - SESSION_TTL_MINUTES: idle session expiry, 0 disables sweeping
//
// # Usage
//
//	go build -o docsage ./cmd/docsage
//	./docsage serve
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/services/orchestrator"
)

var rootCmd = &cobra.Command{
	Use:   "docsage",
	Short: "DocSage document chat service",
	Long:  "DocSage answers questions about uploaded documents over per-session retrieval chains.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DocSage HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Local development convenience. Container deployments set real
		// environment variables and have no .env file.
		if err := godotenv.Load(); err == nil {
			log.Println("Loaded environment overrides from .env")
		}
	}
}

func runServe() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := orchestrator.LoadConfigFromEnv()

	slog.Info("Starting docsage",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"weaviate_url", cfg.WeaviateURL,
	)

	svc, err := orchestrator.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return svc.Run(ctx)
}
