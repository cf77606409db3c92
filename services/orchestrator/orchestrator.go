// Package orchestrator assembles the chat service: configuration, tracing,
// metrics, the vector index backend, the language model backend, and the
// HTTP surface on top of the conversation core.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/docsage/docsage/services/chat"
	"github.com/docsage/docsage/services/ingest"
	"github.com/docsage/docsage/services/llm"
	"github.com/docsage/docsage/services/orchestrator/observability"
	"github.com/docsage/docsage/services/orchestrator/routes"
	"github.com/docsage/docsage/services/policy_engine"
	"github.com/docsage/docsage/services/summarize"
	"github.com/docsage/docsage/services/vectorstore"
)

const serviceName = "docsage-chat"

// Config holds service configuration. Zero values take defaults in New.
type Config struct {
	// Port is the HTTP server port. Default: 12300.
	Port int `validate:"gte=0,lte=65535"`

	// LLMBackend selects the generation provider: "openai" or "ollama".
	// Default: "openai".
	LLMBackend string `validate:"omitempty,oneof=openai ollama"`

	// WeaviateURL points at the vector database. Empty runs on the
	// in-memory index instead.
	WeaviateURL string `validate:"omitempty,url"`

	// OTelEndpoint is the OTLP gRPC collector address.
	OTelEndpoint string

	// GinMode sets the gin framework mode: "debug", "release", "test".
	GinMode string `validate:"omitempty,oneof=debug release test"`

	// EnableMetrics exposes Prometheus metrics on /metrics. Default: true
	// (disable via DOCSAGE_DISABLE_METRICS).
	EnableMetrics bool

	// SessionTTL expires idle sessions. Zero keeps sessions forever.
	SessionTTL time.Duration

	// SweepInterval is how often the idle sweeper runs.
	SweepInterval time.Duration
}

// LoadConfigFromEnv builds a Config from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Port:          getEnvInt("DOCSAGE_PORT", 12300),
		LLMBackend:    getEnvString("LLM_BACKEND_TYPE", "openai"),
		WeaviateURL:   strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' "),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:       os.Getenv("GIN_MODE"),
		EnableMetrics: os.Getenv("DOCSAGE_DISABLE_METRICS") == "",
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_MINUTES", 0)) * time.Minute,
		SweepInterval: time.Duration(getEnvInt("SESSION_SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
	}
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12300
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "openai"
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	return cfg
}

// Service is the assembled chat service.
type Service struct {
	config        Config
	router        *gin.Engine
	manager       *chat.Manager
	sweeper       *chat.Sweeper
	tracerCleanup func(context.Context)
}

// New validates the configuration and wires every component. The returned
// service is ready to Run.
func New(cfg Config) (*Service, error) {
	cfg = applyConfigDefaults(cfg)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Service{config: cfg}

	cleanup, err := initTracer(cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if cfg.EnableMetrics && observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	client, err := newLLMClient(cfg.LLMBackend)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	index, err := newIndex(cfg.WeaviateURL)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	engine, err := policy_engine.NewEngine()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	s.manager = chat.NewManager(chat.NewStore(), chat.NewBuilder(client), index, engine, nil)
	s.sweeper = chat.NewSweeper(s.manager, cfg.SessionTTL, cfg.SweepInterval)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(router, s.manager, ingest.NewProcessor(), summarize.NewSummarizer(client), cfg.EnableMetrics)
	s.router = router

	return s, nil
}

// Run starts the idle sweeper and the HTTP server, blocking until the
// server stops or the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer s.cleanup()

	go s.sweeper.Run(ctx)

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting chat server", "port", s.config.Port, "llm_backend", s.config.LLMBackend)
	return s.router.Run(addr)
}

// Router exposes the gin engine for integration tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Manager exposes the conversation core, mainly for tests and tooling.
func (s *Service) Manager() *chat.Manager {
	return s.manager
}

func (s *Service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// newLLMClient builds the configured generation backend.
func newLLMClient(backend string) (llm.Client, error) {
	switch backend {
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient()
	default:
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	}
}

// newIndex builds the vector index backend. A valid Weaviate URL selects
// the Weaviate index; anything else falls back to the in-memory index so
// the service still runs without external storage.
func newIndex(weaviateURL string) (vectorstore.Index, error) {
	if weaviateURL == "" {
		slog.Info("WEAVIATE_SERVICE_URL not set, using the in-memory index")
		return vectorstore.NewMemoryIndex(), nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid, using the in-memory index", "url", weaviateURL)
		return vectorstore.NewMemoryIndex(), nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}

	embedder, err := llm.NewOpenAIEmbedder()
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	slog.Info("Using the Weaviate index", "host", parsedURL.Host)
	return vectorstore.NewWeaviateIndex(client, embedder)
}

// initTracer sets up the OTLP trace exporter. An empty endpoint leaves the
// global tracer provider as a no-op, which keeps local runs quiet.
func initTracer(endpoint string) (func(context.Context), error) {
	if endpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}

	ctx := context.Background()
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer env value, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
	return n
}
