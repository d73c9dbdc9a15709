package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pvanhorn/chatgate/internal/analytics"
	"github.com/pvanhorn/chatgate/internal/api/router"
	appconfig "github.com/pvanhorn/chatgate/internal/config"
	"github.com/pvanhorn/chatgate/internal/conversation"
	"github.com/pvanhorn/chatgate/internal/moderation"
	"github.com/pvanhorn/chatgate/internal/observability/metrics"
	"github.com/pvanhorn/chatgate/internal/webchat"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	if cfg.LogFile != "" {
		fileLogger, closeLog, err := logging.NewWithFile(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			logger.Error("failed to open log file", "path", cfg.LogFile, "error", err)
			os.Exit(1)
		}
		defer func() { _ = closeLog() }()
		logger = fileLogger
	}

	logger.Info("starting chatgate API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"session_store", cfg.SessionStore,
	)

	registry := prometheus.NewRegistry()
	gateMetrics := metrics.NewGateMetrics(registry)

	ruleEngine, err := moderation.NewRuleEngine(moderation.RuleSet{
		HateSpeechKeywords: cfg.HateSpeechKeywords,
		PIIPatterns:        cfg.PIIPatterns,
		JailbreakPhrases:   cfg.JailbreakPhrases,
	})
	if err != nil {
		logger.Error("failed to compile moderation rules", "error", err)
		os.Exit(1)
	}

	// The moderation classifier always runs on OpenAI; the chat generator
	// provider is selectable independently.
	if cfg.OpenAIAPIKey == "" {
		logger.Error("OPENAI_API_KEY is required for the moderation classifier")
		os.Exit(1)
	}
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	classifier := moderation.NewClassifierGate(openaiClient, cfg.ModerationModel, cfg.ClassifierTimeout, logger)
	pipeline := moderation.NewPipeline(ruleEngine, classifier, gateMetrics, logger)

	store, err := newSessionStore(cfg)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}

	llmClient, cleanup, err := newLLMClient(context.Background(), cfg, openaiClient)
	if err != nil {
		logger.Error("failed to initialize LLM client", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	generator := conversation.NewGenerator(llmClient, store, cfg.ChatModel, cfg.GeneratorTimeout, logger)
	controller := conversation.NewController(pipeline, generator, store, gateMetrics, logger)

	conversationHandler := conversation.NewHandler(controller, store, logger)
	webchatHandler := webchat.NewHandler(controller, store, logger)
	analyticsHandler := analytics.NewHandler(cfg.LogFile, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		ConversationHandler: conversationHandler,
		WebchatHandler:      webchatHandler,
		AnalyticsHandler:    analyticsHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminJWTSecret:      cfg.AdminJWTSecret,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newSessionStore(cfg *appconfig.Config) (conversation.Store, error) {
	if cfg.SessionStore != "redis" {
		return conversation.NewMemoryStore(cfg.MaxSessions), nil
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return conversation.NewRedisStore(client, cfg.SessionTTL), nil
}

func newLLMClient(ctx context.Context, cfg *appconfig.Config, openaiClient *openai.Client) (conversation.LLMClient, func(), error) {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, err
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), nil, nil
	default:
		return conversation.NewOpenAILLMClient(openaiClient), nil, nil
	}
}
