package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"

	"github.com/rssnews/orchestrator/internal/application/orchestrator"
	"github.com/rssnews/orchestrator/internal/application/services"
	domainModels "github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/config"
	"github.com/rssnews/orchestrator/internal/infrastructure/logging"
	"github.com/rssnews/orchestrator/internal/infrastructure/memorystore"
	"github.com/rssnews/orchestrator/internal/infrastructure/metrics"
	"github.com/rssnews/orchestrator/internal/infrastructure/providers"
	"github.com/rssnews/orchestrator/internal/infrastructure/retrieval"
	"github.com/rssnews/orchestrator/internal/presentation/api"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	host := flag.String("host", "", "Server host (overrides config)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.NewStructuredLogger(os.Stdout, logging.InfoLevel)
	if cfg.Logging.Level == "debug" {
		logger.SetMinLevel(logging.DebugLevel)
	}

	providerRegistry := make(map[string]domainServices.LLMProvider)
	for name, providerCfg := range cfg.Providers {
		if !providerCfg.Enabled {
			continue
		}
		var provider domainServices.LLMProvider
		switch name {
		case "openai":
			provider = providers.NewOpenAIProvider(providerCfg)
		case "anthropic":
			provider = providers.NewAnthropicProvider(providerCfg)
		case "gemini":
			provider = providers.NewGeminiProvider(providerCfg)
		case "deepseek":
			provider = providers.NewDeepSeekProvider(providerCfg)
		case "ollama":
			provider = providers.NewOllamaProvider(providerCfg)
		default:
			logger.Warn("unknown provider in config, skipping", map[string]interface{}{"provider": name})
			continue
		}
		providerRegistry[name] = provider
		logger.Info("initialized provider", map[string]interface{}{"provider": name})
	}
	if len(providerRegistry) == 0 {
		providerRegistry["mock"] = providers.NewMockProvider()
		logger.Warn("no providers enabled, falling back to mock provider", nil)
	}
	if _, ok := providerRegistry["mock"]; !ok {
		providerRegistry["mock"] = providers.NewMockProvider()
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Memory.RedisAddr, DB: cfg.Memory.RedisDB})
	embeddings := memorystore.NewDeterministicEmbeddings()
	memoryStore := memorystore.NewRedisStore(redisClient, nil, embeddings)

	retrievalClient := retrieval.NewInMemoryClient(nil)

	domains := services.DomainLists{Whitelist: map[string]bool{}, Blacklist: map[string]bool{}}
	for _, d := range cfg.Domains.Whitelist {
		domains.Whitelist[d] = true
	}
	for _, d := range cfg.Domains.Blacklist {
		domains.Blacklist[d] = true
	}

	router := services.NewModelRouter(providerRegistry, logger)
	experimentRouter := services.NewExperimentRouter()
	if cfg.Experiments.Enabled {
		if err := loadExperiments(cfg.Experiments.RegistryPath, experimentRouter, logger); err != nil {
			logger.Warn("failed to load experiment registry, continuing with no experiments", map[string]interface{}{"error": err.Error()})
		}
	}
	sanitizer := services.NewEvidenceSanitizer(domains)
	policy := services.NewPolicyValidator(domains)
	throttle := services.NewRequestThrottler(cfg.Router.MaxConcurrent)

	collector := metrics.NewCollector("orchestrator")
	exporter := metrics.NewPrometheusExporter("orchestrator")
	exporter.RegisterCollector(collector)

	cmdOrchestrator := orchestrator.NewCommandOrchestrator(
		retrievalClient,
		router,
		experimentRouter,
		sanitizer,
		policy,
		throttle,
		collector,
		logger,
		memoryStore,
		orchestrator.BudgetDefaults{
			MaxTokens:  cfg.Budget.MaxTokens,
			MaxCents:   cfg.Budget.MaxCents,
			MaxSeconds: cfg.Budget.MaxSeconds,
		},
		orchestrator.RetrievalDefaults{
			KFinal:       cfg.Retrieval.DefaultKFinal,
			EnableRerank: cfg.Retrieval.EnableRerank,
			WindowDays:   cfg.Retrieval.DefaultWindow,
		},
		cfg.Router.PrimaryModel,
	)

	handler := api.NewHandler(cmdOrchestrator, cfg, logger, exporter)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(api.CORSMiddleware(cfg.Security))

	r.Post("/execute", handler.Execute)
	r.Get("/healthz", handler.Healthz)
	r.Get("/metrics", handler.Metrics)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Performance.ReadTimeout,
		WriteTimeout: cfg.Performance.WriteTimeout,
		IdleTimeout:  cfg.Performance.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", map[string]interface{}{"addr": addr})
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)

	case sig := <-shutdown:
		logger.Info("received shutdown signal", map[string]interface{}{"signal": sig.String()})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", err, nil)
			if err := server.Close(); err != nil {
				log.Fatalf("Failed to close server: %v", err)
			}
		}
		logger.Info("server stopped", nil)
	}
}

// loadExperiments reads the YAML experiment registry at path and registers
// each entry with router. A missing file is not an error: experiments are
// optional and the router simply stays empty.
func loadExperiments(path string, router *services.ExperimentRouter, logger *logging.StructuredLogger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read experiment registry: %w", err)
	}

	var registry struct {
		Experiments []domainModels.Experiment `yaml:"experiments"`
	}
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return fmt.Errorf("failed to parse experiment registry: %w", err)
	}

	for i := range registry.Experiments {
		exp := registry.Experiments[i]
		if err := router.Register(&exp); err != nil {
			logger.Warn("skipping invalid experiment", map[string]interface{}{"experiment_id": exp.ID, "error": err.Error()})
			continue
		}
		logger.Info("registered experiment", map[string]interface{}{"experiment_id": exp.ID})
	}
	return nil
}
