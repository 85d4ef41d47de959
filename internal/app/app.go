package app

import (
	"fmt"
	"net/http"

	"github.com/courtedge/courtedge/external/oddsfeed"
	"github.com/courtedge/courtedge/external/reasoning"
	"github.com/courtedge/courtedge/external/schedulefeed"
	"github.com/courtedge/courtedge/external/statsprovider"
	"github.com/courtedge/courtedge/internal/config"
	"github.com/courtedge/courtedge/internal/infrastructure/repository/memory"
	"github.com/courtedge/courtedge/internal/interfaces/httpapi"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/resilience"
	"github.com/courtedge/courtedge/internal/usecase"
)

func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	statsClient := statsprovider.NewClient(statsprovider.ClientConfig{
		BaseURL:        cfg.Stats.BaseURL,
		APIKey:         cfg.Stats.APIKey,
		Timeout:        cfg.Stats.Timeout,
		MaxRetries:     cfg.Stats.MaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.Stats),
	})
	scheduleClient := schedulefeed.NewClient(schedulefeed.ClientConfig{
		BaseURL:        cfg.Schedule.BaseURL,
		APIKey:         cfg.Schedule.APIKey,
		Timeout:        cfg.Schedule.Timeout,
		MaxRetries:     cfg.Schedule.MaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.Schedule),
	})
	oddsClient := oddsfeed.NewClient(oddsfeed.ClientConfig{
		BaseURL:        cfg.Odds.BaseURL,
		APIKey:         cfg.Odds.APIKey,
		Timeout:        cfg.Odds.Timeout,
		MaxRetries:     cfg.Odds.MaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.Odds),
	})
	reasoningClient := reasoning.NewClient(reasoning.ClientConfig{
		BaseURL:         cfg.ReasoningBaseURL,
		APIKey:          cfg.ReasoningAPIKey,
		Model:           cfg.ReasoningModel,
		Timeout:         cfg.ReasoningTimeout,
		MaxRetries:      cfg.ReasoningMaxRetries,
		Temperature:     cfg.ReasoningTemperature,
		MaxOutputTokens: cfg.ReasoningMaxOutputTokens,
		Window:          cfg.ReasoningWindow,
		WindowLimit:     cfg.ReasoningWindowLimit,
		CooldownMargin:  cfg.ReasoningCooldownMargin,
		CacheTTL:        cfg.ReasoningCacheTTL,
		CacheMaxEntries: cfg.ReasoningCacheMaxEntries,
		Logger:          logger,
	})

	snapshotRepo := memory.NewSnapshotRepository()
	collector := usecase.NewCollectorService(statsClient, scheduleClient, oddsClient, cfg.CollectorMaxWorkers, logger)
	pipeline := usecase.NewPipelineService(scheduleClient, collector, reasoningClient, snapshotRepo, logger)
	matchups := usecase.NewMatchupService(snapshotRepo, logger)

	handler := httpapi.NewHandler(matchups, pipeline, reasoningClient.CooldownRemaining, logger, cfg.ServiceName, cfg.ServiceVersion)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func breakerConfig(p config.ProviderConfig) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          p.CircuitEnabled,
		FailureThreshold: p.CircuitFailureCount,
		OpenTimeout:      p.CircuitOpenTimeout,
		HalfOpenMaxReq:   p.CircuitHalfOpenMaxReq,
	}
}
