package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/dossierlab/dossier/internal/activities"
	cfg "github.com/dossierlab/dossier/internal/config"
	"github.com/dossierlab/dossier/internal/db"
	"github.com/dossierlab/dossier/internal/llm"
	_ "github.com/dossierlab/dossier/internal/metrics" // Import for side effects
	"github.com/dossierlab/dossier/internal/pricing"
	"github.com/dossierlab/dossier/internal/ratecontrol"
	"github.com/dossierlab/dossier/internal/session"
	"github.com/dossierlab/dossier/internal/temporal"
	"github.com/dossierlab/dossier/internal/tracing"
	"github.com/dossierlab/dossier/internal/workflows"
)

const taskQueue = "dossier-research"

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load feature configuration (falls back to defaults if the file is absent)
	features, err := cfg.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded",
		zap.Int("max_sub_queries", features.Research.MaxSubQueries),
		zap.Bool("perspectives", features.Research.EnablePerspectives),
		zap.Bool("relationships", features.Research.EnableRelationships),
	)

	// Initialize tracing (no-op unless enabled)
	tracingCfg := tracing.Config{
		Enabled:      envBool("TRACING_ENABLED", false),
		ServiceName:  getEnvOrDefault("TRACING_SERVICE_NAME", ""),
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if err := tracing.Initialize(tracingCfg, logger); err != nil {
		logger.Warn("Failed to initialize tracing", zap.Error(err))
	}

	// Database client is optional; research still runs without persistence
	var store *db.Client
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		dbConfig := db.Config{
			Host:     host,
			Port:     getEnvOrDefaultInt("POSTGRES_PORT", 5432),
			User:     getEnvOrDefault("POSTGRES_USER", "dossier"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "dossier"),
			Database: getEnvOrDefault("POSTGRES_DB", "dossier"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
		store, err = db.NewClient(dbConfig, logger)
		if err != nil {
			logger.Warn("Database unavailable, research runs will not be persisted", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	} else {
		logger.Info("POSTGRES_HOST not set, skipping database persistence")
	}

	// Session manager is optional for the same reason
	var sessions *session.Manager
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		sessions, err = session.NewManager(addr, logger)
		if err != nil {
			logger.Warn("Redis unavailable, session tracking disabled", zap.Error(err))
			sessions = nil
		} else {
			defer sessions.Close()
		}
	} else {
		logger.Info("REDIS_ADDR not set, skipping session tracking")
	}

	// LLM service client (base URL resolved from LLM_SERVICE_URL)
	llmClient := llm.NewClient("", logger)
	acts := activities.NewActivities(llmClient, logger, features, sessions, store)

	// Watch the config directory for pricing and rate limit changes
	configDir := getEnvOrDefault("CONFIG_DIR", "config")
	configMgr, err := cfg.NewManager(configDir, logger)
	if err != nil {
		logger.Warn("Config manager init failed, hot reload disabled", zap.Error(err))
	} else {
		configMgr.OnChange("models.yaml", func(file string) error {
			pricing.Reload()
			ratecontrol.Reload()
			logger.Info("Model configuration reloaded", zap.String("file", file))
			return nil
		})
		if err := configMgr.Start(); err != nil {
			logger.Warn("Config manager start failed, hot reload disabled", zap.Error(err))
		} else {
			defer configMgr.Stop()
		}
	}

	// Start Prometheus metrics endpoint on configured port
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.MetricsPort(2112))
		logger.Info("Metrics server listening", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		}
	}()

	// Connect to Temporal, waiting for the endpoint to come up
	host := getEnvOrDefault("TEMPORAL_HOST", "temporal:7233")
	for i := 1; i <= 60; i++ {
		c, err := net.DialTimeout("tcp", host, 2*time.Second)
		if err == nil {
			_ = c.Close()
			break
		}
		logger.Warn("Waiting for Temporal TCP endpoint", zap.String("host", host), zap.Int("attempt", i))
		time.Sleep(1 * time.Second)
	}
	var tClient client.Client
	for attempt := 1; ; attempt++ {
		tClient, err = client.Dial(client.Options{HostPort: host, Logger: temporal.NewZapAdapter(logger)})
		if err == nil {
			break
		}
		delay := time.Duration(attempt)
		if delay > 15 {
			delay = 15
		}
		logger.Warn("Temporal not ready, retrying", zap.Int("attempt", attempt), zap.String("host", host), zap.Error(err))
		time.Sleep(delay * time.Second)
	}
	defer tClient.Close()

	w := worker.New(tClient, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     getEnvOrDefaultInt("WORKER_ACT", 10),
		MaxConcurrentWorkflowTaskExecutionSize: getEnvOrDefaultInt("WORKER_WF", 10),
	})
	w.RegisterWorkflow(workflows.ResearchWorkflow)
	w.RegisterActivity(acts)

	go func() {
		logger.Info("Temporal worker started", zap.String("queue", taskQueue))
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker exited with error", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down research worker")
	w.Stop()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
