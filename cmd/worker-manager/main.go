// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loanmatch-workers/internal/common/camunda"
	"loanmatch-workers/internal/common/config"
	"loanmatch-workers/internal/common/database"
	"loanmatch-workers/internal/common/logger"
	"loanmatch-workers/internal/common/observability"
	"loanmatch-workers/internal/matching/assessment"
	"loanmatch-workers/internal/matching/evaluator"
	"loanmatch-workers/internal/matching/orchestrator"
	"loanmatch-workers/internal/matching/scoring"

	ml "loanmatch-workers/internal/workers/matching/match-lenders"
	nm "loanmatch-workers/internal/workers/matching/notify-matches"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init Redis with retry (optional assessment cache) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Info("Redis not configured, assessment caching disabled")
	}

	// --- Init Rich Assessor ---
	assessor, err := assessment.NewGeminiAssessor(ctx, cfg.Assessor.Gemini.APIKey, cfg.Assessor.Gemini.Model)
	if err != nil {
		zapLog.Fatal("gemini assessor initialization failed", zap.Error(err))
	}
	zapLog.Info("Gemini assessor initialized", zap.String("model", cfg.Assessor.Gemini.Model))

	// --- Build Matching Pipeline ---
	policy := scoring.DefaultPolicy()
	if cfg.Matching.CibilGraceBand > 0 {
		policy.CibilGraceBand = cfg.Matching.CibilGraceBand
	}
	if cfg.Matching.FoirGraceBand > 0 {
		policy.FoirGraceBand = cfg.Matching.FoirGraceBand
	}
	if cfg.Matching.IncomeGraceRatio > 0 {
		policy.IncomeGraceRatio = cfg.Matching.IncomeGraceRatio
	}

	eval := evaluator.New(assessor, policy, log).WithRecorder(obs)
	if redis != nil && cfg.Matching.CacheTTLSeconds > 0 {
		eval = eval.WithCache(redis.Client, time.Duration(cfg.Matching.CacheTTLSeconds)*time.Second)
	}

	matcher := orchestrator.New(
		eval,
		cfg.Matching.BatchSize,
		config.GetDuration(cfg.Matching.BatchPauseMs),
		log,
	)

	// --- Register Workers ---
	if config.IsWorkerEnabled(cfg, ml.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ml.TaskType)
		handler := ml.NewHandler(
			&ml.Config{
				Timeout: config.GetDuration(wcfg.Timeout),
			},
			matcher, log,
		)
		startWorker(zeebeClient, ml.TaskType, wcfg, handler.Handle, zapLog)
	}

	if config.IsWorkerEnabled(cfg, nm.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, nm.TaskType)
		handler, err := nm.NewHandler(
			&nm.Config{
				Timeout:               config.GetDuration(wcfg.Timeout),
				AWSRegion:             cfg.Notifications.AWS.Region,
				EmailEnabled:          cfg.Notifications.Email.Enabled,
				FromEmail:             cfg.Notifications.Email.FromEmail,
				SMSEnabled:            cfg.Notifications.SMS.Enabled,
				SMSMinMatchPercentage: cfg.Notifications.SMS.MinMatchPercentage,
			},
			log,
		)
		if err != nil {
			zapLog.Fatal("failed to create notify-matches handler", zap.Error(err))
		}
		startWorker(zeebeClient, nm.TaskType, wcfg, handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
