// cmd/wizard-runtime/main.go
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contract-wizard/internal/backend"
	"contract-wizard/internal/common/cache"
	"contract-wizard/internal/common/config"
	"contract-wizard/internal/common/logger"
	"contract-wizard/internal/common/notify"
	"contract-wizard/internal/common/observability"
	"contract-wizard/internal/wizard"
	"contract-wizard/internal/wizard/validation"
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting wizard runtime...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis snapshot store with retry ---
	var store *cache.RedisStore
	err = retryWithBackoff(func() error {
		store = cache.NewRedisStore(cfg.Cache)
		return store.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		// The wizard works without crash recovery; degrade instead of dying.
		zapLog.Warn("redis unavailable, crash recovery disabled", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init backend API client ---
	api := backend.NewClient(cfg.Backend, log)
	zapLog.Info("Backend client initialized", zap.String("baseUrl", cfg.Backend.BaseURL))

	// --- Init notification senders (best effort) ---
	var notifier *notify.CompletionNotifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var email notify.EmailSender
		var sms notify.SMSSender
		if cfg.Notifications.Email.Enabled {
			ses, err := notify.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Warn("SES client init failed, email notifications disabled", zap.Error(err))
			} else {
				email = ses
			}
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := notify.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Warn("SNS client init failed, SMS notifications disabled", zap.Error(err))
			} else {
				sms = snsClient
			}
		}
		notifier = notify.NewCompletionNotifier(cfg.Notifications, email, sms, log)
	}

	// --- Build the wizard session ---
	var snapshotStore cache.SnapshotStore
	if store != nil {
		snapshotStore = store
	}
	session := wizard.NewSession(wizard.SessionOptions{
		Backend:       api,
		Store:         snapshotStore,
		Policy:        validation.FromMode(cfg.Validation.Mode),
		Toaster:       notify.LogToaster{Logger: log},
		Notifier:      notifier,
		Logger:        log,
		Observability: obs,
		Autosave:      cfg.Autosave,
	})
	defer session.Close()

	if recovered, err := session.Recover(ctx); err != nil {
		zapLog.Warn("snapshot recovery failed", zap.Error(err))
	} else if recovered {
		zapLog.Info("Recovered in-progress draft from snapshot",
			zap.Int("currentStep", session.Progress().CurrentStep),
			zap.String("projectId", session.ProjectID()),
		)
	} else {
		session.PrefillProjectNumber(ctx)
	}

	zapLog.Info("Wizard session ready",
		zap.String("validationMode", cfg.Validation.Mode),
		zap.String("projectNumber", session.Draft().ProjectNumber),
	)

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
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		zapLog.Info("Health/Metrics server listening on " + addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, flushing draft...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session.FlushAutosave(shutdownCtx)

	zapLog.Info("Wizard runtime stopped gracefully")
}
