// Package notify carries user-facing messages out of the wizard: toasts for
// the hosting UI and best-effort completion notifications over email/SMS.
package notify

import "contract-wizard/internal/common/logger"

// Toaster is the sink for user-facing messages. The hosting UI supplies its
// own implementation; LogToaster serves headless runs and tests.
type Toaster interface {
	Success(title, message string)
	Error(title, message string)
}

// LogToaster writes toasts to the structured log.
type LogToaster struct {
	Logger logger.Logger
}

func (t LogToaster) Success(title, message string) {
	t.Logger.Info("toast", map[string]interface{}{
		"kind":    "success",
		"title":   title,
		"message": message,
	})
}

func (t LogToaster) Error(title, message string) {
	t.Logger.Warn("toast", map[string]interface{}{
		"kind":    "destructive",
		"title":   title,
		"message": message,
	})
}

// NopToaster drops all toasts.
type NopToaster struct{}

func (NopToaster) Success(string, string) {}
func (NopToaster) Error(string, string)   {}
