// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutosaveAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wizard_autosave_attempts_total",
			Help: "Total number of autosave attempts that issued network writes",
		},
	)

	AutosaveSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_autosave_skipped_total",
			Help: "Autosave timer fires that issued no write, by reason",
		},
		[]string{"reason"}, // "fingerprint", "in_flight"
	)

	AutosaveCoalescedRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wizard_autosave_coalesced_retries_total",
			Help: "Follow-up save attempts scheduled for edits made during an in-flight save",
		},
	)

	AutosaveSubSaveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_autosave_subsave_failures_total",
			Help: "Silent sub-save failures during autosave, by target",
		},
		[]string{"target"}, // "project", "client", "financials", "details", "llc", "cache"
	)

	AutosaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "wizard_autosave_duration_seconds",
			Help: "Duration of a full autosave attempt in seconds",
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_step_validation_failures_total",
			Help: "Step validation gate failures by step",
		},
		[]string{"step"},
	)

	GenerationStages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_generation_stages_total",
			Help: "Generation pipeline stage outcomes",
		},
		[]string{"stage", "outcome"}, // outcome: "ok", "error"
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "wizard_generation_duration_seconds",
			Help: "Duration of the full generation pipeline in seconds",
		},
	)
)
