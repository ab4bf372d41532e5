package models

import "time"

// Wizard step boundaries.
const (
	FirstStep = 1
	FinalStep = 9
)

// GenerationState enumerates the generation pipeline's lifecycle.
type GenerationState string

const (
	GenerationIdle    GenerationState = "idle"
	GenerationPre     GenerationState = "pre-generation"
	GenerationRunning GenerationState = "generating"
	GenerationSuccess GenerationState = "success"
	GenerationError   GenerationState = "error"
)

// GenerationProgress reports pipeline progress at fixed checkpoints.
type GenerationProgress struct {
	State   GenerationState `json:"state"`
	Percent int             `json:"percent"`
	SubStep string          `json:"subStep"`
	Message string          `json:"message,omitempty"`
}

// WizardProgress tracks navigation and gating state.
type WizardProgress struct {
	CurrentStep         int              `json:"currentStep"`
	CompletedSteps      map[int]bool     `json:"completedSteps"`
	FieldErrors         map[string]string `json:"fieldErrors"`
	ConfirmationChecked bool             `json:"confirmationChecked"`
	Generation          GenerationProgress `json:"generation"`
}

// NewWizardProgress returns progress positioned on step 1 with no completions.
func NewWizardProgress() WizardProgress {
	return WizardProgress{
		CurrentStep:    FirstStep,
		CompletedSteps: make(map[int]bool),
		FieldErrors:    make(map[string]string),
		Generation:     GenerationProgress{State: GenerationIdle},
	}
}

// GeneratedContractRef points at a contract document produced by the
// generation pipeline. Ephemeral: it lives only in wizard memory.
type GeneratedContractRef struct {
	ID           string    `json:"id"`
	DocumentType string    `json:"documentType"`
	Filename     string    `json:"filename"`
	DownloadURL  string    `json:"downloadUrl"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Snapshot is the crash-recovery payload mirrored to the durable cache
// after every successful autosave. Last writer wins, no merge.
type Snapshot struct {
	ProjectData    ProjectDraft `json:"projectData"`
	CurrentStep    int          `json:"currentStep"`
	CompletedSteps []int        `json:"completedSteps"`
	DraftProjectID string       `json:"draftProjectId"`
}
