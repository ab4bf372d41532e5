// Package wizard owns the in-memory contract-intake draft: a single source
// of truth mutated through merge-style updates, with derived fields
// recomputed after every change, per-step validation gating navigation, and
// debounced autosave persisting everything in the background.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contract-wizard/internal/backend"
	"contract-wizard/internal/common/cache"
	"contract-wizard/internal/common/config"
	werrors "contract-wizard/internal/common/errors"
	"contract-wizard/internal/common/logger"
	"contract-wizard/internal/common/metrics"
	"contract-wizard/internal/common/notify"
	"contract-wizard/internal/common/observability"
	"contract-wizard/internal/models"
	"contract-wizard/internal/wizard/autosave"
	"contract-wizard/internal/wizard/derive"
	"contract-wizard/internal/wizard/generate"
	"contract-wizard/internal/wizard/validation"
)

// SessionOptions carries the session's dependencies.
type SessionOptions struct {
	Backend       backend.API
	Store         cache.SnapshotStore
	Policy        validation.Policy
	Toaster       notify.Toaster
	Notifier      *notify.CompletionNotifier
	Logger        logger.Logger
	Observability *observability.Observability
	Autosave      config.AutosaveConfig

	// InvalidateQueries is called after a successful generation so other
	// views can refresh their cached reads.
	InvalidateQueries func()
}

// Session is the wizard's state container.
type Session struct {
	mu       sync.Mutex
	draft    models.ProjectDraft
	progress models.WizardProgress
	docs     []models.GeneratedContractRef

	backend    backend.API
	store      cache.SnapshotStore
	policy     validation.Policy
	toaster    notify.Toaster
	notifier   *notify.CompletionNotifier
	logger     logger.Logger
	obs        *observability.Observability
	saver      *autosave.Orchestrator
	pipeline   *generate.Pipeline
	invalidate func()
}

// NewSession builds a session around a fresh default draft. The project
// number is prefilled from the backend when reachable.
func NewSession(opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Policy == nil {
		opts.Policy = validation.Strict{}
	}
	if opts.Toaster == nil {
		opts.Toaster = notify.NopToaster{}
	}

	s := &Session{
		draft:      models.NewProjectDraft(),
		progress:   models.NewWizardProgress(),
		backend:    opts.Backend,
		store:      opts.Store,
		policy:     opts.Policy,
		toaster:    opts.Toaster,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		obs:        opts.Observability,
		invalidate: opts.InvalidateQueries,
	}
	derive.Apply(&s.draft)

	s.saver = autosave.New(autosave.Options{
		Backend:       opts.Backend,
		Store:         opts.Store,
		Source:        s,
		Logger:        opts.Logger,
		Observability: opts.Observability,
		Debounce:      opts.Autosave.Debounce(),
		RetryDelay:    opts.Autosave.RetryDelay(),
	})
	s.pipeline = generate.New(opts.Backend, opts.Logger, opts.Observability)

	return s
}

// PrefillProjectNumber fetches the next available number for a fresh draft.
// Backend unavailability falls back to a synthesized draft number.
func (s *Session) PrefillProjectNumber(ctx context.Context) {
	number, err := s.backend.NextProjectNumber(ctx)
	if err != nil {
		s.logger.Warn("Next project number unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		number = autosave.SynthesizeDraftNumber()
	}
	s.mu.Lock()
	if s.draft.ProjectNumber == "" {
		s.draft.ProjectNumber = number
	}
	s.mu.Unlock()
}

// Close stops background autosave. In-flight saves complete.
func (s *Session) Close() {
	s.saver.Stop()
}

// Snapshot implements autosave.Source.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.Snapshot {
	completed := make([]int, 0, len(s.progress.CompletedSteps))
	for step, done := range s.progress.CompletedSteps {
		if done {
			completed = append(completed, step)
		}
	}
	draft := s.draft
	draft.Units = append([]models.UnitSpec(nil), s.draft.Units...)
	draft.MilestonePercents = append([]float64(nil), s.draft.MilestonePercents...)
	return models.Snapshot{
		ProjectData:    draft,
		CurrentStep:    s.progress.CurrentStep,
		CompletedSteps: completed,
		DraftProjectID: s.saver.ProjectID(),
	}
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() models.ProjectDraft {
	return s.Snapshot().ProjectData
}

// Progress returns a copy of the navigation/generation progress.
func (s *Session) Progress() models.WizardProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress
	p.CompletedSteps = make(map[int]bool, len(s.progress.CompletedSteps))
	for k, v := range s.progress.CompletedSteps {
		p.CompletedSteps[k] = v
	}
	p.FieldErrors = make(map[string]string, len(s.progress.FieldErrors))
	for k, v := range s.progress.FieldErrors {
		p.FieldErrors[k] = v
	}
	return p
}

// Documents returns the refs collected by the last successful generation.
func (s *Session) Documents() []models.GeneratedContractRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GeneratedContractRef(nil), s.docs...)
}

// UpdateProjectData shallow-merges the patch into the draft, clears all
// validation errors (errors come back on the next navigation attempt, not
// live), reruns derivation, and restarts the autosave window.
func (s *Session) UpdateProjectData(patch models.DraftPatch) {
	s.mu.Lock()
	patch.Apply(&s.draft)
	s.progress.FieldErrors = make(map[string]string)
	derive.Apply(&s.draft)
	s.mu.Unlock()
	s.saver.Notify()
}

// UnitPatch is a partial update for a single unit.
type UnitPatch struct {
	Model         *string
	SquareFootage *int
	Bedrooms      *int
	Bathrooms     *float64
	Price         *float64
}

// UpdateUnit merges the patch into the unit with the given local ID.
func (s *Session) UpdateUnit(id int, patch UnitPatch) {
	s.mu.Lock()
	for i := range s.draft.Units {
		if s.draft.Units[i].ID != id {
			continue
		}
		u := &s.draft.Units[i]
		if patch.Model != nil {
			u.Model = *patch.Model
		}
		if patch.SquareFootage != nil {
			u.SquareFootage = *patch.SquareFootage
		}
		if patch.Bedrooms != nil {
			u.Bedrooms = *patch.Bedrooms
		}
		if patch.Bathrooms != nil {
			u.Bathrooms = *patch.Bathrooms
		}
		if patch.Price != nil {
			u.Price = *patch.Price
		}
		break
	}
	s.progress.FieldErrors = make(map[string]string)
	derive.Apply(&s.draft)
	s.mu.Unlock()
	s.saver.Notify()
}

// AddUnit appends a default unit with a never-reused ID and grows
// totalUnits to match.
func (s *Session) AddUnit() {
	s.mu.Lock()
	s.draft.Units = append(s.draft.Units, models.DefaultUnit(derive.NextUnitID(s.draft.Units)))
	s.draft.TotalUnits = len(s.draft.Units)
	s.progress.FieldErrors = make(map[string]string)
	derive.Apply(&s.draft)
	s.mu.Unlock()
	s.saver.Notify()
}

// RemoveUnit drops the unit with the given ID. totalUnits never reports
// zero even if the list is momentarily empty.
func (s *Session) RemoveUnit(id int) {
	s.mu.Lock()
	kept := s.draft.Units[:0]
	for _, u := range s.draft.Units {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	s.draft.Units = kept
	s.draft.TotalUnits = len(kept)
	if s.draft.TotalUnits < 1 {
		s.draft.TotalUnits = 1
	}
	s.progress.FieldErrors = make(map[string]string)
	derive.Apply(&s.draft)
	s.mu.Unlock()
	s.saver.Notify()
}

// SetConfirmation records the review-step confirmation checkbox.
func (s *Session) SetConfirmation(checked bool) {
	s.mu.Lock()
	s.progress.ConfirmationChecked = checked
	s.mu.Unlock()
}

// ValidateStep runs the injected policy against the current draft.
func (s *Session) ValidateStep(step int) (bool, werrors.FieldErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.ValidateStep(step, &s.draft, &s.progress)
}

// NextStep revalidates the current step and advances on success. Step 1 is
// additionally gated on a unique project number and a successful remote
// project write.
func (s *Session) NextStep(ctx context.Context) error {
	s.mu.Lock()
	current := s.progress.CurrentStep
	valid, fields := s.policy.ValidateStep(current, &s.draft, &s.progress)
	if !valid {
		s.progress.FieldErrors = fields
		s.mu.Unlock()
		metrics.ValidationFailures.WithLabelValues(fmt.Sprint(current)).Inc()
		s.toaster.Error("Check the highlighted fields", fmt.Sprintf("Step %d has %d issue(s).", current, len(fields)))
		return werrors.NewStepValidationFailedError(current, fields)
	}
	s.mu.Unlock()

	if current == models.FirstStep {
		s.mu.Lock()
		number := s.draft.ProjectNumber
		s.mu.Unlock()
		if !s.CheckProjectNumberUnique(ctx, number) {
			fields := werrors.FieldErrors{"projectNumber": "This project number is already in use"}
			s.mu.Lock()
			s.progress.FieldErrors = fields
			s.mu.Unlock()
			metrics.ValidationFailures.WithLabelValues(fmt.Sprint(current)).Inc()
			s.toaster.Error("Check the highlighted fields", "That project number belongs to another project.")
			return werrors.NewStepValidationFailedError(current, fields)
		}
		if err := s.saver.EnsureProjectSync(ctx); err != nil {
			s.toaster.Error("Could not save project", "The project record could not be created. Try again.")
			return err
		}
	}

	s.mu.Lock()
	s.progress.CompletedSteps[current] = true
	if s.progress.CurrentStep < models.FinalStep {
		s.progress.CurrentStep++
	}
	s.mu.Unlock()
	return nil
}

// PrevStep flushes autosave and moves the cursor back.
func (s *Session) PrevStep(ctx context.Context) {
	s.saver.Flush(ctx)
	s.mu.Lock()
	if s.progress.CurrentStep > models.FirstStep {
		s.progress.CurrentStep--
	}
	s.mu.Unlock()
}

// GoToStep flushes autosave, then moves the cursor if the target is
// reachable: step 1, a completed step, the successor of a completed step,
// anything behind the cursor, or any step under the permissive policy.
func (s *Session) GoToStep(ctx context.Context, target int) error {
	if target < models.FirstStep || target > models.FinalStep {
		return werrors.NewStepUnreachableError(target)
	}

	s.saver.Flush(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reachableLocked(target) {
		return werrors.NewStepUnreachableError(target)
	}
	s.progress.CurrentStep = target
	return nil
}

func (s *Session) reachableLocked(target int) bool {
	if _, permissive := s.policy.(validation.Permissive); permissive {
		return true
	}
	if target == models.FirstStep || target <= s.progress.CurrentStep {
		return true
	}
	if s.progress.CompletedSteps[target] || s.progress.CompletedSteps[target-1] {
		return true
	}
	return false
}

// LoadProject hydrates the draft from a persisted project. Sub-resource
// fetch failures are logged and the rest is merged.
func (s *Session) LoadProject(ctx context.Context, projectID string) error {
	project, err := s.backend.GetProject(ctx, projectID)
	if err != nil {
		return werrors.NewProjectFetchFailedError(projectID, err)
	}

	s.mu.Lock()
	s.draft.ProjectNumber = project.ProjectNumber
	s.draft.ProjectName = project.ProjectName
	s.draft.ProjectType = project.ProjectType
	if project.TotalUnits > 0 {
		s.draft.TotalUnits = project.TotalUnits
	}
	if project.ServiceModel != "" {
		s.draft.ServiceModel = project.ServiceModel
	}
	if project.LLCID != "" {
		s.draft.LLCOption = models.LLCOptionExisting
		s.draft.ExistingLLCID = project.LLCID
	}
	s.mu.Unlock()

	if info, err := s.backend.GetProjectClient(ctx, projectID); err != nil {
		s.logger.Warn("Client hydration failed", map[string]interface{}{"error": err.Error()})
	} else {
		s.mu.Lock()
		s.draft.ClientLegalName = info.LegalName
		s.draft.ClientEntityType = info.EntityType
		s.draft.ClientEmail = info.Email
		s.draft.ClientPhone = info.Phone
		s.draft.SignerName = info.SignerName
		s.draft.SignerTitle = info.SignerTitle
		s.mu.Unlock()
	}

	if fin, err := s.backend.GetProjectFinancials(ctx, projectID); err != nil {
		s.logger.Warn("Financials hydration failed", map[string]interface{}{"error": err.Error()})
	} else {
		s.mu.Lock()
		s.draft.DesignFee = backend.FromCents(fin.DesignFeeCents)
		s.draft.DeliveryInstallationPrice = backend.FromCents(fin.DeliveryInstallationPriceCents)
		s.draft.SitePreparationCost = backend.FromCents(fin.SitePreparationCostCents)
		s.draft.UtilitiesCost = backend.FromCents(fin.UtilitiesCostCents)
		s.draft.CompletionCost = backend.FromCents(fin.CompletionCostCents)
		if len(fin.MilestonePercents) == 5 {
			s.draft.MilestonePercents = append([]float64(nil), fin.MilestonePercents...)
		}
		if fin.EffectiveDate != "" {
			s.draft.EffectiveDate = fin.EffectiveDate
		}
		s.mu.Unlock()
	}

	if det, err := s.backend.GetProjectDetails(ctx, projectID); err != nil {
		s.logger.Warn("Details hydration failed", map[string]interface{}{"error": err.Error()})
	} else {
		s.mu.Lock()
		s.draft.SiteAddress = det.SiteAddress
		s.draft.SiteCity = det.SiteCity
		s.draft.SiteState = det.SiteState
		s.draft.SiteZip = det.SiteZip
		s.draft.SiteCounty = det.SiteCounty
		s.draft.SiteAPN = det.SiteAPN
		if len(det.Units) > 0 {
			units := make([]models.UnitSpec, 0, len(det.Units))
			for i, u := range det.Units {
				units = append(units, models.UnitSpec{
					ID:            i + 1,
					Model:         u.Model,
					SquareFootage: u.SquareFootage,
					Bedrooms:      u.Bedrooms,
					Bathrooms:     u.Bathrooms,
					Price:         backend.FromCents(u.PriceCents),
				})
			}
			s.draft.Units = units
			s.draft.TotalUnits = len(units)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	derive.Apply(&s.draft)
	s.mu.Unlock()
	s.saver.SetProjectID(projectID)
	return nil
}

// Recover restores draft and navigation state from the crash-recovery
// snapshot. It reports whether a snapshot was applied.
func (s *Session) Recover(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	snap, err := s.store.Load(ctx)
	if err == cache.ErrNoSnapshot {
		return false, nil
	}
	if err != nil {
		return false, werrors.NewCacheReadFailedError(err)
	}

	s.mu.Lock()
	s.draft = snap.ProjectData
	derive.Apply(&s.draft)
	if snap.CurrentStep >= models.FirstStep && snap.CurrentStep <= models.FinalStep {
		s.progress.CurrentStep = snap.CurrentStep
	}
	s.progress.CompletedSteps = make(map[int]bool, len(snap.CompletedSteps))
	for _, step := range snap.CompletedSteps {
		s.progress.CompletedSteps[step] = true
	}
	s.mu.Unlock()

	if snap.DraftProjectID != "" {
		s.saver.SetProjectID(snap.DraftProjectID)
	}
	return true, nil
}

// CheckProjectNumberUnique asks the backend whether the number is free.
// Short inputs are not checked; backend failures are treated as unique
// (best effort, the server gets the final word on save).
func (s *Session) CheckProjectNumberUnique(ctx context.Context, number string) bool {
	if len(number) < 6 {
		return true
	}
	unique, err := s.backend.CheckNumberUnique(ctx, number, s.saver.ProjectID())
	if err != nil {
		s.logger.Warn("Uniqueness check failed", map[string]interface{}{
			"projectNumber": number,
			"error":         err.Error(),
		})
		return true
	}
	return unique
}

// Generate runs the generation pipeline: an explicit, user-initiated,
// all-or-nothing-per-stage sequence. Any stage failure leaves the
// generation state terminal at error; documents already created remain.
func (s *Session) Generate(ctx context.Context) ([]models.GeneratedContractRef, error) {
	s.mu.Lock()
	if s.progress.Generation.State == models.GenerationRunning {
		s.mu.Unlock()
		return nil, fmt.Errorf("generation already running")
	}
	s.progress.Generation = models.GenerationProgress{State: models.GenerationPre, Percent: 0, SubStep: "preparing"}
	draft := s.draft
	draft.Units = append([]models.UnitSpec(nil), s.draft.Units...)
	draft.MilestonePercents = append([]float64(nil), s.draft.MilestonePercents...)
	s.mu.Unlock()

	s.setGeneration(models.GenerationProgress{State: models.GenerationRunning, Percent: 5, SubStep: "project"})

	result, err := s.pipeline.Run(ctx, &draft, s.saver.ProjectID(), s.setGeneration)
	if err != nil {
		s.setGeneration(models.GenerationProgress{
			State:   models.GenerationError,
			Percent: 0,
			Message: err.Error(),
		})
		s.toaster.Error("Contract generation failed", err.Error())
		return nil, err
	}

	s.saver.SetProjectID(result.ProjectID)

	s.mu.Lock()
	// Mirror LLC fields resolved during generation for later renders.
	s.draft.NewLLCName = draft.NewLLCName
	s.draft.NewLLCState = draft.NewLLCState
	s.draft.NewLLCEIN = draft.NewLLCEIN
	s.docs = result.Documents
	s.progress.Generation = models.GenerationProgress{
		State:   models.GenerationSuccess,
		Percent: 100,
		SubStep: "done",
	}
	s.mu.Unlock()

	// The draft is finalized; the crash-recovery snapshot is obsolete.
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warn("Snapshot clear failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if s.invalidate != nil {
		s.invalidate()
	}
	if s.notifier != nil {
		// Best effort with its own deadline; never fails the generation.
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.notifier.NotifyGenerated(nctx, &draft, result.Documents)
	}

	s.toaster.Success("Contracts generated",
		fmt.Sprintf("%d document(s) are ready for download.", len(result.Documents)))
	return result.Documents, nil
}

func (s *Session) setGeneration(p models.GenerationProgress) {
	s.mu.Lock()
	s.progress.Generation = p
	s.mu.Unlock()
}

// FlushAutosave forces an immediate save, bypassing the debounce window.
func (s *Session) FlushAutosave(ctx context.Context) {
	s.saver.Flush(ctx)
}

// ProjectID exposes the backing record's ID once the first save created it.
func (s *Session) ProjectID() string {
	return s.saver.ProjectID()
}
