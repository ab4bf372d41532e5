// Package autosave persists the draft to the backend without user action,
// coalescing rapid edits into single write attempts and tolerating partial
// sub-save failures.
package autosave

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"contract-wizard/internal/backend"
	"contract-wizard/internal/common/cache"
	werrors "contract-wizard/internal/common/errors"
	"contract-wizard/internal/common/logger"
	"contract-wizard/internal/common/metrics"
	"contract-wizard/internal/common/observability"
	"contract-wizard/internal/models"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Source supplies the state to persist. The session implements it.
type Source interface {
	Snapshot() models.Snapshot
}

// Options carries the orchestrator's dependencies.
type Options struct {
	Backend       backend.API
	Store         cache.SnapshotStore
	Source        Source
	Logger        logger.Logger
	Observability *observability.Observability
	Debounce      time.Duration
	RetryDelay    time.Duration
}

// Orchestrator owns the debounce timer, the in-flight guard, and the
// last-saved fingerprint. All state transitions serialize through mu, so
// the coalescing guarantees hold even though timers fire on their own
// goroutines.
type Orchestrator struct {
	backend    backend.API
	store      cache.SnapshotStore
	source     Source
	logger     logger.Logger
	obs        *observability.Observability
	debounce   time.Duration
	retryDelay time.Duration

	mu              sync.Mutex
	timer           *time.Timer
	inFlight        bool
	retryRequested  bool
	lastFingerprint uint64
	projectID       string
	createdLLCID    string
	stopped         bool
}

func New(opts Options) *Orchestrator {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Orchestrator{
		backend:    opts.Backend,
		store:      opts.Store,
		source:     opts.Source,
		logger:     opts.Logger,
		obs:        opts.Observability,
		debounce:   opts.Debounce,
		retryDelay: opts.RetryDelay,
	}
}

// ProjectID returns the backing project record's ID, empty until the first
// successful create.
func (o *Orchestrator) ProjectID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.projectID
}

// SetProjectID seeds the backing record ID (hydration and crash recovery).
func (o *Orchestrator) SetProjectID(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.projectID = id
}

// Notify (re)starts the debounce window. Only the trailing edit within any
// window triggers a save attempt.
func (o *Orchestrator) Notify() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() {
		o.attempt(context.Background())
	})
}

// Flush saves immediately, bypassing the debounce window. Navigation calls
// it so leaving a step never loses unsaved input.
func (o *Orchestrator) Flush(ctx context.Context) {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	o.attempt(ctx)
}

// Stop cancels any pending timer. In-flight saves run to completion.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// EnsureProjectSync creates or updates the backing project record and
// returns the failure, unlike autosave attempts which swallow it. Step 1's
// navigation gate requires this write to succeed before advancing.
func (o *Orchestrator) EnsureProjectSync(ctx context.Context) error {
	snap := o.source.Snapshot()

	o.mu.Lock()
	id := o.projectID
	o.mu.Unlock()

	if id == "" {
		created, err := o.createProject(ctx, &snap.ProjectData)
		if err != nil {
			return werrors.NewProjectCreateFailedError(err)
		}
		o.mu.Lock()
		o.projectID = created
		o.mu.Unlock()
		return nil
	}

	if err := o.backend.UpdateProject(ctx, id, projectRequest(&snap.ProjectData)); err != nil {
		return werrors.NewProjectCreateFailedError(err)
	}
	return nil
}

// attempt runs one autosave cycle. A cycle already in flight absorbs the
// request via the retry flag; an unchanged fingerprint skips the network
// entirely.
func (o *Orchestrator) attempt(ctx context.Context) {
	snap := o.source.Snapshot()
	fp := Fingerprint(&snap.ProjectData)

	o.mu.Lock()
	if o.inFlight {
		o.retryRequested = true
		o.mu.Unlock()
		metrics.AutosaveSkipped.WithLabelValues("in_flight").Inc()
		return
	}
	if fp == o.lastFingerprint {
		o.mu.Unlock()
		metrics.AutosaveSkipped.WithLabelValues("fingerprint").Inc()
		return
	}
	o.inFlight = true
	projectID := o.projectID
	o.mu.Unlock()

	started := time.Now()
	metrics.AutosaveAttempts.Inc()

	saved := o.save(ctx, &snap, projectID, fp)

	status := "ok"
	if !saved {
		status = "error"
	}
	metrics.AutosaveDuration.Observe(time.Since(started).Seconds())
	if o.obs != nil {
		o.obs.RecordSave(ctx, status)
		o.obs.RecordSaveDuration(ctx, time.Since(started), status)
	}

	o.mu.Lock()
	o.inFlight = false
	retry := o.retryRequested
	o.retryRequested = false
	stopped := o.stopped
	o.mu.Unlock()

	if retry && !stopped {
		// An edit arrived during the save; exactly one follow-up attempt
		// runs after a short fixed delay instead of a fresh debounce window.
		metrics.AutosaveCoalescedRetries.Inc()
		time.AfterFunc(o.retryDelay, func() {
			o.attempt(context.Background())
		})
	}
}

// save performs the project write plus the independent sub-saves. It
// returns true when the project record itself was saved; sub-save failures
// are logged and swallowed.
func (o *Orchestrator) save(ctx context.Context, snap *models.Snapshot, projectID string, fp uint64) bool {
	d := &snap.ProjectData

	if projectID == "" {
		created, err := o.createProject(ctx, d)
		if err != nil {
			o.logger.Warn("Autosave project create failed", map[string]interface{}{
				"error": err.Error(),
			})
			metrics.AutosaveSubSaveFailures.WithLabelValues("project").Inc()
			return false
		}
		projectID = created
		o.mu.Lock()
		o.projectID = created
		o.mu.Unlock()
	} else {
		if err := o.backend.UpdateProject(ctx, projectID, projectRequest(d)); err != nil {
			o.logger.Warn("Autosave project patch failed", map[string]interface{}{
				"projectId": projectID,
				"error":     err.Error(),
			})
			metrics.AutosaveSubSaveFailures.WithLabelValues("project").Inc()
			return false
		}
	}

	// Sub-saves are independent; a failed LLC creation must not prevent the
	// financials from saving.
	if d.ClientLegalName != "" {
		if err := o.backend.SaveClient(ctx, projectID, clientInfo(d)); err != nil {
			o.logSubSaveFailure("client", err)
		}
	}

	if hasFinancialAmount(d) {
		if err := o.backend.SaveFinancials(ctx, projectID, financials(d)); err != nil {
			o.logSubSaveFailure("financials", err)
		}
	}

	if d.SiteAddress != "" {
		if err := o.backend.SaveDetails(ctx, projectID, details(d)); err != nil {
			o.logSubSaveFailure("details", err)
		}
	}

	o.maybeCreateLLC(ctx, projectID, d)

	o.mu.Lock()
	o.lastFingerprint = fp
	o.mu.Unlock()

	snap.DraftProjectID = projectID
	if o.store != nil {
		if err := o.store.Save(ctx, snap); err != nil {
			o.logSubSaveFailure("cache", err)
		}
	}

	return true
}

func (o *Orchestrator) createProject(ctx context.Context, d *models.ProjectDraft) (string, error) {
	req := projectRequest(d)
	if req.ProjectNumber == "" {
		req.ProjectNumber = SynthesizeDraftNumber()
	}
	created, err := o.backend.CreateProject(ctx, req)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// maybeCreateLLC creates and links a new LLC once, when the option is "new"
// and a name can be derived and a site address exists.
func (o *Orchestrator) maybeCreateLLC(ctx context.Context, projectID string, d *models.ProjectDraft) {
	o.mu.Lock()
	alreadyCreated := o.createdLLCID != ""
	o.mu.Unlock()

	if alreadyCreated || d.LLCOption != models.LLCOptionNew || d.SiteAddress == "" {
		return
	}
	name := DeriveLLCName(d)
	if name == "" {
		return
	}

	llc, err := o.backend.CreateLLC(ctx, backend.LLCRequest{
		Name:  name,
		State: d.NewLLCState,
		EIN:   d.NewLLCEIN,
	})
	if err != nil {
		o.logSubSaveFailure("llc", err)
		return
	}

	o.mu.Lock()
	o.createdLLCID = llc.ID
	o.mu.Unlock()

	if err := o.backend.LinkLLC(ctx, projectID, llc.ID); err != nil {
		o.logSubSaveFailure("llc", err)
	}
}

func (o *Orchestrator) logSubSaveFailure(target string, err error) {
	metrics.AutosaveSubSaveFailures.WithLabelValues(target).Inc()
	o.logger.Warn("Autosave sub-save failed", map[string]interface{}{
		"target": target,
		"error":  err.Error(),
	})
}

// Fingerprint hashes the narrow field subset that signals "something
// material changed". Edits outside this subset never trigger a write.
func Fingerprint(d *models.ProjectDraft) uint64 {
	parts := []string{
		d.ProjectName,
		d.ProjectNumber,
		d.ServiceModel,
		d.ClientLegalName,
		d.ClientEmail,
		d.SiteAddress,
		d.SiteCity,
		d.SiteState,
		fmt.Sprintf("%.2f", d.DesignFee),
		fmt.Sprintf("%.2f", d.PreliminaryOffsiteCost),
		d.EffectiveDate,
	}
	return xxhash.Sum64String(strings.Join(parts, "|"))
}

// SynthesizeDraftNumber produces a placeholder project number for the first
// autosave when the user has not supplied one.
func SynthesizeDraftNumber() string {
	return fmt.Sprintf("%d-DRAFT-%s", time.Now().Year(), uuid.NewString()[:8])
}

// DeriveLLCName prefers the user-entered name, falling back to the project
// name.
func DeriveLLCName(d *models.ProjectDraft) string {
	if d.NewLLCName != "" {
		return d.NewLLCName
	}
	if d.ProjectName != "" {
		return d.ProjectName + " LLC"
	}
	return ""
}

func hasFinancialAmount(d *models.ProjectDraft) bool {
	return d.DesignFee > 0 ||
		d.DeliveryInstallationPrice > 0 ||
		d.PreliminaryOffsiteCost > 0 ||
		d.SitePreparationCost > 0 ||
		d.UtilitiesCost > 0 ||
		d.CompletionCost > 0
}

func projectRequest(d *models.ProjectDraft) backend.ProjectRequest {
	return backend.ProjectRequest{
		ProjectNumber: d.ProjectNumber,
		ProjectName:   d.ProjectName,
		ProjectType:   d.ProjectType,
		TotalUnits:    d.TotalUnits,
		ServiceModel:  d.ServiceModel,
	}
}

func clientInfo(d *models.ProjectDraft) backend.ClientInfo {
	return backend.ClientInfo{
		LegalName:   d.ClientLegalName,
		EntityType:  d.ClientEntityType,
		Email:       d.ClientEmail,
		Phone:       d.ClientPhone,
		SignerName:  d.SignerName,
		SignerTitle: d.SignerTitle,
	}
}

func financials(d *models.ProjectDraft) backend.Financials {
	return backend.Financials{
		DesignFeeCents:                 backend.ToCents(d.DesignFee),
		PreliminaryOffsiteCostCents:    backend.ToCents(d.PreliminaryOffsiteCost),
		DeliveryInstallationPriceCents: backend.ToCents(d.DeliveryInstallationPrice),
		SitePreparationCostCents:       backend.ToCents(d.SitePreparationCost),
		UtilitiesCostCents:             backend.ToCents(d.UtilitiesCost),
		CompletionCostCents:            backend.ToCents(d.CompletionCost),
		ContractPriceCents:             backend.ToCents(d.ContractPrice),
		MilestonePercents:              append([]float64(nil), d.MilestonePercents...),
		RetainagePercent:               d.RetainagePercent,
		EffectiveDate:                  d.EffectiveDate,
	}
}

func details(d *models.ProjectDraft) backend.Details {
	units := make([]backend.UnitDetail, 0, len(d.Units))
	for _, u := range d.Units {
		units = append(units, backend.UnitDetail{
			Model:         u.Model,
			SquareFootage: u.SquareFootage,
			Bedrooms:      u.Bedrooms,
			Bathrooms:     u.Bathrooms,
			PriceCents:    backend.ToCents(u.Price),
		})
	}
	return backend.Details{
		SiteAddress: d.SiteAddress,
		SiteCity:    d.SiteCity,
		SiteState:   d.SiteState,
		SiteZip:     d.SiteZip,
		SiteCounty:  d.SiteCounty,
		SiteAPN:     d.SiteAPN,
		Units:       units,
	}
}
