// Package generate runs the explicit, user-initiated pipeline that turns a
// validated draft into persisted contract documents. Stages run strictly in
// order because each consumes identifiers produced by the previous one; a
// stage failure ends the run in a terminal error with no rollback.
package generate

import (
	"context"
	"time"

	"contract-wizard/internal/backend"
	werrors "contract-wizard/internal/common/errors"
	"contract-wizard/internal/common/logger"
	"contract-wizard/internal/common/metrics"
	"contract-wizard/internal/common/observability"
	"contract-wizard/internal/models"
)

// Contract document types emitted by the pipeline. The full-service model
// additionally yields the on-site construction agreement.
var baseDocumentTypes = []string{
	"purchase-agreement",
	"manufacturing-agreement",
	"delivery-installation-agreement",
}

const onsiteDocumentType = "onsite-construction-agreement"

// DocumentTypes returns the applicable contract types for a service model.
func DocumentTypes(serviceModel string) []string {
	types := append([]string(nil), baseDocumentTypes...)
	if serviceModel == models.ServiceModelFullService {
		types = append(types, onsiteDocumentType)
	}
	return types
}

// Progress checkpoints. Percentages advance at fixed points, not in
// proportion to real work.
const (
	checkpointProject     = 15
	checkpointClient      = 30
	checkpointLLC         = 45
	checkpointFinancials  = 60
	checkpointContractors = 75
	checkpointDocuments   = 95
	checkpointDone        = 100
)

// ProgressFunc receives checkpoint updates while the pipeline runs.
type ProgressFunc func(models.GenerationProgress)

// Pipeline executes the generation sequence against the backend.
type Pipeline struct {
	backend backend.API
	logger  logger.Logger
	obs     *observability.Observability
}

func New(api backend.API, log logger.Logger, obs *observability.Observability) *Pipeline {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Pipeline{backend: api, logger: log, obs: obs}
}

// Result carries everything a successful run produced.
type Result struct {
	ProjectID string
	LLCID     string
	Documents []models.GeneratedContractRef
}

// Run executes the six stages. projectID may be empty; stage 1 creates the
// record in that case. The draft is mutated only by LLC field mirroring.
func (p *Pipeline) Run(ctx context.Context, d *models.ProjectDraft, projectID string, report ProgressFunc) (*Result, error) {
	started := time.Now()
	emit := func(percent int, subStep string) {
		if report != nil {
			report(models.GenerationProgress{
				State:   models.GenerationRunning,
				Percent: percent,
				SubStep: subStep,
			})
		}
	}

	fail := func(stage string, err error) (*Result, error) {
		metrics.GenerationStages.WithLabelValues(stage, "error").Inc()
		metrics.GenerationDuration.Observe(time.Since(started).Seconds())
		if p.obs != nil {
			p.obs.RecordGeneration(ctx, "error")
		}
		p.logger.Error("Generation stage failed", map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		})
		return nil, err
	}

	ok := func(stage string) {
		metrics.GenerationStages.WithLabelValues(stage, "ok").Inc()
	}

	// Stage 1: create or confirm the project record.
	emit(checkpointProject, "project")
	projectID, err := p.ensureProject(ctx, d, projectID)
	if err != nil {
		return fail("project", werrors.NewProjectCreateFailedError(err))
	}
	ok("project")

	// Stage 2: client info.
	emit(checkpointClient, "client")
	if err := p.backend.SaveClient(ctx, projectID, backend.ClientInfo{
		LegalName:   d.ClientLegalName,
		EntityType:  d.ClientEntityType,
		Email:       d.ClientEmail,
		Phone:       d.ClientPhone,
		SignerName:  d.SignerName,
		SignerTitle: d.SignerTitle,
	}); err != nil {
		return fail("client", werrors.NewClientSaveFailedError(err))
	}
	ok("client")

	// Stage 3: resolve the LLC.
	emit(checkpointLLC, "llc")
	llcID, err := p.resolveLLC(ctx, d, projectID)
	if err != nil {
		return fail("llc", werrors.NewLLCResolutionFailedError(err))
	}
	ok("llc")

	// Stage 4: financial terms plus site/unit details.
	emit(checkpointFinancials, "financials")
	if err := p.saveFinancialsAndDetails(ctx, d, projectID); err != nil {
		return fail("financials", err)
	}
	ok("financials")

	// Stage 5: contractor records.
	emit(checkpointContractors, "contractors")
	if err := p.saveContractors(ctx, d, projectID); err != nil {
		return fail("contractors", werrors.NewContractorSaveFailedError(err))
	}
	ok("contractors")

	// Stage 6: one document record per applicable contract type.
	emit(checkpointDocuments, "documents")
	docs, err := p.createDocuments(ctx, d, projectID)
	if err != nil {
		return fail("documents", err)
	}
	ok("documents")

	emit(checkpointDone, "done")
	metrics.GenerationDuration.Observe(time.Since(started).Seconds())
	if p.obs != nil {
		p.obs.RecordGeneration(ctx, "ok")
	}

	return &Result{ProjectID: projectID, LLCID: llcID, Documents: docs}, nil
}

func (p *Pipeline) ensureProject(ctx context.Context, d *models.ProjectDraft, projectID string) (string, error) {
	req := backend.ProjectRequest{
		ProjectNumber: d.ProjectNumber,
		ProjectName:   d.ProjectName,
		ProjectType:   d.ProjectType,
		TotalUnits:    d.TotalUnits,
		ServiceModel:  d.ServiceModel,
	}
	if projectID == "" {
		created, err := p.backend.CreateProject(ctx, req)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	}
	if err := p.backend.UpdateProject(ctx, projectID, req); err != nil {
		return "", err
	}
	return projectID, nil
}

// resolveLLC links an existing LLC or creates a new one. When reusing, the
// record's fields are mirrored back into the draft so downstream document
// templates keep working against the draft alone.
func (p *Pipeline) resolveLLC(ctx context.Context, d *models.ProjectDraft, projectID string) (string, error) {
	if d.LLCOption == models.LLCOptionExisting {
		if d.ExistingLLCID == "" {
			return "", werrors.NewStepValidationFailedError(4, werrors.FieldErrors{
				"existingLlcId": "no LLC selected",
			})
		}
		// Mirror fetch is best effort; the link is what matters.
		if llc, err := p.backend.GetLLC(ctx, d.ExistingLLCID); err != nil {
			p.logger.Warn("LLC lookup failed, proceeding with link only", map[string]interface{}{
				"llcId": d.ExistingLLCID,
				"error": err.Error(),
			})
		} else {
			d.NewLLCName = llc.Name
			d.NewLLCState = llc.State
			d.NewLLCEIN = llc.EIN
		}
		if err := p.backend.LinkLLC(ctx, projectID, d.ExistingLLCID); err != nil {
			return "", err
		}
		return d.ExistingLLCID, nil
	}

	name := d.NewLLCName
	if name == "" && d.ProjectName != "" {
		name = d.ProjectName + " LLC"
	}
	llc, err := p.backend.CreateLLC(ctx, backend.LLCRequest{
		Name:  name,
		State: d.NewLLCState,
		EIN:   d.NewLLCEIN,
	})
	if err != nil {
		return "", err
	}
	if err := p.backend.LinkLLC(ctx, projectID, llc.ID); err != nil {
		return "", err
	}
	return llc.ID, nil
}

func (p *Pipeline) saveFinancialsAndDetails(ctx context.Context, d *models.ProjectDraft, projectID string) error {
	fin := backend.Financials{
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
	if err := p.backend.SaveFinancials(ctx, projectID, fin); err != nil {
		return werrors.NewFinancialSaveFailedError(err)
	}

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
	det := backend.Details{
		SiteAddress: d.SiteAddress,
		SiteCity:    d.SiteCity,
		SiteState:   d.SiteState,
		SiteZip:     d.SiteZip,
		SiteCounty:  d.SiteCounty,
		SiteAPN:     d.SiteAPN,
		Units:       units,
	}
	if err := p.backend.SaveDetails(ctx, projectID, det); err != nil {
		return werrors.NewDetailsSaveFailedError(err)
	}
	return nil
}

func (p *Pipeline) saveContractors(ctx context.Context, d *models.ProjectDraft, projectID string) error {
	var contractors []backend.Contractor
	if d.ManufacturerName != "" {
		contractors = append(contractors, backend.Contractor{
			Role:  "manufacturer",
			Name:  d.ManufacturerName,
			State: d.ManufacturerState,
		})
	}
	if d.ServiceModel == models.ServiceModelFullService && d.OnsiteContractorName != "" {
		contractors = append(contractors, backend.Contractor{
			Role:    "onsite",
			Name:    d.OnsiteContractorName,
			License: d.OnsiteContractorLicense,
		})
	}
	if len(contractors) == 0 {
		return nil
	}
	return p.backend.SaveContractors(ctx, projectID, contractors)
}

func (p *Pipeline) createDocuments(ctx context.Context, d *models.ProjectDraft, projectID string) ([]models.GeneratedContractRef, error) {
	types := DocumentTypes(d.ServiceModel)
	docs := make([]models.GeneratedContractRef, 0, len(types))
	for _, docType := range types {
		created, err := p.backend.CreateContract(ctx, backend.ContractRequest{
			ProjectID:    projectID,
			DocumentType: docType,
		})
		if err != nil {
			// Documents already created stay created; no rollback.
			return nil, werrors.NewDocumentCreateFailedError(docType, err)
		}
		docs = append(docs, models.GeneratedContractRef{
			ID:           created.ID,
			DocumentType: created.DocumentType,
			Filename:     created.Filename,
			DownloadURL:  created.DownloadURL,
			SizeBytes:    created.SizeBytes,
			CreatedAt:    created.CreatedAt,
		})
	}
	return docs, nil
}
