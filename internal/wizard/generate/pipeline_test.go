// internal/wizard/generate/pipeline_test.go
package generate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"contract-wizard/internal/backend"
	werrors "contract-wizard/internal/common/errors"
	"contract-wizard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageAPI implements the backend calls the pipeline makes, recording the
// order and optionally failing at a chosen call.
type stageAPI struct {
	backend.API

	calls       []string
	failAt      string
	llcFetchErr error
	contracts   []backend.ContractRequest
	contractors []backend.Contractor
}

func (s *stageAPI) step(name string) error {
	s.calls = append(s.calls, name)
	if s.failAt == name {
		return errors.New(name + " rejected")
	}
	return nil
}

func (s *stageAPI) CreateProject(ctx context.Context, req backend.ProjectRequest) (*backend.Project, error) {
	if err := s.step("createProject"); err != nil {
		return nil, err
	}
	return &backend.Project{ID: "proj-9", ProjectNumber: req.ProjectNumber}, nil
}

func (s *stageAPI) UpdateProject(ctx context.Context, id string, req backend.ProjectRequest) error {
	return s.step("updateProject")
}

func (s *stageAPI) SaveClient(ctx context.Context, projectID string, info backend.ClientInfo) error {
	return s.step("saveClient")
}

func (s *stageAPI) GetLLC(ctx context.Context, id string) (*backend.LLC, error) {
	s.calls = append(s.calls, "getLLC")
	if s.llcFetchErr != nil {
		return nil, s.llcFetchErr
	}
	return &backend.LLC{ID: id, Name: "Recorded Holdings LLC", State: "CO", EIN: "84-1234567"}, nil
}

func (s *stageAPI) CreateLLC(ctx context.Context, req backend.LLCRequest) (*backend.LLC, error) {
	if err := s.step("createLLC"); err != nil {
		return nil, err
	}
	return &backend.LLC{ID: "llc-9", Name: req.Name, State: req.State}, nil
}

func (s *stageAPI) LinkLLC(ctx context.Context, projectID, llcID string) error {
	return s.step("linkLLC")
}

func (s *stageAPI) SaveFinancials(ctx context.Context, projectID string, fin backend.Financials) error {
	return s.step("saveFinancials")
}

func (s *stageAPI) SaveDetails(ctx context.Context, projectID string, det backend.Details) error {
	return s.step("saveDetails")
}

func (s *stageAPI) SaveContractors(ctx context.Context, projectID string, cs []backend.Contractor) error {
	s.contractors = cs
	return s.step("saveContractors")
}

func (s *stageAPI) CreateContract(ctx context.Context, req backend.ContractRequest) (*backend.ContractDocument, error) {
	if err := s.step("createContract"); err != nil {
		return nil, err
	}
	s.contracts = append(s.contracts, req)
	return &backend.ContractDocument{
		ID:           fmt.Sprintf("doc-%d", len(s.contracts)),
		DocumentType: req.DocumentType,
		Filename:     req.DocumentType + ".pdf",
		DownloadURL:  "https://files.example.com/" + req.DocumentType,
	}, nil
}

func generationDraft() models.ProjectDraft {
	d := models.NewProjectDraft()
	d.ProjectNumber = "2026-031"
	d.ProjectName = "Hillside Cottages"
	d.ClientLegalName = "Hillside Partners LP"
	d.LLCOption = models.LLCOptionNew
	d.NewLLCName = "Hillside Build LLC"
	d.NewLLCState = "CO"
	d.ManufacturerName = "Summit Modular Inc"
	d.OnsiteContractorName = "Front Range Builders"
	return d
}

func TestPipeline_FullServiceProducesFourDocuments(t *testing.T) {
	api := &stageAPI{}
	d := generationDraft()
	var percents []int
	report := func(p models.GenerationProgress) { percents = append(percents, p.Percent) }

	result, err := New(api, nil, nil).Run(context.Background(), &d, "", report)

	require.NoError(t, err)
	assert.Equal(t, "proj-9", result.ProjectID)
	assert.Equal(t, "llc-9", result.LLCID)
	require.Len(t, result.Documents, 4)
	assert.Equal(t, "onsite-construction-agreement", result.Documents[3].DocumentType)

	assert.Equal(t, []int{15, 30, 45, 60, 75, 95, 100}, percents)
}

func TestPipeline_ClientManagedSkipsOnsiteDocument(t *testing.T) {
	api := &stageAPI{}
	d := generationDraft()
	d.ServiceModel = models.ServiceModelClientManaged

	result, err := New(api, nil, nil).Run(context.Background(), &d, "proj-existing", nil)

	require.NoError(t, err)
	require.Len(t, result.Documents, 3)
	for _, doc := range result.Documents {
		assert.NotEqual(t, "onsite-construction-agreement", doc.DocumentType)
	}
	// An existing project is patched, not recreated.
	assert.Equal(t, "updateProject", api.calls[0])
	// Only the manufacturer is sent; on-site contractors are the client's
	// problem under this model.
	require.Len(t, api.contractors, 1)
	assert.Equal(t, "manufacturer", api.contractors[0].Role)
}

func TestPipeline_LLCFailureStopsBeforeDocuments(t *testing.T) {
	api := &stageAPI{failAt: "createLLC"}
	d := generationDraft()

	result, err := New(api, nil, nil).Run(context.Background(), &d, "", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "LLC_RESOLUTION_FAILED", werrors.CodeOf(err))
	assert.NotContains(t, api.calls, "saveFinancials")
	assert.NotContains(t, api.calls, "createContract")
}

func TestPipeline_DocumentFailureKeepsEarlierDocuments(t *testing.T) {
	api := &stageAPI{}
	d := generationDraft()
	// Fail the third contract creation only.
	count := 0
	inner := api
	wrapped := &contractFailAPI{stageAPI: inner, failOn: 3, count: &count}

	result, err := New(wrapped, nil, nil).Run(context.Background(), &d, "", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "DOCUMENT_CREATE_FAILED", werrors.CodeOf(err))
	// The first two documents were created on the backend; no rollback runs.
	assert.Len(t, inner.contracts, 2)
}

type contractFailAPI struct {
	*stageAPI
	failOn int
	count  *int
}

func (c *contractFailAPI) CreateContract(ctx context.Context, req backend.ContractRequest) (*backend.ContractDocument, error) {
	*c.count++
	if *c.count == c.failOn {
		return nil, errors.New("template service down")
	}
	return c.stageAPI.CreateContract(ctx, req)
}

func TestPipeline_ExistingLLCMirrorsFieldsIntoDraft(t *testing.T) {
	api := &stageAPI{}
	d := generationDraft()
	d.LLCOption = models.LLCOptionExisting
	d.ExistingLLCID = "llc-recorded"
	d.NewLLCName = ""
	d.NewLLCState = ""

	result, err := New(api, nil, nil).Run(context.Background(), &d, "", nil)

	require.NoError(t, err)
	assert.Equal(t, "llc-recorded", result.LLCID)
	assert.Equal(t, "Recorded Holdings LLC", d.NewLLCName)
	assert.Equal(t, "CO", d.NewLLCState)
	assert.Equal(t, "84-1234567", d.NewLLCEIN)
	assert.NotContains(t, api.calls, "createLLC")
}

func TestPipeline_ExistingLLCLinkSurvivesFetchFailure(t *testing.T) {
	api := &stageAPI{llcFetchErr: errors.New("404")}
	d := generationDraft()
	d.LLCOption = models.LLCOptionExisting
	d.ExistingLLCID = "llc-recorded"

	result, err := New(api, nil, nil).Run(context.Background(), &d, "", nil)

	require.NoError(t, err)
	assert.Equal(t, "llc-recorded", result.LLCID)
	assert.Contains(t, api.calls, "linkLLC")
}

func TestPipeline_ExistingLLCWithoutIDFails(t *testing.T) {
	api := &stageAPI{}
	d := generationDraft()
	d.LLCOption = models.LLCOptionExisting
	d.ExistingLLCID = ""

	_, err := New(api, nil, nil).Run(context.Background(), &d, "", nil)

	require.Error(t, err)
	assert.Equal(t, "LLC_RESOLUTION_FAILED", werrors.CodeOf(err))
}

func TestDocumentTypes(t *testing.T) {
	assert.Len(t, DocumentTypes(models.ServiceModelFullService), 4)
	assert.Len(t, DocumentTypes(models.ServiceModelClientManaged), 3)
}
