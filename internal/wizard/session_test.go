// internal/wizard/session_test.go
package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"contract-wizard/internal/backend"
	"contract-wizard/internal/common/config"
	werrors "contract-wizard/internal/common/errors"
	"contract-wizard/internal/models"
	"contract-wizard/internal/wizard/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionAPI is a backend fake covering the calls the session and its
// pipeline make. Unimplemented methods panic via the embedded nil interface.
type sessionAPI struct {
	backend.API

	mu            sync.Mutex
	createCalls   int
	createErr     error
	nextNumberErr error
	project       *backend.Project
	client        *backend.ClientInfo
	financials    *backend.Financials
	details       *backend.Details
	detailsErr    error
	docsCreated   int
}

func (f *sessionAPI) NextProjectNumber(ctx context.Context) (string, error) {
	if f.nextNumberErr != nil {
		return "", f.nextNumberErr
	}
	return "2026-044", nil
}

func (f *sessionAPI) CheckNumberUnique(ctx context.Context, number, excludeID string) (bool, error) {
	return number != "2026-001", nil
}

func (f *sessionAPI) CreateProject(ctx context.Context, req backend.ProjectRequest) (*backend.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backend.Project{ID: "proj-44", ProjectNumber: req.ProjectNumber}, nil
}

func (f *sessionAPI) UpdateProject(ctx context.Context, id string, req backend.ProjectRequest) error {
	return nil
}

func (f *sessionAPI) GetProject(ctx context.Context, id string) (*backend.Project, error) {
	if f.project == nil {
		return nil, errors.New("not found")
	}
	return f.project, nil
}

func (f *sessionAPI) GetProjectClient(ctx context.Context, id string) (*backend.ClientInfo, error) {
	if f.client == nil {
		return nil, errors.New("not found")
	}
	return f.client, nil
}

func (f *sessionAPI) GetProjectFinancials(ctx context.Context, id string) (*backend.Financials, error) {
	if f.financials == nil {
		return nil, errors.New("not found")
	}
	return f.financials, nil
}

func (f *sessionAPI) GetProjectDetails(ctx context.Context, id string) (*backend.Details, error) {
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	if f.details == nil {
		return nil, errors.New("not found")
	}
	return f.details, nil
}

func (f *sessionAPI) SaveClient(ctx context.Context, projectID string, info backend.ClientInfo) error {
	return nil
}

func (f *sessionAPI) SaveFinancials(ctx context.Context, projectID string, fin backend.Financials) error {
	return nil
}

func (f *sessionAPI) SaveDetails(ctx context.Context, projectID string, det backend.Details) error {
	return nil
}

func (f *sessionAPI) CreateLLC(ctx context.Context, req backend.LLCRequest) (*backend.LLC, error) {
	return &backend.LLC{ID: "llc-44", Name: req.Name}, nil
}

func (f *sessionAPI) LinkLLC(ctx context.Context, projectID, llcID string) error {
	return nil
}

func (f *sessionAPI) SaveContractors(ctx context.Context, projectID string, cs []backend.Contractor) error {
	return nil
}

func (f *sessionAPI) CreateContract(ctx context.Context, req backend.ContractRequest) (*backend.ContractDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docsCreated++
	return &backend.ContractDocument{
		ID:           req.DocumentType,
		DocumentType: req.DocumentType,
		Filename:     req.DocumentType + ".pdf",
	}, nil
}

// recordToaster captures toasts for assertions.
type recordToaster struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (r *recordToaster) Success(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, title)
}

func (r *recordToaster) Error(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, title)
}

// slowAutosave keeps the debounce window far beyond the test runtime so
// background timers never fire mid-assertion.
var slowAutosave = config.AutosaveConfig{DebounceMs: 600000, RetryDelayMs: 600000}

func newTestSession(api *sessionAPI, policy validation.Policy, toast *recordToaster) *Session {
	opts := SessionOptions{
		Backend:  api,
		Policy:   policy,
		Autosave: slowAutosave,
	}
	if toast != nil {
		opts.Toaster = toast
	}
	return NewSession(opts)
}

// fillStep populates the draft so the numbered step validates strictly.
func fillAllSteps(s *Session) {
	s.UpdateProjectData(models.DraftPatch{
		ProjectNumber:             models.String("2026-044"),
		ProjectName:               models.String("Juniper Flats"),
		ProjectType:               models.String("residential"),
		ClientLegalName:           models.String("Juniper Flats Holdings"),
		ClientEntityType:          models.String("llc"),
		ClientEmail:               models.String("admin@juniperflats.example.com"),
		SignerName:                models.String("Riley Okafor"),
		SiteAddress:               models.String("12 Juniper Flats Rd"),
		SiteCity:                  models.String("Marfa"),
		SiteState:                 models.String("TX"),
		SiteCounty:                models.String("Presidio"),
		NewLLCName:                models.String("Juniper Flats LLC"),
		NewLLCState:               models.String("TX"),
		DesignFee:                 models.Float(21000),
		DeliveryInstallationPrice: models.Float(52000),
		EffectiveDate:             models.String("2026-10-01"),
		GoverningState:            models.String("TX"),
	})
	s.UpdateUnit(1, UnitPatch{Price: models.Float(410000)})
	s.SetConfirmation(true)
}

func TestSession_UpdateProjectDataMergesAndDerives(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
	defer s.Close()

	s.UpdateProjectData(models.DraftPatch{
		ProjectName: models.String("Juniper Flats"),
		DesignFee:   models.Float(21000),
	})
	s.UpdateUnit(1, UnitPatch{Price: models.Float(410000)})

	d := s.Draft()
	assert.Equal(t, "Juniper Flats", d.ProjectName)
	assert.Equal(t, 410000.0, d.PreliminaryOffsiteCost)
	assert.Equal(t, 21000.0, d.ManufacturingDesignPayment)
	// Untouched fields keep their defaults.
	assert.Equal(t, models.ServiceModelFullService, d.ServiceModel)
}

func TestSession_AddRemoveUnitIDsNeverReused(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
	defer s.Close()

	s.AddUnit() // ids {1,2}
	s.AddUnit() // ids {1,2,3}
	s.RemoveUnit(2)
	s.AddUnit() // must get 4, not 2

	d := s.Draft()
	require.Len(t, d.Units, 3)
	ids := []int{d.Units[0].ID, d.Units[1].ID, d.Units[2].ID}
	assert.Equal(t, []int{1, 3, 4}, ids)
	assert.Equal(t, 3, d.TotalUnits)
}

func TestSession_RemoveLastUnitKeepsTotalAtOne(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
	defer s.Close()

	s.RemoveUnit(1)

	d := s.Draft()
	assert.Equal(t, 1, d.TotalUnits)
	// Derivation immediately backfills a fresh default unit.
	require.Len(t, d.Units, 1)
}

func TestSession_PrefillProjectNumber(t *testing.T) {
	t.Run("fills an empty draft from the backend", func(t *testing.T) {
		s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
		defer s.Close()

		s.PrefillProjectNumber(context.Background())
		assert.Equal(t, "2026-044", s.Draft().ProjectNumber)
	})

	t.Run("synthesizes a draft number when the backend is down", func(t *testing.T) {
		s := newTestSession(&sessionAPI{nextNumberErr: errors.New("boom")}, validation.Strict{}, nil)
		defer s.Close()

		s.PrefillProjectNumber(context.Background())
		assert.Contains(t, s.Draft().ProjectNumber, "-DRAFT-")
	})

	t.Run("never overwrites a user-entered number", func(t *testing.T) {
		s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
		defer s.Close()

		s.UpdateProjectData(models.DraftPatch{ProjectNumber: models.String("2026-001")})
		s.PrefillProjectNumber(context.Background())
		assert.Equal(t, "2026-001", s.Draft().ProjectNumber)
	})
}

func TestSession_NextStepBlocksOnValidationFailure(t *testing.T) {
	toast := &recordToaster{}
	s := newTestSession(&sessionAPI{}, validation.Strict{}, toast)
	defer s.Close()

	err := s.NextStep(context.Background())

	require.Error(t, err)
	assert.Equal(t, "STEP_VALIDATION_FAILED", werrors.CodeOf(err))
	assert.Equal(t, 1, s.Progress().CurrentStep)
	assert.NotEmpty(t, s.Progress().FieldErrors)
	assert.NotEmpty(t, toast.failures)
}

func TestSession_NextStepGatesStepOneOnRemoteWrite(t *testing.T) {
	t.Run("create failure keeps the cursor on step 1", func(t *testing.T) {
		api := &sessionAPI{createErr: errors.New("backend down")}
		toast := &recordToaster{}
		s := newTestSession(api, validation.Strict{}, toast)
		defer s.Close()
		fillAllSteps(s)

		err := s.NextStep(context.Background())

		require.Error(t, err)
		assert.Equal(t, "PROJECT_CREATE_FAILED", werrors.CodeOf(err))
		assert.Equal(t, 1, s.Progress().CurrentStep)
		assert.Empty(t, s.ProjectID())
	})

	t.Run("successful create advances and records the id", func(t *testing.T) {
		api := &sessionAPI{}
		s := newTestSession(api, validation.Strict{}, nil)
		defer s.Close()
		fillAllSteps(s)

		err := s.NextStep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, s.Progress().CurrentStep)
		assert.True(t, s.Progress().CompletedSteps[1])
		assert.Equal(t, "proj-44", s.ProjectID())
	})

	t.Run("a taken project number blocks step 1", func(t *testing.T) {
		api := &sessionAPI{}
		toast := &recordToaster{}
		s := newTestSession(api, validation.Strict{}, toast)
		defer s.Close()
		fillAllSteps(s)
		s.UpdateProjectData(models.DraftPatch{ProjectNumber: models.String("2026-001")})

		err := s.NextStep(context.Background())

		require.Error(t, err)
		assert.Equal(t, "STEP_VALIDATION_FAILED", werrors.CodeOf(err))
		assert.Equal(t, 1, s.Progress().CurrentStep)
		assert.Contains(t, s.Progress().FieldErrors, "projectNumber")
		assert.Equal(t, 0, api.createCalls)
	})
}

func TestSession_GoToStepReachability(t *testing.T) {
	api := &sessionAPI{}
	s := newTestSession(api, validation.Strict{}, nil)
	defer s.Close()
	fillAllSteps(s)
	ctx := context.Background()

	require.NoError(t, s.NextStep(ctx)) // completes 1, cursor 2
	require.NoError(t, s.NextStep(ctx)) // completes 2, cursor 3

	// Forward past the frontier is blocked.
	err := s.GoToStep(ctx, 5)
	require.Error(t, err)
	assert.Equal(t, "STEP_UNREACHABLE", werrors.CodeOf(err))
	assert.Equal(t, 3, s.Progress().CurrentStep)

	// The successor of a completed step is fine.
	require.NoError(t, s.GoToStep(ctx, 3))

	// Anything at or behind the cursor is fine.
	require.NoError(t, s.GoToStep(ctx, 1))
	assert.Equal(t, 1, s.Progress().CurrentStep)

	// Out-of-range targets are rejected outright.
	assert.Error(t, s.GoToStep(ctx, 0))
	assert.Error(t, s.GoToStep(ctx, 10))
}

func TestSession_GoToStepPermissiveJumpsAnywhere(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Permissive{}, nil)
	defer s.Close()

	require.NoError(t, s.GoToStep(context.Background(), 9))
	assert.Equal(t, 9, s.Progress().CurrentStep)
}

func TestSession_PrevStepStopsAtFirst(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Permissive{}, nil)
	defer s.Close()
	ctx := context.Background()

	s.PrevStep(ctx)
	assert.Equal(t, 1, s.Progress().CurrentStep)

	require.NoError(t, s.GoToStep(ctx, 3))
	s.PrevStep(ctx)
	assert.Equal(t, 2, s.Progress().CurrentStep)
}

func TestSession_LoadProjectMergesSubResources(t *testing.T) {
	api := &sessionAPI{
		project: &backend.Project{
			ID:            "proj-7",
			ProjectNumber: "2025-112",
			ProjectName:   "Mesa Verde Court",
			TotalUnits:    2,
			ServiceModel:  models.ServiceModelClientManaged,
		},
		client: &backend.ClientInfo{LegalName: "Mesa Verde LP", Email: "mv@example.com"},
		financials: &backend.Financials{
			DesignFeeCents:    2500000,
			MilestonePercents: []float64{25, 25, 25, 15, 5},
			EffectiveDate:     "2026-02-01",
		},
		detailsErr: errors.New("503"),
	}
	s := newTestSession(api, validation.Strict{}, nil)
	defer s.Close()

	err := s.LoadProject(context.Background(), "proj-7")

	require.NoError(t, err)
	d := s.Draft()
	assert.Equal(t, "2025-112", d.ProjectNumber)
	assert.Equal(t, "Mesa Verde LP", d.ClientLegalName)
	assert.Equal(t, 25000.0, d.DesignFee)
	assert.Equal(t, []float64{25, 25, 25, 15, 5}, d.MilestonePercents)
	// The details fetch failed; the rest of the hydration still landed.
	assert.Equal(t, 2, d.TotalUnits)
	assert.Equal(t, "proj-7", s.ProjectID())
}

func TestSession_LoadProjectFailsWhenProjectMissing(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
	defer s.Close()

	err := s.LoadProject(context.Background(), "ghost")

	require.Error(t, err)
	assert.Equal(t, "PROJECT_FETCH_FAILED", werrors.CodeOf(err))
}

func TestSession_GenerateSuccess(t *testing.T) {
	api := &sessionAPI{}
	toast := &recordToaster{}
	invalidated := false

	s := NewSession(SessionOptions{
		Backend:           api,
		Policy:            validation.Strict{},
		Toaster:           toast,
		Autosave:          slowAutosave,
		InvalidateQueries: func() { invalidated = true },
	})
	defer s.Close()
	fillAllSteps(s)

	docs, err := s.Generate(context.Background())

	require.NoError(t, err)
	assert.Len(t, docs, 4)
	assert.Equal(t, models.GenerationSuccess, s.Progress().Generation.State)
	assert.Equal(t, 100, s.Progress().Generation.Percent)
	assert.True(t, invalidated)
	assert.NotEmpty(t, toast.successes)
	assert.Len(t, s.Documents(), 4)
	assert.Equal(t, "proj-44", s.ProjectID())
}

func TestSession_GenerateFailureIsTerminalError(t *testing.T) {
	api := &sessionAPI{createErr: errors.New("backend down")}
	toast := &recordToaster{}
	s := newTestSession(api, validation.Strict{}, toast)
	defer s.Close()
	fillAllSteps(s)

	docs, err := s.Generate(context.Background())

	require.Error(t, err)
	assert.Nil(t, docs)
	assert.Equal(t, models.GenerationError, s.Progress().Generation.State)
	assert.NotEmpty(t, s.Progress().Generation.Message)
	assert.NotEmpty(t, toast.failures)
	// No documents were created before the failing stage.
	assert.Zero(t, api.docsCreated)
}

func TestSession_CheckProjectNumberUnique(t *testing.T) {
	s := newTestSession(&sessionAPI{}, validation.Strict{}, nil)
	defer s.Close()
	ctx := context.Background()

	assert.True(t, s.CheckProjectNumberUnique(ctx, "20"), "short inputs skip the check")
	assert.True(t, s.CheckProjectNumberUnique(ctx, "2026-044"))
	assert.False(t, s.CheckProjectNumberUnique(ctx, "2026-001"))
}
