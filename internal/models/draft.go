package models

// Service model variants. The service model decides whether on-site
// construction costs and steps are part of the generated contract.
const (
	ServiceModelFullService   = "full-service"
	ServiceModelClientManaged = "client-managed"
)

// On-site phase duration defaults per service model, in days.
const (
	DefaultOnsiteDaysFullService   = 60
	DefaultOnsiteDaysClientManaged = 90
)

// LLC formation choices for the child entity holding the project.
const (
	LLCOptionExisting = "existing"
	LLCOptionNew      = "new"
)

// UnitSpec describes one modular unit in the project.
// The ID is a local correlation key only; the backend assigns its own
// primary keys and never sees these.
type UnitSpec struct {
	ID            int     `json:"id"`
	Model         string  `json:"model"`
	SquareFootage int     `json:"squareFootage"`
	Bedrooms      int     `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"`
	Price         float64 `json:"price"`
}

// DefaultUnit returns the unit appended during unit-count reconciliation.
func DefaultUnit(id int) UnitSpec {
	return UnitSpec{
		ID:            id,
		SquareFootage: 1500,
		Bedrooms:      3,
		Bathrooms:     2,
		Price:         0,
	}
}

// ProjectDraft is the aggregate edited across the wizard's steps.
// Dollar amounts are held in dollars; they cross the REST boundary as
// integer cents.
type ProjectDraft struct {
	// Identity
	ProjectNumber string `json:"projectNumber"`
	ProjectName   string `json:"projectName"`
	ProjectType   string `json:"projectType"`
	TotalUnits    int    `json:"totalUnits"`
	ServiceModel  string `json:"serviceModel"`

	// Parties
	ClientLegalName  string `json:"clientLegalName"`
	ClientEntityType string `json:"clientEntityType"`
	ClientEmail      string `json:"clientEmail"`
	ClientPhone      string `json:"clientPhone"`
	SignerName       string `json:"signerName"`
	SignerTitle      string `json:"signerTitle"`

	// Contractors
	ManufacturerName        string `json:"manufacturerName"`
	ManufacturerState       string `json:"manufacturerState"`
	OnsiteContractorName    string `json:"onsiteContractorName"`
	OnsiteContractorLicense string `json:"onsiteContractorLicense"`

	// Site
	SiteAddress string `json:"siteAddress"`
	SiteCity    string `json:"siteCity"`
	SiteState   string `json:"siteState"`
	SiteZip     string `json:"siteZip"`
	SiteCounty  string `json:"siteCounty"`
	SiteAPN     string `json:"siteApn"`

	// Child entity
	LLCOption     string `json:"llcOption"`
	ExistingLLCID string `json:"existingLlcId"`
	NewLLCName    string `json:"newLlcName"`
	NewLLCState   string `json:"newLlcState"`
	NewLLCEIN     string `json:"newLlcEin"`

	// Units
	Units []UnitSpec `json:"units"`

	// Financial terms
	DesignFee                 float64   `json:"designFee"`
	PreliminaryOffsiteCost    float64   `json:"preliminaryOffsiteCost"`
	DeliveryInstallationPrice float64   `json:"deliveryInstallationPrice"`
	SitePreparationCost       float64   `json:"sitePreparationCost"`
	UtilitiesCost             float64   `json:"utilitiesCost"`
	CompletionCost            float64   `json:"completionCost"`
	TotalPreliminaryContractPrice float64 `json:"totalPreliminaryContractPrice"`
	ContractPrice             float64   `json:"contractPrice"`
	ManufacturingDesignPayment float64  `json:"manufacturingDesignPayment"`
	MilestonePercents         []float64 `json:"milestonePercents"`
	RetainagePercent          float64   `json:"retainagePercent"`

	// Schedule
	EffectiveDate             string `json:"effectiveDate"` // YYYY-MM-DD
	ManufacturingDurationDays int    `json:"manufacturingDurationDays"`
	DeliveryDurationDays      int    `json:"deliveryDurationDays"`
	OnsiteDurationDays        int    `json:"onsiteDurationDays"`
	EstimatedDeliveryDate     string `json:"estimatedDeliveryDate"`
	EstimatedCompletionDate   string `json:"estimatedCompletionDate"`

	// Warranty terms
	WarrantyStructuralMonths int    `json:"warrantyStructuralMonths"`
	WarrantySystemsMonths    int    `json:"warrantySystemsMonths"`
	WarrantyAppliancesMonths int    `json:"warrantyAppliancesMonths"`
	WarrantyStructuralExpiry string `json:"warrantyStructuralExpiry"`
	WarrantySystemsExpiry    string `json:"warrantySystemsExpiry"`
	WarrantyAppliancesExpiry string `json:"warrantyAppliancesExpiry"`

	// Jurisdiction
	GoverningState      string `json:"governingState"`
	GoverningCounty     string `json:"governingCounty"`
	FederalDistrict     string `json:"federalDistrict"`
	ArbitrationProvider string `json:"arbitrationProvider"`
}

// NewProjectDraft returns a fresh draft with the wizard's hard-coded defaults.
func NewProjectDraft() ProjectDraft {
	return ProjectDraft{
		TotalUnits:                1,
		ServiceModel:              ServiceModelFullService,
		LLCOption:                 LLCOptionNew,
		Units:                     []UnitSpec{DefaultUnit(1)},
		MilestonePercents:         []float64{20, 20, 20, 20, 15},
		RetainagePercent:          5,
		ManufacturingDurationDays: 120,
		DeliveryDurationDays:      14,
		OnsiteDurationDays:        DefaultOnsiteDaysFullService,
		WarrantyStructuralMonths:  120,
		WarrantySystemsMonths:     24,
		WarrantyAppliancesMonths:  12,
		ArbitrationProvider:       "AAA",
	}
}

// DraftPatch is a partial update shallow-merged into a ProjectDraft.
// Nil fields are left untouched.
type DraftPatch struct {
	ProjectNumber *string
	ProjectName   *string
	ProjectType   *string
	TotalUnits    *int
	ServiceModel  *string

	ClientLegalName  *string
	ClientEntityType *string
	ClientEmail      *string
	ClientPhone      *string
	SignerName       *string
	SignerTitle      *string

	ManufacturerName        *string
	ManufacturerState       *string
	OnsiteContractorName    *string
	OnsiteContractorLicense *string

	SiteAddress *string
	SiteCity    *string
	SiteState   *string
	SiteZip     *string
	SiteCounty  *string
	SiteAPN     *string

	LLCOption     *string
	ExistingLLCID *string
	NewLLCName    *string
	NewLLCState   *string
	NewLLCEIN     *string

	DesignFee                 *float64
	DeliveryInstallationPrice *float64
	SitePreparationCost       *float64
	UtilitiesCost             *float64
	CompletionCost            *float64
	MilestonePercents         *[]float64

	EffectiveDate             *string
	ManufacturingDurationDays *int
	DeliveryDurationDays      *int
	OnsiteDurationDays        *int

	WarrantyStructuralMonths *int
	WarrantySystemsMonths    *int
	WarrantyAppliancesMonths *int

	GoverningState      *string
	GoverningCounty     *string
	FederalDistrict     *string
	ArbitrationProvider *string
}

// Apply merges the patch into the draft.
func (p DraftPatch) Apply(d *ProjectDraft) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&d.ProjectNumber, p.ProjectNumber)
	setString(&d.ProjectName, p.ProjectName)
	setString(&d.ProjectType, p.ProjectType)
	setInt(&d.TotalUnits, p.TotalUnits)
	setString(&d.ServiceModel, p.ServiceModel)

	setString(&d.ClientLegalName, p.ClientLegalName)
	setString(&d.ClientEntityType, p.ClientEntityType)
	setString(&d.ClientEmail, p.ClientEmail)
	setString(&d.ClientPhone, p.ClientPhone)
	setString(&d.SignerName, p.SignerName)
	setString(&d.SignerTitle, p.SignerTitle)

	setString(&d.ManufacturerName, p.ManufacturerName)
	setString(&d.ManufacturerState, p.ManufacturerState)
	setString(&d.OnsiteContractorName, p.OnsiteContractorName)
	setString(&d.OnsiteContractorLicense, p.OnsiteContractorLicense)

	setString(&d.SiteAddress, p.SiteAddress)
	setString(&d.SiteCity, p.SiteCity)
	setString(&d.SiteState, p.SiteState)
	setString(&d.SiteZip, p.SiteZip)
	setString(&d.SiteCounty, p.SiteCounty)
	setString(&d.SiteAPN, p.SiteAPN)

	setString(&d.LLCOption, p.LLCOption)
	setString(&d.ExistingLLCID, p.ExistingLLCID)
	setString(&d.NewLLCName, p.NewLLCName)
	setString(&d.NewLLCState, p.NewLLCState)
	setString(&d.NewLLCEIN, p.NewLLCEIN)

	setFloat(&d.DesignFee, p.DesignFee)
	setFloat(&d.DeliveryInstallationPrice, p.DeliveryInstallationPrice)
	setFloat(&d.SitePreparationCost, p.SitePreparationCost)
	setFloat(&d.UtilitiesCost, p.UtilitiesCost)
	setFloat(&d.CompletionCost, p.CompletionCost)
	if p.MilestonePercents != nil {
		d.MilestonePercents = append([]float64(nil), (*p.MilestonePercents)...)
	}

	setString(&d.EffectiveDate, p.EffectiveDate)
	setInt(&d.ManufacturingDurationDays, p.ManufacturingDurationDays)
	setInt(&d.DeliveryDurationDays, p.DeliveryDurationDays)
	setInt(&d.OnsiteDurationDays, p.OnsiteDurationDays)

	setInt(&d.WarrantyStructuralMonths, p.WarrantyStructuralMonths)
	setInt(&d.WarrantySystemsMonths, p.WarrantySystemsMonths)
	setInt(&d.WarrantyAppliancesMonths, p.WarrantyAppliancesMonths)

	setString(&d.GoverningState, p.GoverningState)
	setString(&d.GoverningCounty, p.GoverningCounty)
	setString(&d.FederalDistrict, p.FederalDistrict)
	setString(&d.ArbitrationProvider, p.ArbitrationProvider)
}

// Helper constructors for patch literals.

func String(s string) *string    { return &s }
func Int(i int) *int             { return &i }
func Float(f float64) *float64   { return &f }
func Floats(f []float64) *[]float64 { return &f }
