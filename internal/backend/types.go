package backend

import (
	"math"
	"time"
)

// Dollar amounts cross the wire as integer cents.

func ToCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// Project is the backend's project identity record.
type Project struct {
	ID            string `json:"id"`
	ProjectNumber string `json:"projectNumber"`
	ProjectName   string `json:"projectName"`
	ProjectType   string `json:"projectType"`
	TotalUnits    int    `json:"totalUnits"`
	ServiceModel  string `json:"serviceModel"`
	LLCID         string `json:"llcId,omitempty"`
}

// ProjectRequest creates or patches a project record.
type ProjectRequest struct {
	ProjectNumber string `json:"projectNumber"`
	ProjectName   string `json:"projectName,omitempty"`
	ProjectType   string `json:"projectType,omitempty"`
	TotalUnits    int    `json:"totalUnits,omitempty"`
	ServiceModel  string `json:"serviceModel,omitempty"`
	LLCID         string `json:"llcId,omitempty"`
}

// ClientInfo is the project's client sub-record.
type ClientInfo struct {
	LegalName  string `json:"legalName"`
	EntityType string `json:"entityType,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	SignerName string `json:"signerName,omitempty"`
	SignerTitle string `json:"signerTitle,omitempty"`
}

// Financials is the project's financial-terms sub-record, in cents.
type Financials struct {
	DesignFeeCents                 int64     `json:"designFeeCents"`
	PreliminaryOffsiteCostCents    int64     `json:"preliminaryOffsiteCostCents"`
	DeliveryInstallationPriceCents int64     `json:"deliveryInstallationPriceCents"`
	SitePreparationCostCents       int64     `json:"sitePreparationCostCents"`
	UtilitiesCostCents             int64     `json:"utilitiesCostCents"`
	CompletionCostCents            int64     `json:"completionCostCents"`
	ContractPriceCents             int64     `json:"contractPriceCents"`
	MilestonePercents              []float64 `json:"milestonePercents,omitempty"`
	RetainagePercent               float64   `json:"retainagePercent,omitempty"`
	EffectiveDate                  string    `json:"effectiveDate,omitempty"`
}

// UnitDetail is one unit as transmitted in project details.
type UnitDetail struct {
	Model         string `json:"model,omitempty"`
	SquareFootage int    `json:"squareFootage"`
	Bedrooms      int    `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"`
	PriceCents    int64  `json:"priceCents"`
}

// Details is the project's site/unit sub-record.
type Details struct {
	SiteAddress string       `json:"siteAddress"`
	SiteCity    string       `json:"siteCity,omitempty"`
	SiteState   string       `json:"siteState,omitempty"`
	SiteZip     string       `json:"siteZip,omitempty"`
	SiteCounty  string       `json:"siteCounty,omitempty"`
	SiteAPN     string       `json:"siteApn,omitempty"`
	Units       []UnitDetail `json:"units,omitempty"`
}

// LLC is a child-entity record.
type LLC struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
	EIN   string `json:"ein,omitempty"`
}

// LLCRequest creates a new LLC.
type LLCRequest struct {
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
	EIN   string `json:"ein,omitempty"`
}

// Contractor is a manufacturer or on-site contractor record.
type Contractor struct {
	Role    string `json:"role"` // "manufacturer" or "onsite"
	Name    string `json:"name"`
	License string `json:"license,omitempty"`
	State   string `json:"state,omitempty"`
}

// ContractRequest creates one contract document record.
type ContractRequest struct {
	ProjectID    string `json:"projectId"`
	DocumentType string `json:"documentType"`
}

// ContractDocument is the backend's response to a document creation.
type ContractDocument struct {
	ID           string    `json:"id"`
	DocumentType string    `json:"documentType"`
	Filename     string    `json:"filename"`
	DownloadURL  string    `json:"downloadUrl"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
}

type nextNumberResponse struct {
	ProjectNumber string `json:"projectNumber"`
}

type uniquenessResponse struct {
	IsUnique bool `json:"isUnique"`
}
