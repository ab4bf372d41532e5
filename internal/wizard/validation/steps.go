package validation

import (
	"fmt"
	"math"

	"contract-wizard/internal/models"
)

// Milestone percentages must sum to this; the remaining 5% is the retainage.
const milestoneSum = 95.0

func ptrStr(s string) *string { return &s }
func ptrInt(i int) *int       { return &i }
func ptrF(f float64) *float64 { return &f }

// stepSchemas holds the per-step required-field and format rules.
// Cross-field rules live in crossFieldErrors.
var stepSchemas = map[int]JSONSchema{
	1: {
		Type: "object",
		Required: []string{"projectNumber", "projectName", "projectType", "totalUnits", "serviceModel"},
		Properties: map[string]Property{
			"projectNumber": {Type: "string", Pattern: ptrStr(`^\d{4}-\d{3}$`)},
			"projectName":   {Type: "string", MinLength: ptrInt(2), MaxLength: ptrInt(120)},
			"projectType":   {Type: "string"},
			"totalUnits":    {Type: "integer", Minimum: ptrF(1), Maximum: ptrF(50)},
			"serviceModel":  {Type: "string", Enum: []string{models.ServiceModelFullService, models.ServiceModelClientManaged}},
		},
	},
	2: {
		Type: "object",
		Required: []string{"clientLegalName", "clientEntityType", "clientEmail", "signerName"},
		Properties: map[string]Property{
			"clientLegalName":  {Type: "string", MinLength: ptrInt(2)},
			"clientEntityType": {Type: "string"},
			"clientEmail":      {Type: "string", Pattern: ptrStr(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)},
			"clientPhone":      {Type: "string", MinLength: ptrInt(7)},
			"signerName":       {Type: "string", MinLength: ptrInt(2)},
			"signerTitle":      {Type: "string"},
		},
	},
	3: {
		Type: "object",
		Required: []string{"siteAddress", "siteCity", "siteState", "siteCounty"},
		Properties: map[string]Property{
			"siteAddress": {Type: "string", MinLength: ptrInt(5)},
			"siteCity":    {Type: "string"},
			"siteState":   {Type: "string", Pattern: ptrStr(`^[A-Z]{2}$`)},
			"siteZip":     {Type: "string", Pattern: ptrStr(`^\d{5}(-\d{4})?$`)},
			"siteCounty":  {Type: "string"},
			"siteApn":     {Type: "string"},
		},
	},
	4: {
		Type: "object",
		Required: []string{"llcOption"},
		Properties: map[string]Property{
			"llcOption":     {Type: "string", Enum: []string{models.LLCOptionExisting, models.LLCOptionNew}},
			"existingLlcId": {Type: "string"},
			"newLlcName":    {Type: "string", MinLength: ptrInt(2)},
			"newLlcState":   {Type: "string", Pattern: ptrStr(`^[A-Z]{2}$`)},
			"newLlcEin":     {Type: "string", Pattern: ptrStr(`^\d{2}-\d{7}$`)},
		},
	},
	5: {Type: "object"}, // units are validated field by field in crossFieldErrors
	6: {
		Type: "object",
		Required: []string{"designFee", "deliveryInstallationPrice"},
		Properties: map[string]Property{
			"designFee":                 {Type: "number", Minimum: ptrF(0)},
			"deliveryInstallationPrice": {Type: "number", Minimum: ptrF(0)},
			"sitePreparationCost":       {Type: "number", Minimum: ptrF(0)},
			"utilitiesCost":             {Type: "number", Minimum: ptrF(0)},
			"completionCost":            {Type: "number", Minimum: ptrF(0)},
		},
	},
	7: {
		Type: "object",
		Required: []string{"effectiveDate", "manufacturingDurationDays", "deliveryDurationDays", "onsiteDurationDays"},
		Properties: map[string]Property{
			"effectiveDate":             {Type: "string", Pattern: ptrStr(`^\d{4}-\d{2}-\d{2}$`)},
			"manufacturingDurationDays": {Type: "integer", Minimum: ptrF(1), Maximum: ptrF(720)},
			"deliveryDurationDays":      {Type: "integer", Minimum: ptrF(1), Maximum: ptrF(120)},
			"onsiteDurationDays":        {Type: "integer", Minimum: ptrF(1), Maximum: ptrF(365)},
		},
	},
	8: {
		Type: "object",
		Required: []string{"warrantyStructuralMonths", "warrantySystemsMonths", "warrantyAppliancesMonths"},
		Properties: map[string]Property{
			"warrantyStructuralMonths": {Type: "integer", Minimum: ptrF(12), Maximum: ptrF(240)},
			"warrantySystemsMonths":    {Type: "integer", Minimum: ptrF(12), Maximum: ptrF(60)},
			"warrantyAppliancesMonths": {Type: "integer", Minimum: ptrF(6), Maximum: ptrF(24)},
		},
	},
	9: {
		Type: "object",
		Required: []string{"governingState", "arbitrationProvider"},
		Properties: map[string]Property{
			"governingState":      {Type: "string", Pattern: ptrStr(`^[A-Z]{2}$`)},
			"governingCounty":     {Type: "string"},
			"federalDistrict":     {Type: "string"},
			"arbitrationProvider": {Type: "string"},
		},
	},
}

// crossFieldErrors applies the rules a flat schema cannot express.
func crossFieldErrors(step int, d *models.ProjectDraft, prog *models.WizardProgress) map[string]string {
	out := map[string]string{}

	switch step {
	case 4:
		switch d.LLCOption {
		case models.LLCOptionExisting:
			if d.ExistingLLCID == "" {
				out["existingLlcId"] = "select the LLC to reuse"
			}
		case models.LLCOptionNew:
			if d.NewLLCName == "" {
				out["newLlcName"] = "required field missing"
			}
			if d.NewLLCState == "" {
				out["newLlcState"] = "required field missing"
			}
		}

	case 5:
		for i, u := range d.Units {
			prefix := fmt.Sprintf("units[%d].", i)
			if u.SquareFootage < 400 || u.SquareFootage > 5000 {
				out[prefix+"squareFootage"] = "square footage must be between 400 and 5000"
			}
			if u.Bedrooms < 1 || u.Bedrooms > 8 {
				out[prefix+"bedrooms"] = "bedrooms must be between 1 and 8"
			}
			if u.Bathrooms < 1 || u.Bathrooms > 8 {
				out[prefix+"bathrooms"] = "bathrooms must be between 1 and 8"
			}
			if u.Price <= 0 {
				out[prefix+"price"] = "unit price is required"
			}
		}

	case 6:
		if len(d.MilestonePercents) != 5 {
			out["milestonePercents"] = "exactly five milestone percentages are required"
			break
		}
		var sum float64
		for _, p := range d.MilestonePercents {
			sum += p
		}
		if math.Abs(sum-milestoneSum) > 1e-9 {
			out["milestonePercents"] = fmt.Sprintf(
				"milestone percentages must sum to %v (retainage holds the remaining 5%%), got %v",
				milestoneSum, sum)
		}

	case 9:
		if prog != nil && !prog.ConfirmationChecked {
			out["confirmation"] = "confirm the contract terms before generating"
		}
	}

	return out
}
