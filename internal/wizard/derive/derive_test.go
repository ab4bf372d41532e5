// internal/wizard/derive/derive_test.go
package derive

import (
	"testing"

	"contract-wizard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftWithUnits(prices ...float64) models.ProjectDraft {
	d := models.NewProjectDraft()
	d.Units = nil
	for i, p := range prices {
		u := models.DefaultUnit(i + 1)
		u.Price = p
		d.Units = append(d.Units, u)
	}
	d.TotalUnits = len(d.Units)
	return d
}

func TestApply_UnitReconciliation(t *testing.T) {
	tests := []struct {
		name        string
		totalUnits  int
		seedUnits   int
		wantLen     int
		wantLastID  int
	}{
		{name: "grows to match total", totalUnits: 3, seedUnits: 1, wantLen: 3, wantLastID: 3},
		{name: "truncates from end", totalUnits: 2, seedUnits: 4, wantLen: 2, wantLastID: 2},
		{name: "zero clamps to one", totalUnits: 0, seedUnits: 0, wantLen: 1, wantLastID: 1},
		{name: "negative clamps to one", totalUnits: -5, seedUnits: 2, wantLen: 1, wantLastID: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := models.NewProjectDraft()
			d.Units = nil
			for i := 0; i < tt.seedUnits; i++ {
				d.Units = append(d.Units, models.DefaultUnit(i+1))
			}
			d.TotalUnits = tt.totalUnits

			Apply(&d)

			require.Len(t, d.Units, tt.wantLen)
			assert.Equal(t, tt.wantLen, d.TotalUnits)
			assert.Equal(t, tt.wantLastID, d.Units[len(d.Units)-1].ID)
		})
	}
}

func TestNextUnitID_NeverReusesIDs(t *testing.T) {
	// Remove unit 2 of {1,2,3}; the next addition must get 4, not 2.
	units := []models.UnitSpec{
		models.DefaultUnit(1),
		models.DefaultUnit(3),
	}
	assert.Equal(t, 4, NextUnitID(units))

	assert.Equal(t, 1, NextUnitID(nil))
}

func TestApply_OffsiteCostIsSumOfUnitPrices(t *testing.T) {
	d := draftWithUnits(250000, 310000.50, 99999.50)

	Apply(&d)

	assert.Equal(t, 660000.0, d.PreliminaryOffsiteCost)
}

func TestApply_ContractTotalByServiceModel(t *testing.T) {
	base := func() models.ProjectDraft {
		d := draftWithUnits(400000)
		d.DesignFee = 25000
		d.DeliveryInstallationPrice = 60000
		d.SitePreparationCost = 80000
		d.UtilitiesCost = 30000
		d.CompletionCost = 45000
		return d
	}

	t.Run("full service includes site costs", func(t *testing.T) {
		d := base()
		d.ServiceModel = models.ServiceModelFullService

		Apply(&d)

		assert.Equal(t, 640000.0, d.TotalPreliminaryContractPrice)
		assert.Equal(t, d.TotalPreliminaryContractPrice, d.ContractPrice)
	})

	t.Run("client managed excludes site costs", func(t *testing.T) {
		d := base()
		d.ServiceModel = models.ServiceModelClientManaged
		d.OnsiteDurationDays = models.DefaultOnsiteDaysClientManaged

		Apply(&d)

		assert.Equal(t, 485000.0, d.TotalPreliminaryContractPrice)
	})
}

func TestApply_MirrorsDesignFee(t *testing.T) {
	d := draftWithUnits(100000)
	d.DesignFee = 17500

	Apply(&d)

	assert.Equal(t, 17500.0, d.ManufacturingDesignPayment)
}

func TestApply_OnsiteDurationSnapping(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		duration int
		want     int
	}{
		{"switch to client-managed from full-service default", models.ServiceModelClientManaged, 60, 90},
		{"switch to full-service from client-managed default", models.ServiceModelFullService, 90, 60},
		{"custom duration survives switch", models.ServiceModelClientManaged, 75, 75},
		{"already on own default stays", models.ServiceModelFullService, 60, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := models.NewProjectDraft()
			d.ServiceModel = tt.model
			d.OnsiteDurationDays = tt.duration

			Apply(&d)

			assert.Equal(t, tt.want, d.OnsiteDurationDays)
		})
	}
}

func TestApply_ScheduleFromEffectiveDate(t *testing.T) {
	d := models.NewProjectDraft()
	d.EffectiveDate = "2026-01-01"
	d.ManufacturingDurationDays = 120
	d.DeliveryDurationDays = 14
	d.OnsiteDurationDays = 60
	d.WarrantyStructuralMonths = 120
	d.WarrantySystemsMonths = 24
	d.WarrantyAppliancesMonths = 12

	Apply(&d)

	assert.Equal(t, "2026-05-15", d.EstimatedDeliveryDate)
	assert.Equal(t, "2026-07-14", d.EstimatedCompletionDate)
	assert.Equal(t, "2036-07-14", d.WarrantyStructuralExpiry)
	assert.Equal(t, "2028-07-14", d.WarrantySystemsExpiry)
	assert.Equal(t, "2027-07-14", d.WarrantyAppliancesExpiry)
}

func TestApply_UnparseableEffectiveDateClearsSchedule(t *testing.T) {
	d := models.NewProjectDraft()
	d.EffectiveDate = "2026-01-01"
	Apply(&d)
	require.NotEmpty(t, d.EstimatedDeliveryDate)

	d.EffectiveDate = "not-a-date"
	Apply(&d)

	assert.Empty(t, d.EstimatedDeliveryDate)
	assert.Empty(t, d.EstimatedCompletionDate)
	assert.Empty(t, d.WarrantyStructuralExpiry)
	assert.Empty(t, d.WarrantySystemsExpiry)
	assert.Empty(t, d.WarrantyAppliancesExpiry)
}

func TestApply_Idempotent(t *testing.T) {
	d := draftWithUnits(200000, 300000)
	d.DesignFee = 20000
	d.EffectiveDate = "2026-03-01"

	Apply(&d)
	first := d
	Apply(&d)

	assert.Equal(t, first, d)
}
