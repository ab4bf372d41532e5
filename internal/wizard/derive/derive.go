// Package derive keeps computed draft fields consistent with their inputs.
// Apply is a single pure pass run after every mutation; every rule is
// idempotent and order-independent, so re-running it is always safe.
package derive

import (
	"time"

	"contract-wizard/internal/models"
)

const dateLayout = "2006-01-02"

// Apply recomputes all derived fields of the draft in place.
func Apply(d *models.ProjectDraft) {
	reconcileUnits(d)
	d.PreliminaryOffsiteCost = sumUnitPrices(d.Units)
	d.TotalPreliminaryContractPrice = contractTotal(d)
	d.ManufacturingDesignPayment = d.DesignFee
	d.ContractPrice = d.TotalPreliminaryContractPrice
	snapOnsiteDuration(d)
	deriveSchedule(d)
}

// reconcileUnits grows the unit list with default entries or truncates it
// from the end so that len(units) == totalUnits. New units get strictly
// increasing IDs that are never reused.
func reconcileUnits(d *models.ProjectDraft) {
	if d.TotalUnits < 1 {
		d.TotalUnits = 1
	}
	for len(d.Units) < d.TotalUnits {
		d.Units = append(d.Units, models.DefaultUnit(NextUnitID(d.Units)))
	}
	if len(d.Units) > d.TotalUnits {
		d.Units = d.Units[:d.TotalUnits]
	}
}

// NextUnitID returns max(existing ids) + 1.
func NextUnitID(units []models.UnitSpec) int {
	max := 0
	for _, u := range units {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}

func sumUnitPrices(units []models.UnitSpec) float64 {
	var sum float64
	for _, u := range units {
		sum += u.Price
	}
	return sum
}

// contractTotal is offsite + delivery/install + design fee; the full-service
// model additionally carries site-prep, utilities, and completion costs.
func contractTotal(d *models.ProjectDraft) float64 {
	total := d.PreliminaryOffsiteCost + d.DeliveryInstallationPrice + d.DesignFee
	if d.ServiceModel == models.ServiceModelFullService {
		total += d.SitePreparationCost + d.UtilitiesCost + d.CompletionCost
	}
	return total
}

// snapOnsiteDuration moves the on-site duration to the current model's
// default, but only while it still holds the other model's default. A user
// who explicitly set the duration to the other model's default value will
// have it overwritten on a later model switch; the source behavior cannot
// distinguish that case and product has not clarified it.
func snapOnsiteDuration(d *models.ProjectDraft) {
	switch d.ServiceModel {
	case models.ServiceModelFullService:
		if d.OnsiteDurationDays == models.DefaultOnsiteDaysClientManaged {
			d.OnsiteDurationDays = models.DefaultOnsiteDaysFullService
		}
	case models.ServiceModelClientManaged:
		if d.OnsiteDurationDays == models.DefaultOnsiteDaysFullService {
			d.OnsiteDurationDays = models.DefaultOnsiteDaysClientManaged
		}
	}
}

// deriveSchedule computes the delivery/completion dates and warranty expiry
// dates from the effective date and phase durations. Without a parseable
// effective date the computed dates are cleared.
func deriveSchedule(d *models.ProjectDraft) {
	effective, err := time.Parse(dateLayout, d.EffectiveDate)
	if err != nil {
		d.EstimatedDeliveryDate = ""
		d.EstimatedCompletionDate = ""
		d.WarrantyStructuralExpiry = ""
		d.WarrantySystemsExpiry = ""
		d.WarrantyAppliancesExpiry = ""
		return
	}

	delivery := effective.AddDate(0, 0, d.ManufacturingDurationDays+d.DeliveryDurationDays)
	completion := delivery.AddDate(0, 0, d.OnsiteDurationDays)

	d.EstimatedDeliveryDate = delivery.Format(dateLayout)
	d.EstimatedCompletionDate = completion.Format(dateLayout)
	d.WarrantyStructuralExpiry = completion.AddDate(0, d.WarrantyStructuralMonths, 0).Format(dateLayout)
	d.WarrantySystemsExpiry = completion.AddDate(0, d.WarrantySystemsMonths, 0).Format(dateLayout)
	d.WarrantyAppliancesExpiry = completion.AddDate(0, d.WarrantyAppliancesMonths, 0).Format(dateLayout)
}
