package lifecycle

import "github.com/kendall-kelly/jewelry-erp-api/models"

// Progress returns the advisory completion percentage for s. The second result is
// false for the exception statuses, which leave the order's progress unchanged.
func Progress(s models.OrderStatus) (float64, bool) {
	switch s {
	case models.StatusReceived:
		return 5, true
	case models.StatusDesignPending:
		return 10, true
	case models.StatusDesignApproved:
		return 15, true
	case models.StatusCADPending:
		return 20, true
	case models.StatusCADCompleted:
		return 25, true
	case models.StatusCAMPending:
		return 30, true
	case models.StatusCAMCompleted:
		return 35, true
	case models.StatusWaxPending:
		return 40, true
	case models.StatusWaxCompleted:
		return 45, true
	case models.StatusDispatchedToFactory:
		return 50, true
	case models.StatusReceivedAtFactory:
		return 55, true
	case models.StatusMaterialIssued:
		return 60, true
	case models.StatusInProduction:
		return 65, true
	case models.StatusCastingPending:
		return 70, true
	case models.StatusCastingCompleted:
		return 75, true
	case models.StatusFilingPending:
		return 80, true
	case models.StatusFilingCompleted:
		return 82, true
	case models.StatusPolishingPending:
		return 85, true
	case models.StatusPolishingCompleted:
		return 87, true
	case models.StatusStoneSettingPending:
		return 90, true
	case models.StatusStoneSettingCompleted:
		return 92, true
	case models.StatusQualityCheckPending:
		return 95, true
	case models.StatusQualityApproved:
		return 97, true
	case models.StatusProductionCompleted:
		return 98, true
	case models.StatusDispatchedToHeadOffice,
		models.StatusReceivedAtHeadOffice,
		models.StatusFinalInspection,
		models.StatusReadyForDelivery:
		return 99, true
	case models.StatusDelivered:
		return 100, true
	case models.StatusOnHold, models.StatusReworkRequired, models.StatusCancelled:
		return 0, false
	}
	return 0, false
}

// DefaultLocation is where an order normally is while in s. Exception statuses have
// no default; the order stays where it was.
func DefaultLocation(s models.OrderStatus) (models.Location, bool) {
	i, ok := pipelineIndex[s]
	if !ok {
		return "", false
	}
	switch {
	case i <= pipelineIndex[models.StatusDispatchedToFactory]:
		return models.LocationHeadOffice, true
	case i <= pipelineIndex[models.StatusDispatchedToHeadOffice]:
		return models.LocationFactory, true
	default:
		return models.LocationHeadOffice, true
	}
}
