package models

// OrderStatus is the manufacturing stage an order is in
type OrderStatus string

const (
	// Head office stages
	StatusReceived       OrderStatus = "RECEIVED"
	StatusDesignPending  OrderStatus = "DESIGN_PENDING"
	StatusDesignApproved OrderStatus = "DESIGN_APPROVED"
	StatusCADPending     OrderStatus = "CAD_PENDING"
	StatusCADCompleted   OrderStatus = "CAD_COMPLETED"
	StatusCAMPending     OrderStatus = "CAM_PENDING"
	StatusCAMCompleted   OrderStatus = "CAM_COMPLETED"
	StatusWaxPending     OrderStatus = "WAX_PENDING"
	StatusWaxCompleted   OrderStatus = "WAX_COMPLETED"

	// Dispatch stages
	StatusDispatchedToFactory OrderStatus = "DISPATCHED_TO_FACTORY"
	StatusReceivedAtFactory   OrderStatus = "RECEIVED_AT_FACTORY"

	// Factory production stages
	StatusMaterialIssued        OrderStatus = "MATERIAL_ISSUED"
	StatusInProduction          OrderStatus = "IN_PRODUCTION"
	StatusCastingPending        OrderStatus = "CASTING_PENDING"
	StatusCastingCompleted      OrderStatus = "CASTING_COMPLETED"
	StatusFilingPending         OrderStatus = "FILING_PENDING"
	StatusFilingCompleted       OrderStatus = "FILING_COMPLETED"
	StatusPolishingPending      OrderStatus = "POLISHING_PENDING"
	StatusPolishingCompleted    OrderStatus = "POLISHING_COMPLETED"
	StatusStoneSettingPending   OrderStatus = "STONE_SETTING_PENDING"
	StatusStoneSettingCompleted OrderStatus = "STONE_SETTING_COMPLETED"
	StatusQualityCheckPending   OrderStatus = "QUALITY_CHECK_PENDING"
	StatusQualityApproved       OrderStatus = "QUALITY_APPROVED"
	StatusProductionCompleted   OrderStatus = "PRODUCTION_COMPLETED"

	// Return journey
	StatusDispatchedToHeadOffice OrderStatus = "DISPATCHED_TO_HEAD_OFFICE"
	StatusReceivedAtHeadOffice   OrderStatus = "RECEIVED_AT_HEAD_OFFICE"
	StatusFinalInspection        OrderStatus = "FINAL_INSPECTION"
	StatusReadyForDelivery       OrderStatus = "READY_FOR_DELIVERY"
	StatusDelivered              OrderStatus = "DELIVERED"

	// Exceptions
	StatusOnHold         OrderStatus = "ON_HOLD"
	StatusReworkRequired OrderStatus = "REWORK_REQUIRED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// PipelineStatuses lists the forward pipeline in production order.
var PipelineStatuses = []OrderStatus{
	StatusReceived,
	StatusDesignPending,
	StatusDesignApproved,
	StatusCADPending,
	StatusCADCompleted,
	StatusCAMPending,
	StatusCAMCompleted,
	StatusWaxPending,
	StatusWaxCompleted,
	StatusDispatchedToFactory,
	StatusReceivedAtFactory,
	StatusMaterialIssued,
	StatusInProduction,
	StatusCastingPending,
	StatusCastingCompleted,
	StatusFilingPending,
	StatusFilingCompleted,
	StatusPolishingPending,
	StatusPolishingCompleted,
	StatusStoneSettingPending,
	StatusStoneSettingCompleted,
	StatusQualityCheckPending,
	StatusQualityApproved,
	StatusProductionCompleted,
	StatusDispatchedToHeadOffice,
	StatusReceivedAtHeadOffice,
	StatusFinalInspection,
	StatusReadyForDelivery,
	StatusDelivered,
}

// ExceptionStatuses can be entered from any non-terminal status.
var ExceptionStatuses = []OrderStatus{
	StatusOnHold,
	StatusReworkRequired,
	StatusCancelled,
}

// AllOrderStatuses returns every status, pipeline first.
func AllOrderStatuses() []OrderStatus {
	all := make([]OrderStatus, 0, len(PipelineStatuses)+len(ExceptionStatuses))
	all = append(all, PipelineStatuses...)
	return append(all, ExceptionStatuses...)
}

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	for _, known := range AllOrderStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsSuspended reports whether s is a non-terminal exception that must be resumed
func (s OrderStatus) IsSuspended() bool {
	return s == StatusOnHold || s == StatusReworkRequired
}

// Location is where an order physically is
type Location string

const (
	LocationHeadOffice Location = "HEAD_OFFICE"
	LocationFactory    Location = "FACTORY"
	LocationKarigar    Location = "KARIGAR"
)

// IsValid reports whether l is a known location
func (l Location) IsValid() bool {
	switch l {
	case LocationHeadOffice, LocationFactory, LocationKarigar:
		return true
	}
	return false
}

// ClientCategory classifies who the order is for
type ClientCategory string

const (
	ClientSample    ClientCategory = "SAMPLE"
	ClientOnline    ClientCategory = "ONLINE"
	ClientRetail    ClientCategory = "RETAIL"
	ClientWholesale ClientCategory = "WHOLESALE"
)

// IsValid reports whether c is a known category
func (c ClientCategory) IsValid() bool {
	switch c {
	case ClientSample, ClientOnline, ClientRetail, ClientWholesale:
		return true
	}
	return false
}

// UrgencyLevel is the priority of an order
type UrgencyLevel string

const (
	UrgencyNormal UrgencyLevel = "NORMAL"
	UrgencyUrgent UrgencyLevel = "URGENT"
	UrgencyRush   UrgencyLevel = "RUSH"
)

// IsValid reports whether u is a known urgency level
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyRush:
		return true
	}
	return false
}

// IssueStatus is derived from how much of an issue has been received back
type IssueStatus string

const (
	IssuePending   IssueStatus = "Pending"
	IssuePartial   IssueStatus = "Partial"
	IssueCompleted IssueStatus = "Completed"
)
