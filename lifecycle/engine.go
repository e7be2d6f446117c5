package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
)

// MasterData answers whether referenced karigars and processes may be assigned.
type MasterData interface {
	IsActiveContractor(ctx context.Context, id uint) (bool, error)
	IsActiveProcess(ctx context.Context, id uint) (bool, error)
}

// TransitionRequest describes a requested status change.
type TransitionRequest struct {
	NewStatus models.OrderStatus
	// Location defaults to the status's usual location, or the current one for exceptions.
	Location            models.Location
	KarigarID           *uint
	ProcessID           *uint
	Comments            string
	ProgressOverride    *float64
	EstimatedCompletion *time.Time
	// ExpectedStatus, when set, must equal the order's current status.
	ExpectedStatus *models.OrderStatus
	Actor          string
}

// Engine validates and applies order transitions.
type Engine struct {
	policy     Policy
	masterData MasterData
	now        func() time.Time
}

// NewEngine creates an engine enforcing policy.
func NewEngine(policy Policy, masterData MasterData) *Engine {
	return &Engine{policy: policy, masterData: masterData, now: time.Now}
}

// WithClock replaces the engine's time source
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Policy returns the transition policy the engine enforces
func (e *Engine) Policy() Policy {
	return e.policy
}

// Initialize puts a new order into its starting state and returns the creation record.
func (e *Engine) Initialize(order *models.Order, actor string) *models.OrderStatusHistory {
	progress, _ := Progress(models.StatusReceived)

	order.CurrentStatus = models.StatusReceived
	order.CurrentLocation = models.LocationHeadOffice
	order.CurrentKarigarID = nil
	order.CurrentProcessID = nil
	order.HeldFromStatus = nil
	order.ProgressPercentage = progress
	if order.OrderDate.IsZero() {
		order.OrderDate = e.now()
	}

	return &models.OrderStatusHistory{
		OrderID:    order.ID,
		NewStatus:  models.StatusReceived,
		Location:   models.LocationHeadOffice,
		StatusDate: e.now(),
		Comments:   "Order created and received",
		ChangedBy:  actorRef(actor),
	}
}

// Apply validates req against order and, when every check passes, mutates order and
// returns the history record to append. On error order is left untouched.
func (e *Engine) Apply(ctx context.Context, order *models.Order, req TransitionRequest) (*models.OrderStatusHistory, error) {
	current := order.CurrentStatus

	if current.IsTerminal() {
		return nil, &apperrors.InvalidStateError{Status: string(current)}
	}

	if req.ExpectedStatus != nil && *req.ExpectedStatus != current {
		return nil, &apperrors.ConcurrentModificationError{
			Entity:   "order",
			ID:       order.ID,
			Expected: string(*req.ExpectedStatus),
			Actual:   string(current),
		}
	}

	if !req.NewStatus.IsValid() {
		return nil, apperrors.Invalid("new_status", "unknown status %q", req.NewStatus)
	}

	if !CanTransition(e.policy, current, order.HeldFromStatus, req.NewStatus) {
		next := NextStatuses(e.policy, current, order.HeldFromStatus)
		allowed := make([]string, len(next))
		for i, s := range next {
			allowed[i] = string(s)
		}
		return nil, &apperrors.IllegalTransitionError{From: string(current), To: string(req.NewStatus), Allowed: allowed}
	}

	location := req.Location
	if location == "" {
		var ok bool
		if location, ok = DefaultLocation(req.NewStatus); !ok {
			location = order.CurrentLocation
		}
	}
	if !location.IsValid() {
		return nil, apperrors.Invalid("location", "unknown location %q", location)
	}

	var karigarID *uint
	if location == models.LocationKarigar {
		if req.KarigarID == nil || *req.KarigarID == 0 {
			return nil, apperrors.Invalid("karigar_id", "is required when location is %s", models.LocationKarigar)
		}
		active, err := e.masterData.IsActiveContractor(ctx, *req.KarigarID)
		if err != nil {
			return nil, fmt.Errorf("checking karigar %d: %w", *req.KarigarID, err)
		}
		if !active {
			return nil, apperrors.Invalid("karigar_id", "karigar %d is not an active contractor", *req.KarigarID)
		}
		karigarID = copyID(req.KarigarID)
	}

	var processID *uint
	if req.ProcessID != nil && *req.ProcessID != 0 {
		active, err := e.masterData.IsActiveProcess(ctx, *req.ProcessID)
		if err != nil {
			return nil, fmt.Errorf("checking process %d: %w", *req.ProcessID, err)
		}
		if !active {
			return nil, apperrors.Invalid("process_id", "process %d is not active", *req.ProcessID)
		}
		processID = copyID(req.ProcessID)
	}

	progress := order.ProgressPercentage
	if req.ProgressOverride != nil {
		if *req.ProgressOverride < 0 || *req.ProgressOverride > 100 {
			return nil, apperrors.Invalid("progress_percentage", "must be between 0 and 100, got %v", *req.ProgressOverride)
		}
		progress = *req.ProgressOverride
	} else if value, ok := Progress(req.NewStatus); ok {
		progress = value
	}

	heldFrom := order.HeldFromStatus
	switch {
	case req.NewStatus.IsSuspended() && !current.IsSuspended():
		held := current
		heldFrom = &held
	case !req.NewStatus.IsSuspended() && req.NewStatus != models.StatusCancelled:
		heldFrom = nil
	}

	// all checks passed
	previous := current
	order.CurrentStatus = req.NewStatus
	order.CurrentLocation = location
	order.CurrentKarigarID = karigarID
	order.CurrentProcessID = processID
	order.HeldFromStatus = heldFrom
	order.ProgressPercentage = progress
	if req.EstimatedCompletion != nil {
		order.EstimatedCompletion = req.EstimatedCompletion
	}

	return &models.OrderStatusHistory{
		OrderID:        order.ID,
		PreviousStatus: &previous,
		NewStatus:      req.NewStatus,
		Location:       location,
		KarigarID:      copyID(karigarID),
		ProcessID:      copyID(processID),
		StatusDate:     e.now(),
		Comments:       req.Comments,
		ChangedBy:      actorRef(req.Actor),
	}, nil
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
