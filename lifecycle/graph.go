// Package lifecycle owns the order state machine: which statuses an order may move to,
// the progress percentage attached to each status, and the single mutator that applies
// a transition and produces its history record.
package lifecycle

import (
	"fmt"

	"github.com/kendall-kelly/jewelry-erp-api/models"
)

// Policy selects how strictly the forward pipeline is enforced.
type Policy string

const (
	// PolicyStrict allows only the next pipeline stage.
	PolicyStrict Policy = "strict"
	// PolicyForward allows any later pipeline stage, so stages may be skipped.
	PolicyForward Policy = "forward"
)

// ParsePolicy validates a policy name, treating empty as strict.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyForward:
		return PolicyForward, nil
	}
	return "", fmt.Errorf("unknown transition policy %q", name)
}

var pipelineIndex = func() map[models.OrderStatus]int {
	idx := make(map[models.OrderStatus]int, len(models.PipelineStatuses))
	for i, s := range models.PipelineStatuses {
		idx[s] = i
	}
	return idx
}()

// NextStatuses returns the statuses reachable from current. heldFrom is the pipeline
// status a suspended order was suspended from; it is ignored for pipeline statuses.
func NextStatuses(policy Policy, current models.OrderStatus, heldFrom *models.OrderStatus) []models.OrderStatus {
	if current.IsTerminal() {
		return nil
	}

	var next []models.OrderStatus
	switch current {
	case models.StatusOnHold:
		next = resumeTargets(heldFrom, false)
	case models.StatusReworkRequired:
		next = resumeTargets(heldFrom, true)
	default:
		i, ok := pipelineIndex[current]
		if !ok {
			return nil
		}
		if policy == PolicyForward {
			next = append(next, models.PipelineStatuses[i+1:]...)
		} else {
			next = append(next, models.PipelineStatuses[i+1])
		}
	}

	for _, s := range models.ExceptionStatuses {
		if s != current {
			next = append(next, s)
		}
	}
	return next
}

// resumeTargets lists where a suspended order may go back to. A held order resumes at
// the stage it was held from; an order needing rework may restart any earlier stage.
// When the held-from stage is unknown every non-terminal stage is allowed.
func resumeTargets(heldFrom *models.OrderStatus, earlier bool) []models.OrderStatus {
	last := len(models.PipelineStatuses) - 2 // DELIVERED is never a resume target
	if heldFrom != nil {
		if i, ok := pipelineIndex[*heldFrom]; ok && i <= last {
			if !earlier {
				return []models.OrderStatus{*heldFrom}
			}
			last = i
		}
	}
	targets := make([]models.OrderStatus, 0, last+1)
	return append(targets, models.PipelineStatuses[:last+1]...)
}

// CanTransition reports whether target is reachable from current.
func CanTransition(policy Policy, current models.OrderStatus, heldFrom *models.OrderStatus, target models.OrderStatus) bool {
	for _, s := range NextStatuses(policy, current, heldFrom) {
		if s == target {
			return true
		}
	}
	return false
}
