package workflow

import "ewaste-backend/internal/models"

// transitions lists every legal status change.
var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending:    {models.StatusApproved, models.StatusProcessing, models.StatusRejected},
	models.StatusProcessing: {models.StatusCompleted},
}

// reviewTargets are the statuses an admin may set through UpdateStatus.
// processing and completed carry assignment side effects and have their own
// operations.
var reviewTargets = map[models.RequestStatus]bool{
	models.StatusApproved: true,
	models.StatusRejected: true,
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s models.RequestStatus) []models.RequestStatus {
	out := make([]models.RequestStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
