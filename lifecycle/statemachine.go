package lifecycle

import "fmt"

// Guard functions for the work order state machine. Stage-advancement
// specifics (final stage vs. not) live in the controller; these express
// which statuses each action is legal from.

func checkRelease(status string) error {
	if status != StatusPlanned {
		return &TransitionError{Action: "release", From: status,
			Reason: fmt.Sprintf("only PLANNED work orders can be released (current: %s)", status)}
	}
	return nil
}

// checkStageWork gates START/COMPLETE. HOLD gets its own error so the
// handler can answer 409 rather than a generic transition failure.
func checkStageWork(action, status string) error {
	if status == StatusHold {
		return ErrOnHold
	}
	if status != StatusReleased && status != StatusInProgress {
		return &TransitionError{Action: action, From: status}
	}
	return nil
}

func checkPause(status string) error {
	if status == StatusHold {
		return &TransitionError{Action: "pause", From: status, Reason: "work order is already on hold"}
	}
	if status != StatusReleased && status != StatusInProgress {
		return &TransitionError{Action: "pause", From: status}
	}
	return nil
}

func checkHold(status string) error {
	switch status {
	case StatusHold:
		return &TransitionError{Action: "hold", From: status, Reason: "work order is already on hold"}
	case StatusCompleted, StatusCancelled, StatusClosed:
		return &TransitionError{Action: "hold", From: status}
	}
	return nil
}

func checkUnhold(status string) error {
	if status != StatusHold {
		return &TransitionError{Action: "unhold", From: status, Reason: "work order is not on hold"}
	}
	return nil
}

func checkCancel(status string) error {
	if status == StatusCompleted || status == StatusClosed {
		return &TransitionError{Action: "cancel", From: status,
			Reason: "cannot cancel completed or closed work orders"}
	}
	return nil
}

func checkUncancel(status string) error {
	if status != StatusCancelled {
		return &TransitionError{Action: "uncancel", From: status, Reason: "work order is not cancelled"}
	}
	return nil
}

func checkClose(status string) error {
	if status != StatusCompleted && status != StatusCancelled {
		return &TransitionError{Action: "close", From: status,
			Reason: "only completed or cancelled work orders can be closed"}
	}
	return nil
}

// identityFieldsMutable reports whether hull/SKU/quantity may still change.
// Once a work order is active they are frozen; only PLANNED and CANCELLED
// orders accept identity edits.
func identityFieldsMutable(status string) bool {
	return status == StatusPlanned || status == StatusCancelled
}
