package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors for the www boundary to map onto HTTP statuses. Domain
// violations never leave partial state behind: they abort the surrounding
// transaction.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrDepartmentMismatch = fmt.Errorf("%w: work order is not at a stage owned by your department", ErrForbidden)
	ErrNotFound           = errors.New("work order not found")
	ErrNoCurrentStage     = errors.New("no current stage found")
	ErrInvalidStation     = errors.New("invalid station")
	ErrOnHold             = errors.New("work order is on hold")
)

// TransitionError reports an action that is not valid from the work order's
// current status.
type TransitionError struct {
	Action string
	From   string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot %s a work order in status %s", e.Action, e.From)
}

// ValidationError reports malformed input before any persistence happens.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Detail)
	}
	return e.Detail
}
