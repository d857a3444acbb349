package lifecycle

import (
	"errors"
	"testing"
)

func TestCheckRelease(t *testing.T) {
	if err := checkRelease(StatusPlanned); err != nil {
		t.Errorf("release from PLANNED: %v", err)
	}
	for _, status := range []string{StatusReleased, StatusInProgress, StatusHold, StatusCompleted, StatusCancelled, StatusClosed} {
		if err := checkRelease(status); err == nil {
			t.Errorf("release from %s should fail", status)
		}
	}
}

func TestCheckStageWork(t *testing.T) {
	for _, status := range []string{StatusReleased, StatusInProgress} {
		if err := checkStageWork("start", status); err != nil {
			t.Errorf("start from %s: %v", status, err)
		}
	}
	if err := checkStageWork("start", StatusHold); !errors.Is(err, ErrOnHold) {
		t.Errorf("start from HOLD = %v, want ErrOnHold", err)
	}
	for _, status := range []string{StatusPlanned, StatusCompleted, StatusCancelled, StatusClosed} {
		err := checkStageWork("complete", status)
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("complete from %s = %v, want TransitionError", status, err)
		}
	}
}

func TestCheckPause(t *testing.T) {
	for _, status := range []string{StatusReleased, StatusInProgress} {
		if err := checkPause(status); err != nil {
			t.Errorf("pause from %s: %v", status, err)
		}
	}
	for _, status := range []string{StatusPlanned, StatusHold, StatusCompleted, StatusCancelled, StatusClosed} {
		if err := checkPause(status); err == nil {
			t.Errorf("pause from %s should fail", status)
		}
	}
}

func TestCheckHoldUnhold(t *testing.T) {
	for _, status := range []string{StatusPlanned, StatusReleased, StatusInProgress} {
		if err := checkHold(status); err != nil {
			t.Errorf("hold from %s: %v", status, err)
		}
	}
	for _, status := range []string{StatusHold, StatusCompleted, StatusCancelled, StatusClosed} {
		if err := checkHold(status); err == nil {
			t.Errorf("hold from %s should fail", status)
		}
	}

	if err := checkUnhold(StatusHold); err != nil {
		t.Errorf("unhold from HOLD: %v", err)
	}
	if err := checkUnhold(StatusReleased); err == nil {
		t.Error("unhold from RELEASED should fail")
	}
}

func TestCheckCancelUncancel(t *testing.T) {
	for _, status := range []string{StatusPlanned, StatusReleased, StatusInProgress, StatusHold, StatusCancelled} {
		if err := checkCancel(status); err != nil {
			t.Errorf("cancel from %s: %v", status, err)
		}
	}
	for _, status := range []string{StatusCompleted, StatusClosed} {
		if err := checkCancel(status); err == nil {
			t.Errorf("cancel from %s should fail", status)
		}
	}

	if err := checkUncancel(StatusCancelled); err != nil {
		t.Errorf("uncancel from CANCELLED: %v", err)
	}
	if err := checkUncancel(StatusPlanned); err == nil {
		t.Error("uncancel from PLANNED should fail")
	}
}

func TestCheckClose(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusCancelled} {
		if err := checkClose(status); err != nil {
			t.Errorf("close from %s: %v", status, err)
		}
	}
	for _, status := range []string{StatusPlanned, StatusReleased, StatusInProgress, StatusHold, StatusClosed} {
		if err := checkClose(status); err == nil {
			t.Errorf("close from %s should fail", status)
		}
	}
}

func TestIdentityFieldsMutable(t *testing.T) {
	for _, status := range []string{StatusPlanned, StatusCancelled} {
		if !identityFieldsMutable(status) {
			t.Errorf("identity fields should be mutable in %s", status)
		}
	}
	for _, status := range []string{StatusReleased, StatusInProgress, StatusHold, StatusCompleted, StatusClosed} {
		if identityFieldsMutable(status) {
			t.Errorf("identity fields should be frozen in %s", status)
		}
	}
}
