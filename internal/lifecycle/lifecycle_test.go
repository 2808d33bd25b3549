package lifecycle

import (
	"sync"
	"testing"
)

func TestBeginGuardsDoubleSubmit(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin("svc-1"); err != nil {
		t.Fatalf("first Begin error: %v", err)
	}
	if err := tr.Begin("svc-1"); err != ErrBusy {
		t.Fatalf("expected ErrBusy on second Begin, got %v", err)
	}
	// A different entity id is independent.
	if err := tr.Begin("svc-2"); err != nil {
		t.Fatalf("Begin for other id error: %v", err)
	}
}

func TestSucceedReturnsToIdle(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin("user-7"); err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if err := tr.Succeed("user-7"); err != nil {
		t.Fatalf("Succeed error: %v", err)
	}
	if got := tr.Status("user-7").State; got != StateIdle {
		t.Fatalf("expected idle after success, got %v", got)
	}
	if err := tr.Begin("user-7"); err != nil {
		t.Fatalf("Begin after success error: %v", err)
	}
}

func TestFailKeepsReasonAndAllowsRetry(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin("user-7"); err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if err := tr.Fail("user-7", "database error"); err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	st := tr.Status("user-7")
	if st.State != StateFailed || st.Reason != "database error" {
		t.Fatalf("unexpected status: %+v", st)
	}
	// The busy flag is cleared, so a retry is possible.
	if err := tr.Begin("user-7"); err != nil {
		t.Fatalf("retry Begin error: %v", err)
	}
}

func TestConfirmThenCancel(t *testing.T) {
	tr := NewTracker()
	if err := tr.Confirm("svc-1"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if got := tr.Status("svc-1").State; got != StateConfirming {
		t.Fatalf("expected confirming, got %v", got)
	}
	if err := tr.Cancel("svc-1"); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if got := tr.Status("svc-1").State; got != StateIdle {
		t.Fatalf("expected idle after cancel, got %v", got)
	}
}

func TestCancelWhileSubmittingRejected(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin("svc-1"); err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if err := tr.Cancel("svc-1"); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := tr.Confirm("svc-1"); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSucceedWithoutBegin(t *testing.T) {
	tr := NewTracker()
	if err := tr.Succeed("ghost"); err != ErrNotSubmitting {
		t.Fatalf("expected ErrNotSubmitting, got %v", err)
	}
}

func TestConcurrentBeginSingleWinner(t *testing.T) {
	tr := NewTracker()
	const attempts = 32

	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Begin("appt-9") == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly one winning Begin, got %d", won)
	}
}
