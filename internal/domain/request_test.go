package domain

import (
	"testing"
	"time"
)

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	now := time.Now()
	req := &GenerationRequest{Status: StatusPending}

	if !req.MarkProcessing() {
		t.Fatalf("pending -> processing should be allowed")
	}
	if !req.MarkCompleted("/static/generated/a.png", now) {
		t.Fatalf("processing -> completed should be allowed")
	}
	if req.MarkProcessing() {
		t.Fatalf("completed request regressed to processing")
	}
	if req.MarkFailed("late failure", now) {
		t.Fatalf("completed request regressed to failed")
	}
	if req.Status != StatusCompleted {
		t.Fatalf("terminal status changed: %s", req.Status)
	}
}

func TestFailedIsTerminal(t *testing.T) {
	now := time.Now()
	req := &GenerationRequest{Status: StatusPending}
	req.MarkProcessing()
	if !req.MarkFailed("boom", now) {
		t.Fatalf("processing -> failed should be allowed")
	}
	if req.MarkCompleted("/x.png", now) {
		t.Fatalf("failed request regressed to completed")
	}
}

func TestResultAndErrorAreMutuallyExclusive(t *testing.T) {
	now := time.Now()

	completed := &GenerationRequest{Status: StatusProcessing, ErrorMessage: "stale"}
	completed.MarkCompleted("/static/generated/a.png", now)
	if completed.ResultURL == "" || completed.ErrorMessage != "" {
		t.Fatalf("completed: result %q error %q", completed.ResultURL, completed.ErrorMessage)
	}

	failed := &GenerationRequest{Status: StatusProcessing, ResultURL: "/stale.png"}
	failed.MarkFailed("boom", now)
	if failed.ErrorMessage == "" || failed.ResultURL != "" {
		t.Fatalf("failed: result %q error %q", failed.ResultURL, failed.ErrorMessage)
	}
}

func TestPendingMayFailDirectly(t *testing.T) {
	// A request whose debit is rejected fails without ever processing.
	req := &GenerationRequest{Status: StatusPending}
	if !req.Status.CanTransitionTo(StatusFailed) {
		t.Fatalf("pending -> failed should be allowed")
	}
}

func TestTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("terminal status not reported terminal")
	}
}
