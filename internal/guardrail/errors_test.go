package guardrail

import (
	"errors"
	"strings"
	"testing"
)

func TestEnforce_BlockModeOnBlockedResult(t *testing.T) {
	policy := DefaultPolicy() // block mode
	g := newTestGuardrail(policy)
	result := g.Scan("step-9", "rm -rf /", "")

	err := Enforce(result, policy)
	if err == nil {
		t.Fatal("expected error")
	}

	var verr *ViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ViolationError, got %T", err)
	}
	if verr.StepID != "step-9" {
		t.Errorf("unexpected step id: %s", verr.StepID)
	}
	if verr.Mode != ModeBlock {
		t.Errorf("unexpected mode: %v", verr.Mode)
	}
	if len(verr.Violations) == 0 {
		t.Error("error must carry the violation list")
	}
	if !strings.Contains(err.Error(), "step-9") {
		t.Errorf("summary missing step id: %s", err.Error())
	}
}

func TestEnforce_NonBlockModesNeverError(t *testing.T) {
	g := newTestGuardrail(nil)
	result := g.Scan("s", "rm -rf /", "")

	for _, mode := range []Mode{ModeWarn, ModePause} {
		p := DefaultPolicy()
		p.Mode = mode
		if err := Enforce(result, p); err != nil {
			t.Errorf("mode %v returned error: %v", mode, err)
		}
	}
}

func TestEnforce_BlockModeNonBlockedResult(t *testing.T) {
	policy := DefaultPolicy()
	g := newTestGuardrail(policy)
	result := g.Scan("s", "chmod 777 x", "") // warning only

	if err := Enforce(result, policy); err != nil {
		t.Errorf("non-blocked result should not error: %v", err)
	}
}

func TestShouldPause(t *testing.T) {
	g := newTestGuardrail(nil)
	flagged := g.Scan("s", "sudo su", "")
	clean := g.Scan("s", "echo ok", "")

	pausePolicy := DefaultPolicy()
	pausePolicy.Mode = ModePause

	if !ShouldPause(flagged, pausePolicy) {
		t.Error("pause mode with violations should pause")
	}
	if ShouldPause(clean, pausePolicy) {
		t.Error("clean result should not pause")
	}
	if ShouldPause(flagged, DefaultPolicy()) {
		t.Error("block mode should not pause")
	}
}

func TestViolation_RecordDecision(t *testing.T) {
	g := newTestGuardrail(nil)
	result := g.Scan("s", "sudo su", "")
	if len(result.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(result.Violations))
	}

	v := result.Violations[0]
	if v.UserDecision != DecisionNone {
		t.Errorf("fresh violation should have no decision, got %v", v.UserDecision)
	}
	v.RecordDecision(DecisionAllow)
	if v.UserDecision != DecisionAllow {
		t.Errorf("decision not recorded: %v", v.UserDecision)
	}
}
