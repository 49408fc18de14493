package guardrail

import "testing"

func TestCompileAllowlist_InvalidEntrySkipped(t *testing.T) {
	valid := CompileAllowlist(nil, nil)
	withBad := CompileAllowlist([]string{`[unclosed`, `^ok$`}, nil)

	if withBad.Len() != valid.Len()+1 {
		t.Errorf("expected %d matchers (defaults + 1 valid), got %d",
			valid.Len()+1, withBad.Len())
	}
	if !withBad.Allowed("ok") {
		t.Error("valid caller entry after an invalid one was not compiled")
	}
}

func TestCompileAllowlist_DefaultsFirstThenCallerEntries(t *testing.T) {
	a := CompileAllowlist([]string{`^custom-entry$`}, nil)

	// Default entries present.
	if !a.Allowed("git status") {
		t.Error("default allowlist entry missing")
	}
	if !a.Allowed("rm -rf node_modules") {
		t.Error("build-artifact cleanup default missing")
	}
	// Caller entry appended.
	if !a.Allowed("custom-entry") {
		t.Error("caller entry missing")
	}
}

func TestAllowlist_NilIsEmpty(t *testing.T) {
	var a *Allowlist
	if a.Allowed("anything") {
		t.Error("nil allowlist must match nothing")
	}
	if a.Len() != 0 {
		t.Errorf("nil allowlist length %d", a.Len())
	}
}

func TestCompileAllowlist_Idempotent(t *testing.T) {
	extra := []string{`^one$`, `^two$`}
	a := CompileAllowlist(extra, nil)
	b := CompileAllowlist(extra, nil)
	if a.Len() != b.Len() {
		t.Errorf("repeated compilation differs: %d vs %d", a.Len(), b.Len())
	}
}
