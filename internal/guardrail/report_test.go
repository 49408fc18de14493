package guardrail

import (
	"strings"
	"testing"
)

func TestFormatResult_GroupsByCategory(t *testing.T) {
	g := newTestGuardrail(nil)
	result := g.Scan("step-3", "chmod 777 dist\nsudo su", "")

	out := FormatResult(result)
	if !strings.Contains(out, "filesystem:") {
		t.Errorf("missing filesystem group:\n%s", out)
	}
	if !strings.Contains(out, "privilege:") {
		t.Errorf("missing privilege group:\n%s", out)
	}
	if !strings.Contains(out, "[PAUSE]") {
		t.Errorf("missing severity marker:\n%s", out)
	}
	if !strings.Contains(out, "fix:") {
		t.Errorf("missing remediation:\n%s", out)
	}
	if !strings.Contains(out, "step-3") {
		t.Errorf("missing step id:\n%s", out)
	}
}

func TestFormatResult_CleanResult(t *testing.T) {
	g := newTestGuardrail(nil)
	out := FormatResult(g.Scan("step-1", "echo ok", ""))
	if !strings.Contains(out, "safe") || !strings.Contains(out, "no violations") {
		t.Errorf("unexpected clean render:\n%s", out)
	}
}

func TestFormatResult_NotesEarlyStop(t *testing.T) {
	g := newTestGuardrail(nil)
	out := FormatResult(g.Scan("step-1", "rm -rf /\necho never-scanned", ""))
	if !strings.Contains(out, "stopped early") {
		t.Errorf("early stop not surfaced:\n%s", out)
	}
}
