package storage

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateOutputShortString(t *testing.T) {
	out := TruncateOutput("echo hello", OutputPreviewLength)
	if out != "echo hello" {
		t.Errorf("short output should be unchanged, got %q", out)
	}
}

func TestTruncateOutputLongString(t *testing.T) {
	long := strings.Repeat("a", OutputPreviewLength*2)
	out := TruncateOutput(long, OutputPreviewLength)
	if len(out) != OutputPreviewLength {
		t.Errorf("expected %d chars, got %d", OutputPreviewLength, len(out))
	}
}

func TestTruncateOutputMultibyte(t *testing.T) {
	long := strings.Repeat("日", OutputPreviewLength+50)
	out := TruncateOutput(long, OutputPreviewLength)
	if !utf8.ValidString(out) {
		t.Error("truncation split a multibyte rune")
	}
	if utf8.RuneCountInString(out) != OutputPreviewLength {
		t.Errorf("expected %d runes, got %d", OutputPreviewLength, utf8.RuneCountInString(out))
	}
}
