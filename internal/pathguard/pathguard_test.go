package pathguard

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestValidator(t *testing.T, allowedDirs []string) *Validator {
	t.Helper()
	v, err := NewValidator("/srv/project", allowedDirs)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidate_PathInsideRoot(t *testing.T) {
	v := newTestValidator(t, nil)
	for _, p := range []string{"src/main.go", "./docs/readme.md", "/srv/project/out/bin"} {
		if err := v.Validate(p, OpWrite); err != nil {
			t.Errorf("expected %q to validate, got %v", p, err)
		}
	}
}

func TestValidate_TraversalRejectedForAnyRoot(t *testing.T) {
	// ../../etc/shadow escapes regardless of whitelist contents. Resolved
	// against /srv/project it lands on /etc/shadow, which the sensitive
	// check catches first; deeper roots fail on traversal alone.
	for _, tc := range []struct {
		root string
	}{
		{"/srv/project"},
		{"/home/dev/work/app/module"},
	} {
		v, err := NewValidator(tc.root, []string{"everything", "else"})
		if err != nil {
			t.Fatalf("NewValidator(%s): %v", tc.root, err)
		}
		err = v.Validate("../../etc/shadow", OpRead)
		if err == nil {
			t.Errorf("root %s: traversal accepted", tc.root)
			continue
		}
		var traversal *TraversalError
		var sensitive *SensitiveAccessError
		if !errors.As(err, &traversal) && !errors.As(err, &sensitive) {
			t.Errorf("root %s: unexpected error type %T", tc.root, err)
		}
	}
}

func TestValidate_DotDotSegmentsEscape(t *testing.T) {
	v := newTestValidator(t, nil)
	err := v.Validate("src/../../outside.txt", OpRead)
	var traversal *TraversalError
	if !errors.As(err, &traversal) {
		t.Fatalf("expected *TraversalError, got %v", err)
	}
}

func TestValidate_SensitiveLocations(t *testing.T) {
	v := newTestValidator(t, nil)
	for _, p := range []string{"/etc/shadow", "/etc/sudoers", "/etc/ssh/sshd_config"} {
		err := v.Validate(p, OpRead)
		var sensitive *SensitiveAccessError
		if !errors.As(err, &sensitive) {
			t.Errorf("expected *SensitiveAccessError for %q, got %v", p, err)
		}
	}
}

func TestValidate_SensitiveCheckIndependentOfRoot(t *testing.T) {
	// A project rooted inside /etc still cannot touch shadow.
	v, err := NewValidator("/etc", nil)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	verr := v.Validate("shadow", OpRead)
	var sensitive *SensitiveAccessError
	if !errors.As(verr, &sensitive) {
		t.Fatalf("expected *SensitiveAccessError, got %v", verr)
	}
}

func TestValidate_AllowedDirsConstrain(t *testing.T) {
	v := newTestValidator(t, []string{"src", "out"})

	if err := v.Validate("src/pkg/file.go", OpWrite); err != nil {
		t.Errorf("allowed dir rejected: %v", err)
	}
	err := v.Validate("secrets/creds.txt", OpWrite)
	var traversal *TraversalError
	if !errors.As(err, &traversal) {
		t.Errorf("expected *TraversalError outside allowed dirs, got %v", err)
	}
}

func TestValidate_ProtectedFilesDeleteOnly(t *testing.T) {
	v := newTestValidator(t, nil)

	err := v.Validate("go.mod", OpDelete)
	var protected *ProtectedFileError
	if !errors.As(err, &protected) {
		t.Fatalf("expected *ProtectedFileError, got %v", err)
	}
	if protected.File != "go.mod" {
		t.Errorf("unexpected file: %s", protected.File)
	}

	// Same path is fine to read or write.
	if err := v.Validate("go.mod", OpRead); err != nil {
		t.Errorf("read of protected file rejected: %v", err)
	}
	if err := v.Validate("go.mod", OpWrite); err != nil {
		t.Errorf("write of protected file rejected: %v", err)
	}

	// Non-protected deletes proceed.
	if err := v.Validate("build/output.bin", OpDelete); err != nil {
		t.Errorf("ordinary delete rejected: %v", err)
	}
}

func TestValidate_PrefixSiblingNotConfused(t *testing.T) {
	// /srv/project-backup is a sibling, not a child, of /srv/project.
	v := newTestValidator(t, nil)
	err := v.Validate("/srv/project-backup/file", OpRead)
	var traversal *TraversalError
	if !errors.As(err, &traversal) {
		t.Errorf("sibling with shared prefix accepted: %v", err)
	}
}

func TestNewValidator_RelativeAllowedDirsResolve(t *testing.T) {
	v := newTestValidator(t, []string{"nested/dir"})
	if err := v.Validate(filepath.Join("nested", "dir", "f.txt"), OpWrite); err != nil {
		t.Errorf("relative allowed dir did not resolve: %v", err)
	}
}
