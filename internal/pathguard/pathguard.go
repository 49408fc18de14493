// Package pathguard validates filesystem paths against a project root, a
// sensitive-location denylist, and a protected-file set before any
// read/write/delete a workflow step performs. All failures are recoverable:
// the caller denies the operation, nothing is fatal.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Operation is the filesystem action being validated.
type Operation int

const (
	OpRead Operation = iota + 1
	OpWrite
	OpDelete
)

// String returns the lowercase operation name.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	default:
		return "unspecified"
	}
}

// TraversalError reports a path that escapes the project root or falls
// outside every allowed directory.
type TraversalError struct {
	Path string
	Root string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("path %s escapes project root %s", e.Path, e.Root)
}

// SensitiveAccessError reports a path inside a denylisted system location.
type SensitiveAccessError struct {
	Path     string
	Location string
}

func (e *SensitiveAccessError) Error() string {
	return fmt.Sprintf("path %s touches sensitive location %s", e.Path, e.Location)
}

// ProtectedFileError reports a delete aimed at a project-critical file.
type ProtectedFileError struct {
	Path string
	File string
}

func (e *ProtectedFileError) Error() string {
	return fmt.Sprintf("refusing to delete protected file %s", e.File)
}

// Files that a delete must never touch, by base name.
var protectedFiles = map[string]bool{
	".git":              true,
	".env":              true,
	"go.mod":            true,
	"go.sum":            true,
	"package.json":      true,
	"package-lock.json": true,
	"Cargo.toml":        true,
	"Makefile":          true,
	"Dockerfile":        true,
}

// Validator checks target paths against one project root. Immutable after
// construction and safe for concurrent use.
type Validator struct {
	root        string
	allowedDirs []string // absolute; empty = whole root allowed
	sensitive   []string // absolute prefixes
	home        string   // user home, denied as an exact target
}

// NewValidator builds a validator for the given project root. allowedDirs
// are interpreted relative to the root when not absolute; an empty list
// allows the whole root.
func NewValidator(root string, allowedDirs []string) (*Validator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("NewValidator: %w", err)
	}
	absRoot = filepath.Clean(absRoot)

	v := &Validator{root: absRoot}
	for _, dir := range allowedDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(absRoot, dir)
		}
		v.allowedDirs = append(v.allowedDirs, filepath.Clean(dir))
	}

	v.sensitive = []string{
		"/etc/shadow",
		"/etc/gshadow",
		"/etc/passwd",
		"/etc/sudoers",
		"/etc/ssh",
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		home = filepath.Clean(home)
		v.home = home
		for _, d := range []string{".ssh", ".aws", ".azure", ".kube", ".gnupg", filepath.Join(".config", "gcloud")} {
			v.sensitive = append(v.sensitive, filepath.Join(home, d))
		}
	}
	return v, nil
}

// Root returns the validator's absolute project root.
func (v *Validator) Root() string {
	return v.root
}

// Validate resolves target against the project root and returns nil when the
// operation may proceed. Relative targets (including ones with ".." segments)
// resolve from the root. The sensitive-location check runs first and is
// independent of the root/whitelist check; the protected-file check applies
// to deletes only.
func (v *Validator) Validate(target string, op Operation) error {
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(v.root, resolved)
	}
	resolved = filepath.Clean(resolved)

	if loc := v.sensitiveLocation(resolved); loc != "" {
		return &SensitiveAccessError{Path: target, Location: loc}
	}

	rel, err := filepath.Rel(v.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &TraversalError{Path: target, Root: v.root}
	}

	if len(v.allowedDirs) > 0 && !v.inAllowedDir(resolved) {
		return &TraversalError{Path: target, Root: v.root}
	}

	if op == OpDelete {
		if base := filepath.Base(resolved); protectedFiles[base] {
			return &ProtectedFileError{Path: target, File: base}
		}
	}
	return nil
}

// sensitiveLocation returns the matching denylist entry, or "". The user
// home directory itself is denied as a direct target; paths beneath it are
// governed by the specific credential-directory entries and the root check.
func (v *Validator) sensitiveLocation(resolved string) string {
	if v.home != "" && resolved == v.home {
		return v.home
	}
	for _, s := range v.sensitive {
		if resolved == s || strings.HasPrefix(resolved, s+string(filepath.Separator)) {
			return s
		}
	}
	return ""
}

func (v *Validator) inAllowedDir(resolved string) bool {
	for _, dir := range v.allowedDirs {
		if resolved == dir || strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
