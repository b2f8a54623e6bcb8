package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExtractionArtifactSuffix is appended to a source path to name its
// extraction artifact. "report.pdf" becomes "report.pdf.det".
const ExtractionArtifactSuffix = ".det"

// FilePath is an absolute path to a regular, readable file.
// The zero value is not a valid path; construct with NewFilePath or
// NewWorkspacePath.
type FilePath struct{ path string }

// NewFilePath validates raw as an absolute path to an existing, regular,
// readable file.
func NewFilePath(raw string) (FilePath, error) {
	if !filepath.IsAbs(raw) {
		return FilePath{}, fmt.Errorf("%w: %q", ErrPathNotAbsolute, raw)
	}
	clean := filepath.Clean(raw)

	info, err := os.Stat(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FilePath{}, fmt.Errorf("%w: %s", ErrPathNotFound, clean)
		}
		if errors.Is(err, fs.ErrPermission) {
			return FilePath{}, fmt.Errorf("%w: %s", ErrPathNotReadable, clean)
		}
		return FilePath{}, fmt.Errorf("%w: %s: %v", ErrPathNotFound, clean, err)
	}
	if !info.Mode().IsRegular() {
		return FilePath{}, fmt.Errorf("%w: %s", ErrPathNotFile, clean)
	}

	f, err := os.Open(clean)
	if err != nil {
		return FilePath{}, fmt.Errorf("%w: %s: %v", ErrPathNotReadable, clean, err)
	}
	_ = f.Close()

	return FilePath{path: clean}, nil
}

// NewWorkspacePath is the strict constructor used at the workspace boundary.
// It rejects null bytes and ".." segments before touching the filesystem,
// then applies every NewFilePath check.
func NewWorkspacePath(raw string) (FilePath, error) {
	if err := checkLexical(raw); err != nil {
		return FilePath{}, err
	}
	return NewFilePath(raw)
}

// RestoreFilePath rehydrates a path read back from storage. Only lexical
// checks apply: the path was fully validated before it was persisted and
// the file may have disappeared since.
func RestoreFilePath(raw string) (FilePath, error) {
	if err := checkLexical(raw); err != nil {
		return FilePath{}, err
	}
	if !filepath.IsAbs(raw) {
		return FilePath{}, fmt.Errorf("%w: %q", ErrPathNotAbsolute, raw)
	}
	return FilePath{path: filepath.Clean(raw)}, nil
}

// checkLexical rejects null bytes and parent-directory segments.
func checkLexical(raw string) error {
	if strings.ContainsRune(raw, 0) {
		return fmt.Errorf("%w: %q", ErrPathNullByte, raw)
	}
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, seg := range segments {
		if seg == ".." {
			return fmt.Errorf("%w: %q", ErrPathTraversal, raw)
		}
	}
	return nil
}

// String returns the cleaned absolute path.
func (p FilePath) String() string { return p.path }

// IsZero reports whether the path was never assigned.
func (p FilePath) IsZero() bool { return p.path == "" }

// Base returns the file name.
func (p FilePath) Base() string { return filepath.Base(p.path) }

// Ext returns the extension including the dot, or "" if there is none.
func (p FilePath) Ext() string { return filepath.Ext(p.path) }

// Dir returns the containing directory.
func (p FilePath) Dir() string { return filepath.Dir(p.path) }

// IsFile reports whether the path currently names a regular file.
func (p FilePath) IsFile() bool {
	if p.path == "" {
		return false
	}
	info, err := os.Stat(p.path)
	return err == nil && info.Mode().IsRegular()
}

// WithExtractionSuffix returns the canonical artifact path. The original
// extension is kept: "a.pdf" -> "a.pdf.det", "README" -> "README.det".
func (p FilePath) WithExtractionSuffix() string {
	return p.path + ExtractionArtifactSuffix
}

// IsWithinWorkspace reports whether the path lies inside root.
// Symlinks are resolved on both sides when they can be.
func (p FilePath) IsWithinWorkspace(root string) bool {
	if p.path == "" || root == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	target := p.path
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	rel, err := filepath.Rel(absRoot, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RequireWithinWorkspace returns ErrPathOutsideWorkspace unless the path
// lies inside root.
func (p FilePath) RequireWithinWorkspace(root string) error {
	if !p.IsWithinWorkspace(root) {
		return fmt.Errorf("%w: %s not under %s", ErrPathOutsideWorkspace, p.path, root)
	}
	return nil
}
