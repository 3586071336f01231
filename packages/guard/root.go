package guard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMarkers are the entries whose presence marks a project root.
var DefaultMarkers = []string{"go.mod", "package.json", ".git", ".srcguard.yaml"}

// ProjectRoot is the absolute directory every relative path is resolved
// against. The zero value is invalid.
type ProjectRoot struct {
	path string
}

// NewProjectRoot absolutizes and cleans dir. The directory is not required
// to exist yet; reads against a missing root surface as IOErrors.
func NewProjectRoot(dir string) (ProjectRoot, error) {
	if strings.TrimSpace(dir) == "" {
		return ProjectRoot{}, &UsageError{Field: "root", Reason: "must not be empty"}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ProjectRoot{}, &UsageError{Field: "root", Value: dir, Reason: err.Error()}
	}
	return ProjectRoot{path: filepath.Clean(abs)}, nil
}

// MustProjectRoot is NewProjectRoot for static roots in tests and examples.
func MustProjectRoot(dir string) ProjectRoot {
	r, err := NewProjectRoot(dir)
	if err != nil {
		panic(err)
	}
	return r
}

func (r ProjectRoot) String() string {
	return r.path
}

// IsZero reports whether r was never initialised.
func (r ProjectRoot) IsZero() bool {
	return r.path == ""
}

// Resolve joins rel onto the root and rejects results outside it.
func (r ProjectRoot) Resolve(rel string) (string, error) {
	if r.path == "" {
		return "", &UsageError{Field: "root", Reason: "must not be empty"}
	}
	if rel == "" {
		return "", &UsageError{Field: "path", Reason: "must not be empty"}
	}
	if filepath.IsAbs(rel) {
		return "", &UsageError{Field: "path", Value: rel, Reason: "must be relative to the project root"}
	}

	full := filepath.Join(r.path, rel)
	if !within(r.path, full) {
		return "", &UsageError{Field: "path", Value: rel, Reason: fmt.Sprintf("escapes project root %s", r.path)}
	}
	return full, nil
}

// resolveLinks rejects a resolved path whose symlinks lead outside the root.
// Paths that do not exist yet are left to the read to report.
func (r ProjectRoot) resolveLinks(rel, full string) error {
	target, err := filepath.EvalSymlinks(full)
	if err != nil {
		return nil
	}
	root, err := filepath.EvalSymlinks(r.path)
	if err != nil {
		root = r.path
	}
	if !within(root, target) {
		return &UsageError{Field: "path", Value: rel, Reason: fmt.Sprintf("links outside project root %s", r.path)}
	}
	return nil
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// ReadFile resolves rel and returns its full path and content. Symlinks are
// followed only while they stay inside the root.
func (r ProjectRoot) ReadFile(rel string) (string, []byte, error) {
	full, err := r.Resolve(rel)
	if err != nil {
		return "", nil, err
	}
	if err := r.resolveLinks(rel, full); err != nil {
		return full, nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return full, nil, &IOError{Path: rel, Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return full, nil, &IOError{Path: rel, Op: "stat", Err: err}
	}
	if !info.Mode().IsRegular() {
		return full, nil, &IOError{Path: rel, Op: "read", Err: ErrNotRegular}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return full, nil, &IOError{Path: rel, Op: "read", Err: err}
	}
	return full, data, nil
}

// Check evaluates a against this root.
func (r ProjectRoot) Check(a SourceAssertion) error {
	_, data, err := r.ReadFile(a.RelativePath)
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), a.ExpectedSubstring) {
		return &AssertionError{
			Path:     a.RelativePath,
			Expected: a.ExpectedSubstring,
			Message:  a.FailureMessage,
		}
	}
	return nil
}

// FindProjectRoot walks up from start until a directory holding one of the
// markers is found. DefaultMarkers is used when none are given.
func FindProjectRoot(start string, markers ...string) (ProjectRoot, error) {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return ProjectRoot{}, err
	}

	for {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return ProjectRoot{path: dir}, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ProjectRoot{}, fmt.Errorf("no project root above %s (looked for %s)", start, strings.Join(markers, ", "))
		}
		dir = parent
	}
}
