package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidFilename = errors.New("invalid upload filename")

// Workspace hands out one scratch directory per job under a shared root.
type Workspace struct {
	root string
}

func New(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// Create makes the job directory. It fails if the directory already exists.
func (w *Workspace) Create(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	dir := filepath.Join(w.root, jobID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// Stage writes the upload into dir under the base name of filename.
func (w *Workspace) Stage(dir, filename string, src io.Reader) (string, int64, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", 0, ErrInvalidFilename
	}

	path := filepath.Join(dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", n, fmt.Errorf("write staged file: %w", err)
	}

	return path, n, nil
}

// Remove deletes a job directory. Paths outside the root are refused.
func (w *Workspace) Remove(dir string) error {
	rel, err := filepath.Rel(w.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %q outside uploads root", dir)
	}
	return os.RemoveAll(dir)
}

func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}
