// Package filestore keeps uploaded import files until a runner consumes them.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidRef = errors.New("invalid file reference")

// Local stores files flat under a single directory. A reference is the
// generated file name, never a path.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Save copies r into a new file and returns its reference. The original
// extension is kept for operators looking at the directory.
func (l *Local) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(name)))

	f, err := os.OpenFile(filepath.Join(l.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", ref, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", ref, err)
	}
	return ref, nil
}

func (l *Local) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	path, err := l.path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes ref. A missing file is not an error.
func (l *Local) Delete(_ context.Context, ref string) error {
	path, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(l.dir, ref), nil
}
