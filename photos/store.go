// Package photos keeps item photos on local disk. A photo reference is
// the file name inside the store directory.
package photos

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes r under a fresh name keeping ext (".jpg" when empty) and
// returns the reference.
func (s *Store) Save(ext string, r io.Reader) (string, error) {
	if ext == "" {
		ext = ".jpg"
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("photo name: %w", err)
	}
	ref := id.String() + ext
	if err := checkRef(ref); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return ref, nil
}

// Path resolves a reference to a file path.
func (s *Store) Path(ref string) (string, error) {
	if err := checkRef(ref); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, ref), nil
}

// Release deletes the photo. A missing file is not an error.
func (s *Store) Release(ref string) error {
	p, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release photo %s: %w", ref, err)
	}
	return nil
}

// References never leave the store directory.
func checkRef(ref string) error {
	if ref == "" || ref == "." || ref == ".." ||
		strings.ContainsAny(ref, `/\`) || filepath.Base(ref) != ref {
		return fmt.Errorf("invalid photo reference %q", ref)
	}
	return nil
}
