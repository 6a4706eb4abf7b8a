// Package media stores uploaded post attachments and profile avatars on local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// FilesDir holds post attachments.
	FilesDir = "Files"
	// AvatarDir holds resized profile images.
	AvatarDir = "profile_pics"
)

// ErrOutsideRoot is returned for paths escaping the media root.
var ErrOutsideRoot = errors.New("media path outside root")

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store writes and resolves media files relative to a root directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at root.
func NewStore(root string) *Store {
	if root == "" {
		root = "media"
	}
	return &Store{root: filepath.Clean(root)}
}

// Root returns the media root directory.
func (s *Store) Root() string {
	return s.root
}

// SaveAttachment copies r into Files/<uuid>_<name> and returns the relative path.
func (s *Store) SaveAttachment(filename string, r io.Reader) (string, error) {
	rel := path.Join(FilesDir, uuid.NewString()+"_"+SanitizeFilename(filename))
	if err := s.write(rel, r); err != nil {
		return "", err
	}
	return rel, nil
}

// Resolve maps a relative media path to an absolute filesystem path inside the root.
func (s *Store) Resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(rel)), "/")
	if rel == "" || rel == "." {
		return "", ErrOutsideRoot
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(s.root, full)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(rel string) error {
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove media %q: %w", rel, err)
	}
	return nil
}

func (s *Store) write(rel string, r io.Reader) error {
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return fmt.Errorf("write media file: %w", err)
	}
	return f.Close()
}

// SanitizeFilename keeps the base name and replaces characters outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	base := path.Base(filepath.ToSlash(name))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, ".")
	if base == "" || base == "_" {
		return "file"
	}
	return base
}
