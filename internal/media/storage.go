package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Storage persists derived rasters and returns the public URL under which
// each one is served.
type Storage interface {
	// Save writes data under name (a generated base name, never user input).
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Remove deletes the object previously returned by Save. Removing an
	// object that no longer exists is not an error.
	Remove(ctx context.Context, url string) error
}

// LocalStorage writes files into a flat directory on local disk.
type LocalStorage struct {
	Dir     string
	BaseURL string // URL prefix the directory is served under, e.g. "/uploads"
}

// NewLocalStorage creates dir when missing.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func cleanName(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || base != name {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return base, nil
}

// Save writes through a temp file and renames it into place so readers never
// observe a partial image.
func (s *LocalStorage) Save(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return s.BaseURL + "/" + name, nil
}

// Remove deletes the file behind url. URLs outside BaseURL are rejected.
func (s *LocalStorage) Remove(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.BaseURL+"/") {
		return fmt.Errorf("url %q is not managed by this storage", url)
	}
	name, err := cleanName(path.Base(url))
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
