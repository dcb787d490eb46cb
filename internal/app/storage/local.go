package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/garyxuan/lan-chat/internal/pkg/randx"
)

// localStore writes uploads under RootDir. Files of KindUpload go to
// uploads/, avatars to public/avatars/, and the returned URLs point at the
// matching static routes.
type localStore struct {
	rootDir       string
	publicBaseURL string
}

func newLocalStore(cfg ServiceConfig) *localStore {
	return &localStore{
		rootDir:       cfg.RootDir,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

// Save streams the blob to disk under a timestamp-prefixed name.
func (l *localStore) Save(ctx context.Context, kind Kind, originalName string, content io.Reader) (StoredFile, error) {
	storedName := randx.StoredFileName(originalName)
	dir := filepath.Join(l.rootDir, filepath.FromSlash(string(kind)))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, storedName)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	written, err := io.Copy(dst, content)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to write file %s: %w", path, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to close file %s: %w", path, err)
	}

	return StoredFile{
		URL:  fmt.Sprintf("%s/%s/%s", l.publicBaseURL, kind, storedName),
		Name: originalName,
		Size: written,
	}, nil
}
