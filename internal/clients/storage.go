package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactStore keeps rendered contract files and hands out download URLs.
type ArtifactStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

var ErrArtifactNotFound = errors.New("artifact not found")

type LocalStorage struct {
	BaseDir      string // directory holding the files
	PublicPrefix string // URL prefix the files are served under, e.g. "/files"
	BaseURL      string // optional scheme+host used to build absolute URLs
}

// NewLocalStorage creates baseDir if it is missing.
func NewLocalStorage(baseDir, publicPrefix, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage/contracts"
	}
	if publicPrefix == "" {
		publicPrefix = "/files"
	}
	if !strings.HasPrefix(publicPrefix, "/") {
		publicPrefix = "/" + publicPrefix
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir %q: %w", baseDir, err)
	}

	return &LocalStorage{
		BaseDir:      baseDir,
		PublicPrefix: strings.TrimRight(publicPrefix, "/"),
		BaseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes data under a random prefix so two renders of the same contract never collide.
// The returned key is the stored file name.
func (s *LocalStorage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(name)

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	final := hex.EncodeToString(randBytes) + "_" + name

	path := filepath.Join(s.BaseDir, final)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	return final, nil
}

// URL is absolute when BaseURL is configured, otherwise relative to the service root.
func (s *LocalStorage) URL(_ context.Context, key string) (string, error) {
	return s.BaseURL + s.PublicPrefix + "/" + key, nil
}

// Path resolves a stored file name to its location on disk.
func (s *LocalStorage) Path(key string) (string, error) {
	key = filepath.Base(key)
	if key == "." || key == string(filepath.Separator) || strings.HasSuffix(key, ".tmp") {
		return "", ErrArtifactNotFound
	}
	path := filepath.Join(s.BaseDir, key)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrArtifactNotFound
	}
	return path, nil
}

// OriginalName strips the random prefix added by Save.
func OriginalName(key string) string {
	if idx := strings.IndexByte(key, '_'); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// CleanupOlderThan deletes files older than d. Removal is best-effort.
func (s *LocalStorage) CleanupOlderThan(d time.Duration) error {
	now := time.Now()
	return filepath.WalkDir(s.BaseDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > d {
			_ = os.Remove(path)
		}
		return nil
	})
}
