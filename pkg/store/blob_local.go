package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LocalBlobStore keeps blobs as files below a base directory, using the key
// as a slash-separated relative path.
type LocalBlobStore struct {
	basePath string
	log      zerolog.Logger
}

var _ BlobStore = (*LocalBlobStore)(nil)

func NewLocalBlobStore(basePath string, log zerolog.Logger) (*LocalBlobStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("local store path is not set")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create local storage directory")
	}

	logger := log.With().Str("component", "local-store").Logger()
	logger.Info().Str("path", basePath).Msg("local blob store initialized")

	return &LocalBlobStore{
		basePath: basePath,
		log:      logger,
	}, nil
}

func (l *LocalBlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", errors.Errorf("invalid key %q", key)
	}
	return filepath.Join(l.basePath, clean), nil
}

func (l *LocalBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	l.log.Debug().Str("key", key).Int("bytes", len(b)).Msg("file read from local storage")
	return b, nil
}

// Put writes to a temporary file first and renames it over the target, so
// readers never observe a partially written blob.
func (l *LocalBlobStore) Put(ctx context.Context, key string, body []byte) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	tmp, err := os.CreateTemp(dir, ".chat-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmpName, p); err != nil {
		return errors.Wrap(err, "failed to move file into place")
	}

	l.log.Debug().Str("key", key).Int("bytes", len(body)).Msg("file written to local storage")
	return nil
}

func (l *LocalBlobStore) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	// absent keys delete cleanly, like S3 DeleteObject
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}
