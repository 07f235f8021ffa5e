// Package filestore hosts certificate files on the local disk or on S3.
package filestore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
)

type localStore struct {
	dir     string
	baseURL string
}

var _ certificate.FileStore = (*localStore)(nil)

// NewLocalStore stores files under dir; they are served from baseURL.
func NewLocalStore(dir, baseURL string) *localStore {
	return &localStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *localStore) Save(_ context.Context, key string, file certificate.File) (string, error) {
	key = path.Clean("/" + key)[1:] // no escaping dir
	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, file.Content); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.baseURL + "/" + key, nil
}

// New returns the store configured by conf.Storage.
func New(ctx context.Context, conf *core.Config) (certificate.FileStore, error) {
	switch conf.Storage.Driver {
	case "", "local":
		return NewLocalStore(filepath.Join(conf.WorkDir, conf.Storage.Dir), conf.Storage.BaseURL), nil
	case "s3":
		return NewS3Store(ctx, conf.Storage)
	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}
