package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// partialSuffix marks files still being written; List skips them.
const partialSuffix = ".partial"

// Storage keeps objects as files below basePath and issues signed links served by Handler.
type Storage struct {
	basePath string
	signer   *Signer
	now      func() time.Time
}

func New(basePath string, signer *Signer) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath, signer: signer, now: time.Now}, nil
}

func (s *Storage) List(ctx context.Context) ([]domain.ObjectInfo, error) {
	var out []domain.ObjectInfo
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), partialSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		out = append(out, domain.ObjectInfo{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk storage dir: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Storage) Save(_ context.Context, key, _ string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*"+partialSuffix)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmp := f.Name()

	_, err = io.Copy(f, data)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close file: %w", closeErr)
	} else if err != nil {
		err = fmt.Errorf("write file: %w", err)
	}
	if err == nil {
		if renameErr := os.Rename(tmp, path); renameErr != nil {
			err = fmt.Errorf("commit file: %w", renameErr)
		}
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open file", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// PresignGet returns a link to key that Handler accepts until ttl elapses.
func (s *Storage) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", domain.WrapError(domain.ErrUnauthorized, "presign", errors.New("no signing key configured"))
	}
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	return s.signer.Sign(key, s.now().Add(ttl)), nil
}

func (s *Storage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if key == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve key", fmt.Errorf("invalid object key %q", key))
	}
	return filepath.Join(s.basePath, clean), nil
}
