package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
)

// FileStore keeps one {key}_churn.model.json file per schema in Dir.
type FileStore struct {
	Dir      string
	validate Validator
}

func NewFileStore(dir string, v Validator) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &FileStore{Dir: dir, validate: v}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, sanitize(key)+"_churn.model.json")
}

// Save writes to a temp file, syncs it, reads it back through the validator
// and renames it over the previous model.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := check(s.validate, key, data); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, sanitize(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	written, err := os.ReadFile(tmp.Name())
	if err != nil {
		return fmt.Errorf("read back temp model: %w", err)
	}
	if err := check(s.validate, key, written); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("publish model %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.ModelNotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", key, err)
	}
	return data, nil
}

// sanitize keeps schema names usable as file names.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, key)
}
