// Package snapshot stores frames as zstd-compressed gob files between the
// prep and the analytics stages.
package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
)

// Kind names the snapshot flavours a schema has.
type Kind string

const (
	AllData      Kind = "all_data"
	ChurnTrain   Kind = "churn_train"
	ChurnPredict Kind = "churn_predict"
)

const formatVersion = 1

type file struct {
	Version int
	Rows    int
	Columns []*frame.Column
}

// Path is where the kind snapshot of schema lives under dir.
func Path(dir, schema string, kind Kind) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.snap", schema, kind))
}

// Write stores f at path, replacing any previous snapshot atomically.
func Write(path string, f *frame.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, f); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func encode(w *os.File, f *frame.Frame) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(file{Version: formatVersion, Rows: f.Len(), Columns: f.Columns()}); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Read loads the snapshot at path. A missing file is DataUnavailable.
func Read(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.DataUnavailable("snapshot %s does not exist", path)
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	zr, err := zstd.NewReader(fh)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	defer zr.Close()

	var snap file
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Version != formatVersion {
		return nil, apperrors.SchemaMismatch("snapshot %s has format %d, want %d", path, snap.Version, formatVersion)
	}
	f, err := frame.FromColumns(snap.Columns...)
	if err != nil {
		return nil, err
	}
	if f.Width() > 0 && f.Len() != snap.Rows {
		return nil, apperrors.SchemaMismatch("snapshot %s has %d rows, header says %d", path, f.Len(), snap.Rows)
	}
	return f, nil
}
