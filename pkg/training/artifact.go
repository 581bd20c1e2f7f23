package training

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const timestampLayout = "20060102-150405"

// ArtifactWriter stores serialized models under a single directory. File
// names embed the UTC second they were written; a second artifact in the
// same second gets a numeric suffix instead of replacing the first.
type ArtifactWriter struct {
	dir string
	now func() time.Time
}

func NewArtifactWriter(dir string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactWriter{dir: dir, now: time.Now}, nil
}

func (w *ArtifactWriter) Dir() string { return w.dir }

// Write stores payload as <prefix>_<YYYYMMDD-HHMMSS>.json and returns the
// file name and path. The file appears complete or not at all.
func (w *ArtifactWriter) Write(prefix string, payload []byte) (string, string, error) {
	tmp, err := os.CreateTemp(w.dir, ".artifact-*")
	if err != nil {
		return "", "", fmt.Errorf("create artifact temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}

	stamp := w.now().UTC().Format(timestampLayout)
	for attempt := 0; ; attempt++ {
		name := fmt.Sprintf("%s_%s.json", prefix, stamp)
		if attempt > 0 {
			name = fmt.Sprintf("%s_%s-%d.json", prefix, stamp, attempt)
		}
		path := filepath.Join(w.dir, name)
		err := os.Link(tmpName, path)
		if err == nil {
			return name, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", fmt.Errorf("publish artifact %s: %w", name, err)
		}
	}
}
