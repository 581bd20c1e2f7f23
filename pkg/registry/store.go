package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bodytwin/platform/pkg/common/logger"
)

// Store persists one family's Registry as a JSON document. Saves replace
// the document by rename, so readers see either the old or the new version.
// Promote serialises writers through the Locker.
type Store struct {
	family Family
	path   string
	locker Locker
}

// NewStore creates the directory holding path. A nil locker falls back to
// the process-wide keyed mutex.
func NewStore(family Family, path string, locker Locker) (*Store, error) {
	if locker == nil {
		locker = DefaultLocalLocker
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &Store{family: family, path: path, locker: locker}, nil
}

func (s *Store) Family() Family { return s.family }

func (s *Store) Path() string { return s.path }

// Load reads the document, writing an empty one first if none exists.
func (s *Store) Load() (Registry, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.createEmpty(); err != nil {
			return Registry{}, err
		}
		content, err = os.ReadFile(s.path)
	}
	if err != nil {
		return Registry{}, fmt.Errorf("read registry %s: %w", s.path, err)
	}
	var reg Registry
	if err := json.Unmarshal(content, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse registry %s: %w", s.path, err)
	}
	if reg.Models == nil {
		reg.Models = []ModelRecord{}
	}
	return reg, nil
}

// createEmpty publishes an empty document unless another writer got there
// first; it never replaces an existing one.
func (s *Store) createEmpty() error {
	payload, err := json.MarshalIndent(Registry{Models: []ModelRecord{}}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := writeTemp(s.path, payload)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, s.path); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create registry %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Save(reg Registry) error {
	if reg.Models == nil {
		reg.Models = []ModelRecord{}
	}
	payload, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path, payload)
}

func (s *Store) List() ([]ModelRecord, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return reg.Models, nil
}

// Active returns nil when nothing has been promoted yet.
func (s *Store) Active() (*ModelRecord, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := reg.Active()
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Promote appends rec as the active record under the family lock.
func (s *Store) Promote(ctx context.Context, rec ModelRecord) (Registry, error) {
	unlock, err := s.locker.Lock(ctx, s.lockKey())
	if err != nil {
		return Registry{}, fmt.Errorf("lock %s registry: %w", s.family, err)
	}
	defer unlock()

	reg, err := s.Load()
	if err != nil {
		return Registry{}, err
	}
	promoted := Promote(reg, rec)
	if err := s.Save(promoted); err != nil {
		return Registry{}, err
	}

	logger.ForFamily(string(s.family)).WithFields(map[string]interface{}{
		"name":    rec.Name,
		"records": len(promoted.Models),
	}).Info("Model promoted")
	return promoted, nil
}

func (s *Store) lockKey() string {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		abs = s.path
	}
	return "bodytwin:registry:" + string(s.family) + ":" + abs
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// writeTemp writes a synced 0644 sibling of path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	fail := func(err error) (string, error) {
		tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("write %s: %w", name, err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", name, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
