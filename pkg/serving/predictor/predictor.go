// Package predictor resolves a family's active record and loads the fitted
// pipeline it points at, caching decoded artifacts by file path and mtime.
package predictor

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bodytwin/platform/pkg/ml/pipeline"
	"github.com/bodytwin/platform/pkg/registry"
)

// ErrNoActiveModel is an expected state before a family's first training.
var ErrNoActiveModel = errors.New("no active model found")

// ErrArtifactLoad matches every *ArtifactLoadError.
var ErrArtifactLoad = errors.New("artifact load failed")

// ArtifactLoadError means the registry points at an artifact that cannot
// be read or decoded: storage and registry are out of sync.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

func (e *ArtifactLoadError) Is(target error) bool { return target == ErrArtifactLoad }

// ResolveActive returns ErrNoActiveModel when nothing has been promoted.
func ResolveActive(store *registry.Store) (registry.ModelRecord, error) {
	rec, err := store.Active()
	if err != nil {
		return registry.ModelRecord{}, err
	}
	if rec == nil {
		return registry.ModelRecord{}, ErrNoActiveModel
	}
	return *rec, nil
}

type cacheKey struct {
	path    string
	modTime int64
	size    int64
}

type Loader struct {
	mu          sync.RWMutex
	classifiers map[string]cachedClassifier
	regressors  map[string]cachedRegressor
}

type cachedClassifier struct {
	key   cacheKey
	model *pipeline.Classifier
}

type cachedRegressor struct {
	key   cacheKey
	model *pipeline.Regressor
}

func NewLoader() *Loader {
	return &Loader{
		classifiers: make(map[string]cachedClassifier),
		regressors:  make(map[string]cachedRegressor),
	}
}

func stat(path string) (cacheKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cacheKey{}, &ArtifactLoadError{Path: path, Err: err}
	}
	return cacheKey{path: path, modTime: info.ModTime().UnixNano(), size: info.Size()}, nil
}

func read(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	return content, nil
}

func (l *Loader) Classifier(path string) (*pipeline.Classifier, error) {
	key, err := stat(path)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	cached, ok := l.classifiers[path]
	l.mu.RUnlock()
	if ok && cached.key == key {
		return cached.model, nil
	}

	content, err := read(path)
	if err != nil {
		return nil, err
	}
	model, err := pipeline.DecodeClassifier(content)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	l.mu.Lock()
	l.classifiers[path] = cachedClassifier{key: key, model: model}
	l.mu.Unlock()
	return model, nil
}

func (l *Loader) Regressor(path string) (*pipeline.Regressor, error) {
	key, err := stat(path)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	cached, ok := l.regressors[path]
	l.mu.RUnlock()
	if ok && cached.key == key {
		return cached.model, nil
	}

	content, err := read(path)
	if err != nil {
		return nil, err
	}
	model, err := pipeline.DecodeRegressor(content)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	l.mu.Lock()
	l.regressors[path] = cachedRegressor{key: key, model: model}
	l.mu.Unlock()
	return model, nil
}
