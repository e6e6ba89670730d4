package ml

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// StoreState is the Model Store lifecycle state.
type StoreState string

const (
	StateUnloaded StoreState = "unloaded"
	StateLoaded   StoreState = "loaded"
)

// BundleLoader is one source the Model Store can load from.
type BundleLoader interface {
	Name() string
	Load(ctx context.Context) (*ModelBundle, error)
}

// ModelStore holds the bundle used for inference. Loaders are tried in order
// and the first valid bundle wins.
type ModelStore struct {
	mu      sync.RWMutex
	loaders []BundleLoader
	current *ModelBundle
	source  string
	logger  *logrus.Entry
}

// NewModelStore creates an unloaded store.
func NewModelStore(log *logrus.Logger, loaders ...BundleLoader) *ModelStore {
	return &ModelStore{
		loaders: loaders,
		logger:  log.WithField("component", "model_store"),
	}
}

// State reports whether a bundle is installed.
func (s *ModelStore) State() StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return StateUnloaded
	}
	return StateLoaded
}

// IsLoaded reports whether inference can run.
func (s *ModelStore) IsLoaded() bool {
	return s.State() == StateLoaded
}

// Current returns the installed bundle and where it came from.
func (s *ModelStore) Current() (*ModelBundle, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.source, s.current != nil
}

// EnsureLoaded returns the installed bundle, loading one first if needed.
func (s *ModelStore) EnsureLoaded(ctx context.Context) (*ModelBundle, error) {
	if b, _, ok := s.Current(); ok {
		return b, nil
	}
	return s.Load(ctx)
}

// Load reloads from the configured sources regardless of current state.
// A failed reload keeps the previously installed bundle.
func (s *ModelStore) Load(ctx context.Context) (*ModelBundle, error) {
	var errs []error
	for _, loader := range s.loaders {
		b, err := loader.Load(ctx)
		if err == nil {
			err = b.Validate()
		}
		if err != nil {
			MLBundleLoadsTotal.WithLabelValues(loader.Name(), "failure").Inc()
			s.logger.WithError(err).WithField("source", loader.Name()).Debug("Bundle source unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", loader.Name(), err))
			continue
		}

		MLBundleLoadsTotal.WithLabelValues(loader.Name(), "success").Inc()
		s.install(b, loader.Name())
		return b, nil
	}

	if len(errs) == 0 {
		return nil, ErrModelsUnavailable
	}
	return nil, fmt.Errorf("%w: %w", ErrModelsUnavailable, errors.Join(errs...))
}

// Install replaces the current bundle, typically after training.
func (s *ModelStore) Install(b *ModelBundle, source string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.install(b, source)
	return nil
}

func (s *ModelStore) install(b *ModelBundle, source string) {
	s.mu.Lock()
	s.current = b
	s.source = source
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"version":    b.Metadata.Version,
		"best_model": b.Metadata.BestModel,
		"source":     source,
	}).Info("Model bundle installed")
}
