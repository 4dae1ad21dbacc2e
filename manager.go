package nskv

import (
	"errors"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"
)

var ErrStoreNotFound = fmt.Errorf("nskv: store not found")

// Manager owns a set of named Stores for the lifetime of the process.
type Manager struct {
	logger *zap.Logger
	stores *xsync.MapOf[string, *Store]
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger,
		stores: xsync.NewMapOf[*Store](),
	}
}

// Configure opens the backing for uri and registers it under name. A store
// previously registered under the same name is closed.
func (m *Manager) Configure(name string, uri string) error {
	if name == "" {
		return fmt.Errorf("store name cannot be empty")
	}

	s, err := OpenStore(m.logger.With(zap.String("store", name)), uri)
	if err != nil {
		return err
	}

	old, loaded := m.stores.LoadAndStore(name, s)
	if loaded {
		if err := old.Close(); err != nil {
			m.logger.Warn("Error closing replaced store", zap.String("store", name), zap.Error(err))
		}
	}

	m.logger.Info("Store configured", zap.String("store", name), zap.String("uri", uri))
	return nil
}

func (m *Manager) Store(name string) (*Store, error) {
	s, ok := m.stores.Load(name)
	if !ok {
		return nil, ErrStoreNotFound
	}
	return s, nil
}

// Names returns the configured store names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, m.stores.Size())
	m.stores.Range(func(name string, _ *Store) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Close closes and forgets every store.
func (m *Manager) Close() error {
	var errs []error
	for _, name := range m.Names() {
		s, ok := m.stores.LoadAndDelete(name)
		if !ok {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
