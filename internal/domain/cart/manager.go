package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/tattva-co/storefront/internal/domain/promo"
	"github.com/tattva-co/storefront/internal/domain/shipping"
)

// ErrCartNotFound is returned when a cart ID resolves to nothing, in
// memory or in the snapshot store.
var ErrCartNotFound = errors.New("cart not found")

// SnapshotStore durably caches cart snapshots across sessions.
type SnapshotStore interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
}

// Manager is a registry of live cart engines keyed by cart ID. Misses
// fall back to the snapshot store, so a cart survives process restarts.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*Engine

	store  SnapshotStore
	promos promo.Store
	rates  shipping.RateProvider
	tax    TaxFunc
}

// NewManager creates a Manager. store may be nil for purely in-memory
// carts (tests).
func NewManager(store SnapshotStore, promos promo.Store, rates shipping.RateProvider) *Manager {
	return &Manager{
		engines: make(map[string]*Engine),
		store:   store,
		promos:  promos,
		rates:   rates,
	}
}

// SetTaxFunc installs the externally supplied tax computation on every
// engine the manager creates or restores from now on.
func (m *Manager) SetTaxFunc(fn TaxFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tax = fn
}

// newEngine builds an engine with the manager's collaborators attached.
func (m *Manager) newEngine() *Engine {
	e := NewEngine(m.promos, m.rates)
	m.mu.Lock()
	tax := m.tax
	m.mu.Unlock()
	if tax != nil {
		e.SetTaxFunc(tax)
	}
	return e
}

// Create registers a new empty cart and returns its ID.
func (m *Manager) Create(ctx context.Context) (string, *Engine, error) {
	id := uuid.New().String()
	e := m.newEngine()

	m.mu.Lock()
	m.engines[id] = e
	m.mu.Unlock()

	if err := m.Persist(ctx, id); err != nil {
		return "", nil, err
	}
	return id, e, nil
}

// Get returns the engine for a cart ID, restoring it from the snapshot
// store when it is not live in memory.
func (m *Manager) Get(ctx context.Context, id string) (*Engine, error) {
	m.mu.Lock()
	if e, ok := m.engines[id]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, ErrCartNotFound
	}
	data, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	e := m.newEngine()
	if err := e.Restore(ctx, data); err != nil {
		return nil, errors.Wrapf(err, "restore cart %q", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it concurrently; keep the winner.
	if existing, ok := m.engines[id]; ok {
		return existing, nil
	}
	m.engines[id] = e
	return e, nil
}

// Persist writes the cart's current snapshot to the store.
func (m *Manager) Persist(ctx context.Context, id string) error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	e, ok := m.engines[id]
	m.mu.Unlock()
	if !ok {
		return ErrCartNotFound
	}

	data, err := e.Snapshot()
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, id, data); err != nil {
		return errors.Wrapf(err, "save cart %q", id)
	}
	return nil
}

// Destroy drops the cart from memory and the snapshot store.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.engines, id)
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete cart %q", id)
	}
	return nil
}
