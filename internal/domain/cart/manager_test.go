package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSnapshotStore is an in-memory SnapshotStore.
type mockSnapshotStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{data: make(map[string][]byte)}
}

func (s *mockSnapshotStore) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	return d, nil
}

func (s *mockSnapshotStore) Save(_ context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = data
	return nil
}

func (s *mockSnapshotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func TestManagerCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newMockSnapshotStore(), newMockPromoStore(), nil)

	id, e, err := m.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotNil(t, e)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, e, got)

	id2, _, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestManagerGetUnknown(t *testing.T) {
	ctx := context.Background()

	m := NewManager(newMockSnapshotStore(), newMockPromoStore(), nil)
	_, err := m.Get(ctx, "no-such-cart")
	assert.ErrorIs(t, err, ErrCartNotFound)

	// Without a store the lookup also fails cleanly.
	m = NewManager(nil, newMockPromoStore(), nil)
	_, err = m.Get(ctx, "no-such-cart")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestManagerRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	promos := newMockPromoStore(tattva10())

	m := NewManager(store, promos, nil)
	id, e, err := m.Create(ctx)
	require.NoError(t, err)

	p, v := saffron()
	_, err = e.AddItem(ctx, p, v, 2)
	require.NoError(t, err)
	_, err = e.ApplyPromo(ctx, "TATTVA10")
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, id))

	// A fresh manager simulates a process restart over the same store.
	m2 := NewManager(store, promos, nil)
	restored, err := m2.Get(ctx, id)
	require.NoError(t, err)

	items := restored.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "TATTVA10", restored.AppliedPromo())
}

func TestManagerRestoredEngineGetsTaxFunc(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	promos := newMockPromoStore()

	m := NewManager(store, promos, nil)
	m.SetTaxFunc(func(taxable decimal.Decimal) decimal.Decimal {
		return taxable.Mul(decimal.New(1, -1)) // 10%
	})
	id, e, err := m.Create(ctx)
	require.NoError(t, err)

	p, v := pepper()
	_, err = e.AddItem(ctx, p, v, 1) // 249
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, id))

	m2 := NewManager(store, promos, nil)
	m2.SetTaxFunc(func(taxable decimal.Decimal) decimal.Decimal {
		return taxable.Mul(decimal.New(1, -1))
	})
	restored, err := m2.Get(ctx, id)
	require.NoError(t, err)

	totals := restored.Totals(ctx)
	requireDecimal(t, decimal.New(249, -1), totals.Tax) // 24.9
}

func TestManagerDestroy(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	m := NewManager(store, newMockPromoStore(), nil)

	id, _, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, id))
	_, err = m.Get(ctx, id)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestManagerConcurrentGet(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	m := NewManager(store, newMockPromoStore(), nil)

	id, _, err := m.Create(ctx)
	require.NoError(t, err)

	// Drop the live engine so every Get has to restore from the store.
	m2 := NewManager(store, newMockPromoStore(), nil)

	engines := make([]*Engine, 20)
	var wg sync.WaitGroup
	for i := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := m2.Get(ctx, id)
			assert.NoError(t, err)
			engines[i] = e
		}()
	}
	wg.Wait()

	// All callers converge on a single engine instance.
	for _, e := range engines[1:] {
		assert.Same(t, engines[0], e)
	}
}
