package offer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"offer-collab-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o := &domain.Offer{Fields: domain.FieldMap{"price": float64(100)}}
	require.NoError(t, store.Create(ctx, o))
	require.NotZero(t, o.ID)

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.Version)
	assert.Equal(t, float64(100), got.Fields["price"])

	// mutating the returned snapshot must not leak into the store
	got.Fields["price"] = float64(999)
	again, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), again.Fields["price"])
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CommitSuccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o := &domain.Offer{Fields: domain.FieldMap{"price": float64(100), "platform": "instagram"}}
	require.NoError(t, store.Create(ctx, o))

	res, err := store.Commit(ctx, o.ID, 0, domain.FieldMap{"price": float64(150)})
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, uint64(1), res.Version)
	assert.Equal(t, float64(150), res.Fields["price"])
	assert.Equal(t, "instagram", res.Fields["platform"])
	assert.Equal(t, float64(100), res.Previous["price"])
}

func TestMemoryStore_CommitVersionMismatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o := &domain.Offer{Fields: domain.FieldMap{"price": float64(100)}}
	require.NoError(t, store.Create(ctx, o))

	res, err := store.Commit(ctx, o.ID, 0, domain.FieldMap{"price": float64(150)})
	require.NoError(t, err)
	require.True(t, res.OK)

	// stale expected version: nothing applied, authoritative state returned
	res, err = store.Commit(ctx, o.ID, 0, domain.FieldMap{"price": float64(120)})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, uint64(1), res.Version)
	assert.Equal(t, float64(150), res.Fields["price"])

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Version)
	assert.Equal(t, float64(150), got.Fields["price"])
}

// Two concurrent commits with the same expected version: exactly one wins.
func TestMemoryStore_ConcurrentCommitsSameVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o := &domain.Offer{Fields: domain.FieldMap{"price": float64(100)}}
	require.NoError(t, store.Create(ctx, o))

	var wg sync.WaitGroup
	results := make([]*CommitResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Commit(ctx, o.ID, 0, domain.FieldMap{"price": float64(150 + i)})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	wins := 0
	for _, res := range results {
		if res.OK {
			wins++
		} else {
			assert.Equal(t, uint64(1), res.Version)
		}
	}
	assert.Equal(t, 1, wins)

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Version)
}

// Many sequential commits keep the version gap-free.
func TestMemoryStore_VersionMonotonicity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o := &domain.Offer{Fields: domain.FieldMap{"price": float64(0)}}
	require.NoError(t, store.Create(ctx, o))

	for i := 0; i < 25; i++ {
		res, err := store.Commit(ctx, o.ID, uint64(i), domain.FieldMap{"price": float64(i)})
		require.NoError(t, err)
		require.True(t, res.OK)
		require.Equal(t, uint64(i+1), res.Version)
	}

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), got.Version)
}

// Commits on distinct offers run concurrently without interfering.
func TestMemoryStore_IndependentDocuments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &domain.Offer{Fields: domain.FieldMap{"price": float64(1)}}
	b := &domain.Offer{Fields: domain.FieldMap{"price": float64(2)}}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for slot, id := range []uint64{a.ID, b.ID} {
		wg.Add(1)
		go func(slot int, id uint64) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := store.Commit(ctx, id, uint64(i), domain.FieldMap{"price": float64(i)})
				if err != nil {
					errs[slot] = err
					return
				}
				if !res.OK {
					errs[slot] = fmt.Errorf("commit %d on offer %d lost a conflict", i, id)
					return
				}
			}
		}(slot, id)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, id := range []uint64{a.ID, b.ID} {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), got.Version)
	}
}
