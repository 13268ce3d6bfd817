package todo

import (
	"context"
	"sync"
	"testing"
	"time"

	"tasklist/cmd/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a store plus two registered owners.
type fixture struct {
	store Store
	alice int64
	bob   int64
}

func newOwners(t *testing.T, ids identity.Store) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	a, err := ids.CreateAccount(ctx, identity.CreateAccountInput{Name: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	b, err := ids.CreateAccount(ctx, identity.CreateAccountInput{Name: "bob", PasswordHash: "h"})
	require.NoError(t, err)
	return a.ID, b.ID
}

func runStoreContract(t *testing.T, newFixture func(t *testing.T) fixture) {
	t.Run("create sets owner", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		it, err := f.store.Create(ctx, f.alice, Input{Description: "milk", DueDate: "2025-01-01"})
		require.NoError(t, err)
		assert.Positive(t, it.ID)
		assert.Equal(t, f.alice, it.OwnerID)
		assert.Equal(t, "milk", it.Description)
		assert.Equal(t, "2025-01-01", it.DueDate)

		got, err := f.store.Get(ctx, it.ID, f.alice)
		require.NoError(t, err)
		assert.Equal(t, it, got)
	})

	t.Run("list is per owner and ordered", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		empty, err := f.store.ListByOwner(ctx, f.alice)
		require.NoError(t, err)
		require.NotNil(t, empty)
		assert.Empty(t, empty)

		a1, err := f.store.Create(ctx, f.alice, Input{Description: "a1"})
		require.NoError(t, err)
		_, err = f.store.Create(ctx, f.bob, Input{Description: "b1"})
		require.NoError(t, err)
		a2, err := f.store.Create(ctx, f.alice, Input{Description: "a2"})
		require.NoError(t, err)

		items, err := f.store.ListByOwner(ctx, f.alice)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, []int64{a1.ID, a2.ID}, []int64{items[0].ID, items[1].ID})
		for _, it := range items {
			assert.Equal(t, f.alice, it.OwnerID)
		}
	})

	t.Run("foreign access is forbidden and leaves item intact", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		it, err := f.store.Create(ctx, f.alice, Input{Description: "secret", DueDate: "d"})
		require.NoError(t, err)

		_, err = f.store.Get(ctx, it.ID, f.bob)
		require.ErrorIs(t, err, ErrForbidden)

		_, err = f.store.Update(ctx, it.ID, f.bob, Input{Description: "pwned", DueDate: "x"})
		require.ErrorIs(t, err, ErrForbidden)

		_, err = f.store.Delete(ctx, it.ID, f.bob)
		require.ErrorIs(t, err, ErrForbidden)

		got, err := f.store.Get(ctx, it.ID, f.alice)
		require.NoError(t, err)
		assert.Equal(t, it, got)
	})

	t.Run("missing id is not found", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		_, err := f.store.Get(ctx, 999999, f.alice)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = f.store.Update(ctx, 999999, f.alice, Input{})
		require.ErrorIs(t, err, ErrNotFound)
		_, err = f.store.Delete(ctx, 999999, f.alice)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update keeps id and owner", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		it, err := f.store.Create(ctx, f.alice, Input{Description: "old", DueDate: "2025-01-01"})
		require.NoError(t, err)

		up, err := f.store.Update(ctx, it.ID, f.alice, Input{Description: "new", DueDate: "2025-02-02"})
		require.NoError(t, err)
		assert.Equal(t, Item{ID: it.ID, OwnerID: f.alice, Description: "new", DueDate: "2025-02-02"}, up)

		got, err := f.store.Get(ctx, it.ID, f.alice)
		require.NoError(t, err)
		assert.Equal(t, up, got)
	})

	t.Run("delete returns removed item", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		it, err := f.store.Create(ctx, f.alice, Input{Description: "gone"})
		require.NoError(t, err)

		del, err := f.store.Delete(ctx, it.ID, f.alice)
		require.NoError(t, err)
		assert.Equal(t, it, del)

		_, err = f.store.Get(ctx, it.ID, f.alice)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = f.store.Delete(ctx, it.ID, f.alice)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent foreign updates never land", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)

		it, err := f.store.Create(ctx, f.alice, Input{Description: "mine"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.store.Update(ctx, it.ID, f.bob, Input{Description: "theirs"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.ErrorIs(t, err, ErrForbidden)
		}

		got, err := f.store.Get(ctx, it.ID, f.alice)
		require.NoError(t, err)
		assert.Equal(t, "mine", got.Description)
	})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return ctx
}
