// Package storagetest holds the behaviour every storage.Backend must share.
// Backend packages run it from their own tests.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) storage.Backend

// Run exercises the storage.Backend contract against backends built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	t.Run("create and find user", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.CreateUser(ctx, "alice", "h1", "administrator"))

		u, err := b.FindUser(ctx, "alice", "h1")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "h1", u.PasswordHash)
		assert.Equal(t, "administrator", u.Role)
	})

	t.Run("find requires exact match", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.CreateUser(ctx, "alice", "h1", "administrator"))

		for _, c := range [][2]string{{"alice", "h2"}, {"bob", "h1"}, {"Alice", "h1"}, {"ali", "h1"}, {"alice", ""}} {
			u, err := b.FindUser(ctx, c[0], c[1])
			require.NoError(t, err)
			assert.Nil(t, u, "username=%q hash=%q", c[0], c[1])
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.CreateUser(ctx, "alice", "h1", "administrator"))
		err := b.CreateUser(ctx, "alice", "h2", "administrator")
		require.ErrorIs(t, err, storage.ErrDuplicateUsername)

		u, err := b.FindUser(ctx, "alice", "h1")
		require.NoError(t, err)
		assert.NotNil(t, u)
		u, err = b.FindUser(ctx, "alice", "h2")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		b := newBackend(t)
		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = b.CreateUser(ctx, "carol", "h", "administrator")
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, storage.ErrDuplicateUsername)
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("empty ledger", func(t *testing.T) {
		b := newBackend(t)
		recs, err := b.ListInventoryRecords(ctx)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("append then read", func(t *testing.T) {
		b := newBackend(t)
		ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

		id1, err := b.AppendInventoryRecord(ctx, "gadget", 10, decimal.RequireFromString("2.5"), ts)
		require.NoError(t, err)
		id2, err := b.AppendInventoryRecord(ctx, "gadget", 3, decimal.RequireFromString("0.1"), ts.Add(time.Minute))
		require.NoError(t, err)
		assert.Greater(t, id2, id1)

		recs, err := b.ListInventoryRecords(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)

		byID := map[int64]int{}
		for i, r := range recs {
			byID[r.ID] = i
		}
		first := recs[byID[id1]]
		assert.Equal(t, "gadget", first.ProductName)
		assert.Equal(t, int64(10), first.Quantity)
		assert.True(t, first.UnitPrice.Equal(decimal.RequireFromString("2.5")), first.UnitPrice.String())
		assert.True(t, first.LastUpdated.Equal(ts), first.LastUpdated.String())

		second := recs[byID[id2]]
		assert.True(t, second.UnitPrice.Equal(decimal.RequireFromString("0.1")), second.UnitPrice.String())
	})

	t.Run("concurrent appends get distinct ids", func(t *testing.T) {
		b := newBackend(t)
		const n = 16
		var wg sync.WaitGroup
		ids := make([]int64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := b.AppendInventoryRecord(ctx, "bolt", 1, decimal.NewFromInt(1), time.Now())
				assert.NoError(t, err)
				ids[i] = id
			}(i)
		}
		wg.Wait()

		seen := map[int64]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		recs, err := b.ListInventoryRecords(ctx)
		require.NoError(t, err)
		assert.Len(t, recs, n)
	})
}
