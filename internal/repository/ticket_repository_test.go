package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/guest-pass/internal/model"
)

func numbers(ts []model.Ticket) []int {
	out := make([]int, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Number)
	}
	return out
}

func TestTicketRepoSeedsOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewTicketRepo(dir, 5)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers(all))
	for _, tk := range all {
		assert.False(t, tk.Sold)
		assert.False(t, tk.Scanned)
		assert.Nil(t, tk.BuyerName)
	}
	_, err = os.Stat(filepath.Join(dir, "tickets.json"))
	require.NoError(t, err)

	// An existing file is never re-seeded.
	again, err := NewTicketRepo(dir, 50).List(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 5)
}

func TestTicketRepoCreateBatchNumbering(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 0)

	first, err := repo.CreateBatch(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers(first))

	// A gap in the middle does not get refilled.
	require.NoError(t, repo.Delete(ctx, first[1].ID))
	second, err := repo.CreateBatch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, numbers(second))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 5}, numbers(all))
}

func TestTicketRepoGetByNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 3)

	tk, err := repo.GetByNumber(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, tk.Number)

	byID, err := repo.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk, byID)

	_, err = repo.GetByNumber(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketRepoInitializeReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 10)
	old, err := repo.List(ctx)
	require.NoError(t, err)

	fresh, err := repo.Initialize(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, numbers(fresh))

	_, err = repo.GetByID(ctx, old[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTicketRepoSellAndReset(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 1)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	id := all[0].ID

	sold, err := repo.Sell(ctx, id, "Ada", "ada@example.com")
	require.NoError(t, err)
	assert.True(t, sold.Sold)
	require.NotNil(t, sold.SoldAt)
	assert.Equal(t, "Ada", sold.Buyer())

	again, err := repo.Sell(ctx, id, "Grace", "grace@example.com")
	assert.ErrorIs(t, err, ErrAlreadySold)
	assert.Equal(t, "Ada", again.Buyer())

	_, err = repo.MarkScanned(ctx, id, true)
	require.NoError(t, err)

	reset, err := repo.Reset(ctx, id)
	require.NoError(t, err)
	assert.False(t, reset.Sold)
	assert.False(t, reset.Scanned)
	assert.Nil(t, reset.SoldAt)
	assert.Nil(t, reset.ScannedAt)
	assert.Nil(t, reset.BuyerName)
	assert.Nil(t, reset.BuyerEmail)
	assert.Equal(t, 1, reset.Number)

	_, err = repo.Reset(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketRepoMarkScanned(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 2)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	unsold, other := all[0].ID, all[1].ID

	got, err := repo.MarkScanned(ctx, unsold, true)
	assert.ErrorIs(t, err, ErrNotSold)
	assert.False(t, got.Scanned)
	assert.Equal(t, unsold, got.ID)

	// Without the sold requirement any ticket can be scanned.
	_, err = repo.MarkScanned(ctx, other, false)
	require.NoError(t, err)
	_, err = repo.MarkScanned(ctx, other, false)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.Sell(ctx, unsold, "Ada", "ada@example.com")
	require.NoError(t, err)
	got, err = repo.MarkScanned(ctx, unsold, true)
	require.NoError(t, err)
	assert.True(t, got.Scanned)
	require.NotNil(t, got.ScannedAt)

	_, err = repo.MarkScanned(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketRepoNotSoldWinsOverScanned(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 1)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	_, err = repo.SetScanned(ctx, all[0].ID, true)
	require.NoError(t, err)

	_, err = repo.MarkScanned(ctx, all[0].ID, true)
	assert.ErrorIs(t, err, ErrNotSold)
}

func TestTicketRepoConcurrentBatchesNeverShareNumbers(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 0)

	const workers, per = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateBatch(ctx, per)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	got := numbers(all)
	sort.Ints(got)
	want := make([]int, workers*per)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, got)
}

func TestTicketRepoConcurrentScansAdmitOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepo(t.TempDir(), 1)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	id := all[0].ID
	_, err = repo.Sell(ctx, id, "Ada", "ada@example.com")
	require.NoError(t, err)

	const workers = 16
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkScanned(ctx, id, true)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for err := range results {
		if err == nil {
			admitted++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, admitted)
}
