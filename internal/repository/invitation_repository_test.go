package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationRepoCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepo(t.TempDir())

	a, err := repo.Create(ctx, "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "Grace Hopper", "grace@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Scanned)
	assert.Nil(t, a.ScannedAt)
	assert.False(t, a.CreatedAt.IsZero())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", got.Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitationRepoPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inv, err := NewInvitationRepo(dir).Create(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	got, err := NewInvitationRepo(dir).GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Name, got.Name)
	assert.True(t, inv.CreatedAt.Equal(got.CreatedAt))
}

func TestInvitationRepoMarkScanned(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepo(t.TempDir())
	inv, err := repo.Create(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	first, err := repo.MarkScanned(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, first.Scanned)
	require.NotNil(t, first.ScannedAt)

	second, err := repo.MarkScanned(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, second.Scanned)
	require.NotNil(t, second.ScannedAt)
	assert.True(t, first.ScannedAt.Equal(*second.ScannedAt), "a refused scan must not move scannedAt")

	_, err = repo.MarkScanned(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitationRepoSetScannedClears(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepo(t.TempDir())
	inv, err := repo.Create(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)
	_, err = repo.MarkScanned(ctx, inv.ID)
	require.NoError(t, err)

	cleared, err := repo.SetScanned(ctx, inv.ID, false)
	require.NoError(t, err)
	assert.False(t, cleared.Scanned)
	assert.Nil(t, cleared.ScannedAt)

	// Once cleared the invitation can be admitted again.
	_, err = repo.MarkScanned(ctx, inv.ID)
	require.NoError(t, err)

	_, err = repo.SetScanned(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitationRepoDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepo(t.TempDir())
	inv, err := repo.Create(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, inv.ID))
	_, err = repo.GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, inv.ID), "deleting an absent id is a no-op")
}

func TestInvitationRepoConcurrentScansAdmitOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepo(t.TempDir())
	inv, err := repo.Create(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkScanned(ctx, inv.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case assert.ErrorIs(t, err, ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, workers-1, conflicts)
}
