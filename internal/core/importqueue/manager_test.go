package importqueue

import (
	"context"
	"testing"
	"time"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/reconcile"
	"recipe-costing/internal/core/sheet"
	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows() []sheet.ImportRow {
	return []sheet.ImportRow{
		{Supplier: "Boucherie Martin Lyon", Product: "Paleron"},
	}
}

func TestManager_SubmitRunsImport(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	m := NewManager(config.ImportConfig{QueueWorkers: 1, QueueMaxSize: 2, Timeout: time.Second}, store)
	defer m.Close()

	summary, err := m.Submit(ctx, []sheet.ImportRow{
		{Supplier: "Boucherie Martin", Product: "Paleron"},
		{Supplier: "Boucherie Martin", Product: "Bavette"},
	}, reconcile.AlwaysMerge(), "test")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.ImportedCount)
	assert.Equal(t, reconcile.StatusCompleted, summary.Status)

	status := m.GetQueueStatus()
	assert.Equal(t, 1, status.ProcessedCount)
	assert.Equal(t, 2, status.MaxQueueSize)
	assert.Equal(t, 1, status.Workers)
}

func TestManager_QueueFull(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	_, err := store.UpsertSupplierByName(ctx, "Boucherie Martin")
	require.NoError(t, err)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := reconcile.DeciderFunc(func(ctx context.Context, p reconcile.Prompt) (reconcile.Decision, error) {
		started <- struct{}{}
		<-release
		return reconcile.Decision{UseExisting: true}, nil
	})

	m := NewManager(config.ImportConfig{QueueWorkers: 1, QueueMaxSize: 1}, store)

	first, err := m.Enqueue(ctx, rows(), blocking, "first")
	require.NoError(t, err)
	<-started

	second, err := m.Enqueue(ctx, rows(), reconcile.AlwaysMerge(), "second")
	require.NoError(t, err)

	_, err = m.Enqueue(ctx, rows(), reconcile.AlwaysMerge(), "third")
	assert.ErrorIs(t, err, common.ErrImportQueueFull)

	close(release)
	r := <-first
	require.NoError(t, r.Error)
	assert.Equal(t, 1, r.Summary.ImportedCount)
	r = <-second
	require.NoError(t, r.Error)

	m.Close()
	_, err = m.Enqueue(ctx, rows(), reconcile.AlwaysMerge(), "late")
	assert.ErrorIs(t, err, ErrClosed)
	m.Close()
}

func TestManager_CancelledSubmit(t *testing.T) {
	store := catalog.NewMemoryCatalog()
	m := NewManager(config.ImportConfig{QueueWorkers: 1, QueueMaxSize: 1}, store)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Submit(ctx, rows(), reconcile.AlwaysMerge(), "cancelled")
	assert.ErrorIs(t, err, context.Canceled)

	suppliers, err := store.ListSuppliers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, suppliers)
}
