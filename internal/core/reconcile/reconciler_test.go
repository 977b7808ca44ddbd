package reconcile

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/sheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64          { return &f }
func uptr(u catalog.Unit) *catalog.Unit { return &u }
func sptr(s string) *string             { return &s }

type productState struct {
	Supplier  string
	Name      string
	UnitPrice *float64
	Unit      *catalog.Unit
	Code      *string
}

// snapshot 以不含時間戳的形式列出目錄內容
func snapshot(t *testing.T, store catalog.Store) []productState {
	t.Helper()
	ctx := context.Background()

	suppliers, err := store.ListSuppliers(ctx)
	require.NoError(t, err)

	var out []productState
	for _, s := range suppliers {
		products, err := store.ListSupplierProducts(ctx, s.ID)
		require.NoError(t, err)
		if len(products) == 0 {
			out = append(out, productState{Supplier: s.Name})
		}
		for _, p := range products {
			out = append(out, productState{Supplier: s.Name, Name: p.Name, UnitPrice: p.UnitPrice, Unit: p.Unit, Code: p.SupplierCode})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Supplier != out[j].Supplier {
			return out[i].Supplier < out[j].Supplier
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func TestRun_HeaderScenario(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	report := sheet.ParseSupplierText("Fournisseur,Désignation,Prix unitaire,Unité\nBoucherie Martin,Filet de bœuf,\"32,50\",Kg\n")

	summary, err := New(store, AlwaysMerge()).Run(ctx, report.Rows)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Equal(t, 1, summary.ImportedCount)
	assert.Equal(t, 1, summary.SupplierCount)

	state := snapshot(t, store)
	require.Len(t, state, 1)
	assert.Equal(t, "Boucherie Martin", state[0].Supplier)
	assert.Equal(t, "Filet de bœuf", state[0].Name)
	assert.Equal(t, 32.5, *state[0].UnitPrice)
	assert.Equal(t, catalog.UnitKilogram, *state[0].Unit)
}

func TestRun_IdempotentWhenAlwaysMerging(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	text := "Fournisseur;Code fournisseur;Désignation;Prix;Unité\n" +
		"Boucherie Martin;BM-1;Filet de bœuf;32,50;kg\n" +
		"Boucherie Martin & Fils;BM-2;Filet de bœuf Charolais;41;kg\n" +
		"Épicerie Rossi;;Pomodori pelati;2,10;boite\n" +
		"EPICERIE ROSSI;;pomodori  PELATI;;\n" +
		"Cave Lambert;;Chablis;12,4;bouteille\n"
	rows := sheet.ParseSupplierText(text).Rows
	r := New(store, AlwaysMerge())

	first, err := r.Run(ctx, rows)
	require.NoError(t, err)
	afterFirst := snapshot(t, store)

	second, err := r.Run(ctx, rows)
	require.NoError(t, err)
	afterSecond := snapshot(t, store)

	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, 3, first.CreatedSuppliers)
	assert.Equal(t, 0, second.CreatedSuppliers)
	assert.Equal(t, 0, second.CreatedProducts)
	assert.Equal(t, first.ImportedCount, second.ImportedCount)

	suppliers, err := store.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Len(t, suppliers, 3)
}

func TestRun_ApplyToAllShortCircuitsSupplierPrompts(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	existing, err := store.UpsertSupplierByName(ctx, "Boucherie Martin")
	require.NoError(t, err)

	var prompts []Prompt
	decider := DeciderFunc(func(_ context.Context, p Prompt) (Decision, error) {
		prompts = append(prompts, p)
		return Decision{UseExisting: true, ApplyToAll: true}, nil
	})

	rows := []sheet.ImportRow{
		{Supplier: "Boucherie  Martin ", Product: "Bavette"},
		{Supplier: "Boucherie Martin & Fils", Product: "Onglet"},
		{Supplier: "Boucherie Martin Lyon", Product: "Paleron"},
		{Supplier: "Martin Boucherie Centrale", Product: "Joue"},
	}

	summary, err := New(store, decider).Run(ctx, rows)
	require.NoError(t, err)

	require.Len(t, prompts, 1)
	assert.Equal(t, ScopeSupplier, prompts[0].Scope)
	assert.Equal(t, "Boucherie Martin & Fils", prompts[0].Incoming)
	assert.Equal(t, existing.ID, prompts[0].ExistingID)
	assert.Len(t, summary.AppliedBatchNotes, 1)
	assert.Equal(t, 1, summary.Prompts)
	assert.Equal(t, 4, summary.ImportedCount)
	assert.Equal(t, 1, summary.SupplierCount)

	suppliers, err := store.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)

	products, err := store.ListSupplierProducts(ctx, existing.ID)
	require.NoError(t, err)
	assert.Len(t, products, 4)
}

func TestRun_PromptsEachTimeWithoutApplyToAll(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	_, err := store.UpsertSupplierByName(ctx, "Boucherie Martin")
	require.NoError(t, err)

	calls := 0
	decider := DeciderFunc(func(_ context.Context, p Prompt) (Decision, error) {
		calls++
		return Decision{UseExisting: false}, nil
	})

	rows := []sheet.ImportRow{
		{Supplier: "Boucherie Martin & Fils", Product: "Onglet"},
		{Supplier: "Boucherie Martin Lyon", Product: "Paleron"},
	}
	summary, err := New(store, decider).Run(ctx, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Empty(t, summary.AppliedBatchNotes)
	assert.Equal(t, 2, summary.CreatedSuppliers)
	assert.Equal(t, 2, summary.SupplierCount)
}

func TestRun_ProductPhaseScopedToSupplier(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	martin, _ := store.UpsertSupplierByName(ctx, "Boucherie Martin")
	_, _ = store.UpsertSupplierProduct(ctx, martin.ID, catalog.ProductInput{Name: "Filet de bœuf", UnitPrice: fptr(30), Unit: uptr(catalog.UnitKilogram)})
	lambert, _ := store.UpsertSupplierByName(ctx, "Cave Lambert")

	var prompts []Prompt
	decider := DeciderFunc(func(_ context.Context, p Prompt) (Decision, error) {
		prompts = append(prompts, p)
		return Decision{UseExisting: false}, nil
	})

	rows := []sheet.ImportRow{
		{Supplier: "Boucherie Martin", Product: "FILET  DE BŒUF", UnitPrice: fptr(32.5)},
		{Supplier: "Boucherie Martin", Product: "Filet de bœuf Wagyu", UnitPrice: fptr(120)},
		{Supplier: "Cave Lambert", Product: "Filet de bœuf", UnitPrice: fptr(1)},
	}
	summary, err := New(store, decider).Run(ctx, rows)
	require.NoError(t, err)

	require.Len(t, prompts, 1)
	assert.Equal(t, ScopeProduct, prompts[0].Scope)
	assert.Equal(t, "Boucherie Martin", prompts[0].SupplierName)
	assert.Equal(t, 2, summary.CreatedProducts)

	products, err := store.ListSupplierProducts(ctx, martin.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Filet de bœuf", products[0].Name)
	assert.Equal(t, 32.5, *products[0].UnitPrice)
	assert.Equal(t, catalog.UnitKilogram, *products[0].Unit)

	wine, err := store.ListSupplierProducts(ctx, lambert.ID)
	require.NoError(t, err)
	assert.Len(t, wine, 1)
}

func TestRun_ApplyToAllShortCircuitsProductPrompts(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	martin, err := store.UpsertSupplierByName(ctx, "Boucherie Martin")
	require.NoError(t, err)
	filet, err := store.UpsertSupplierProduct(ctx, martin.ID, catalog.ProductInput{Name: "Filet de bœuf", UnitPrice: fptr(30), Unit: uptr(catalog.UnitKilogram)})
	require.NoError(t, err)

	var prompts []Prompt
	decider := DeciderFunc(func(_ context.Context, p Prompt) (Decision, error) {
		prompts = append(prompts, p)
		return Decision{UseExisting: true, ApplyToAll: true}, nil
	})

	rows := []sheet.ImportRow{
		{Supplier: "Boucherie Martin", Product: "Filet de bœuf Wagyu", UnitPrice: fptr(120)},
		{Supplier: "Boucherie Martin", Product: "Filet de bœuf extra", UnitPrice: fptr(45)},
		{Supplier: "Boucherie Martin", Product: "Filet de bœuf paré", UnitPrice: fptr(38)},
	}
	summary, err := New(store, decider).Run(ctx, rows)
	require.NoError(t, err)

	require.Len(t, prompts, 1)
	assert.Equal(t, ScopeProduct, prompts[0].Scope)
	assert.Equal(t, filet.ID, prompts[0].ExistingID)
	assert.Equal(t, 1, summary.Prompts)
	require.Len(t, summary.AppliedBatchNotes, 1)
	assert.Contains(t, summary.AppliedBatchNotes[0], "Boucherie Martin")
	assert.Equal(t, 0, summary.CreatedProducts)
	assert.Equal(t, 3, summary.ImportedCount)

	products, err := store.ListSupplierProducts(ctx, martin.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Filet de bœuf", products[0].Name)
	assert.Equal(t, 38.0, *products[0].UnitPrice)
}

func TestRun_ProductApplyToAllIsPerSupplier(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	martin, _ := store.UpsertSupplierByName(ctx, "Boucherie Martin")
	_, _ = store.UpsertSupplierProduct(ctx, martin.ID, catalog.ProductInput{Name: "Filet de bœuf"})
	lambert, _ := store.UpsertSupplierByName(ctx, "Cave Lambert")
	_, _ = store.UpsertSupplierProduct(ctx, lambert.ID, catalog.ProductInput{Name: "Filet de bœuf"})

	var prompts []Prompt
	decider := DeciderFunc(func(_ context.Context, p Prompt) (Decision, error) {
		prompts = append(prompts, p)
		return Decision{UseExisting: true, ApplyToAll: true}, nil
	})

	rows := []sheet.ImportRow{
		{Supplier: "Boucherie Martin", Product: "Filet de bœuf Wagyu"},
		{Supplier: "Boucherie Martin", Product: "Filet de bœuf extra"},
		{Supplier: "Cave Lambert", Product: "Filet de bœuf Angus"},
		{Supplier: "Cave Lambert", Product: "Filet de bœuf paré"},
	}
	summary, err := New(store, decider).Run(ctx, rows)
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.Equal(t, "Boucherie Martin", prompts[0].SupplierName)
	assert.Equal(t, "Cave Lambert", prompts[1].SupplierName)
	assert.Len(t, summary.AppliedBatchNotes, 2)
	assert.Equal(t, 0, summary.CreatedProducts)
	assert.Equal(t, 4, summary.ImportedCount)
}

func TestRun_PartialUpdateKeepsStoredValues(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	s, _ := store.UpsertSupplierByName(ctx, "Primeurs du Sud")
	_, _ = store.UpsertSupplierProduct(ctx, s.ID, catalog.ProductInput{
		Name:         "Tomates grappe",
		SupplierCode: sptr("TG-01"),
		UnitPrice:    fptr(3.2),
		Unit:         uptr(catalog.UnitKilogram),
	})

	_, err := New(store, AlwaysMerge()).Run(ctx, []sheet.ImportRow{
		{Supplier: "Primeurs du Sud", Product: "Tomates grappe", SourcePrice: fptr(16), SourceUnit: uptr(catalog.UnitPiece)},
	})
	require.NoError(t, err)

	products, err := store.ListSupplierProducts(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "TG-01", *p.SupplierCode)
	assert.Equal(t, 3.2, *p.UnitPrice)
	assert.Equal(t, catalog.UnitKilogram, *p.Unit)
	assert.Equal(t, 16.0, *p.SourcePrice)
	assert.Equal(t, catalog.UnitPiece, *p.SourceUnit)
}

// failingStore 第 failAt 次產品寫入時失敗
type failingStore struct {
	*catalog.MemoryCatalog
	writes int
	failAt int
	err    error
}

func (f *failingStore) UpsertSupplierProduct(ctx context.Context, supplierID string, in catalog.ProductInput) (*catalog.SupplierProduct, error) {
	f.writes++
	if f.writes == f.failAt {
		return nil, f.err
	}
	return f.MemoryCatalog.UpsertSupplierProduct(ctx, supplierID, in)
}

func TestRun_AbortsOnWriteFailureWithoutRollback(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryCatalog: catalog.NewMemoryCatalog(), failAt: 2, err: catalog.ErrConflict}

	rows := []sheet.ImportRow{
		{Supplier: "Cave Lambert", Product: "Chablis"},
		{Supplier: "Cave Lambert", Product: "Sancerre"},
		{Supplier: "Cave Lambert", Product: "Pouilly"},
	}
	summary, err := New(store, AlwaysMerge()).Run(ctx, rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrConflict))

	require.NotNil(t, summary)
	assert.Equal(t, StatusFailed, summary.Status)
	assert.Equal(t, 1, summary.ImportedCount)
	assert.Contains(t, summary.FailureReason, "Sancerre")

	state := snapshot(t, store.MemoryCatalog)
	require.Len(t, state, 1)
	assert.Equal(t, "Chablis", state[0].Name)
}

func TestRun_DeciderErrorAborts(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	_, _ = store.UpsertSupplierByName(ctx, "Boucherie Martin")

	decider := DeciderFunc(func(context.Context, Prompt) (Decision, error) {
		return Decision{}, errors.New("stdin closed")
	})
	summary, err := New(store, decider).Run(ctx, []sheet.ImportRow{{Supplier: "Boucherie Martin Lyon", Product: "Onglet"}})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, summary.Status)
	assert.Equal(t, 0, summary.ImportedCount)
}

func TestRun_EmptyInput(t *testing.T) {
	summary, err := New(catalog.NewMemoryCatalog(), AlwaysMerge()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, summary.Status)
	assert.NotNil(t, summary.AppliedBatchNotes)
}

func TestDedup(t *testing.T) {
	rows := []sheet.ImportRow{
		{Supplier: "Cave Lambert", Product: "Chablis", UnitPrice: fptr(12)},
		{Supplier: "", Product: "Orphan"},
		{Supplier: "CAVE  lambert", Product: "chablis", UnitPrice: fptr(99), Unit: uptr(catalog.UnitPiece)},
		{Supplier: "Cave Lambert", Product: "Sancerre"},
	}

	out := Dedup(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "Cave Lambert", out[0].Supplier)
	assert.Equal(t, "Chablis", out[0].Product)
	assert.Equal(t, 12.0, *out[0].UnitPrice)
	assert.Equal(t, catalog.UnitPiece, *out[0].Unit)
}

func TestInteractiveDecider(t *testing.T) {
	ctx := context.Background()
	var out strings.Builder

	d := NewInteractiveDecider(strings.NewReader("maybe\nn\ny\n\n\n"), &out)
	first, err := d.Decide(ctx, Prompt{Scope: ScopeSupplier, Incoming: "Boucherie Martin Lyon", Existing: "Boucherie Martin"})
	require.NoError(t, err)
	assert.Equal(t, Decision{UseExisting: false, ApplyToAll: true}, first)
	assert.Contains(t, out.String(), "Please answer y or n.")

	second, err := d.Decide(ctx, Prompt{Scope: ScopeProduct, Incoming: "Onglet", Existing: "Onglet de bœuf"})
	require.NoError(t, err)
	assert.Equal(t, Decision{UseExisting: true, ApplyToAll: false}, second)

	_, err = d.Decide(ctx, Prompt{Scope: ScopeSupplier})
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("MERGE")
	require.NoError(t, err)
	assert.Equal(t, PolicyMerge, p)

	p, err = ParsePolicy("new")
	require.NoError(t, err)
	assert.Equal(t, PolicyCreate, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
