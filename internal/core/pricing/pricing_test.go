package pricing

import (
	"context"
	"testing"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64          { return &f }
func uptr(u catalog.Unit) *catalog.Unit { return &u }

// countingStore 記錄每個供應商產品清單被讀取的次數
type countingStore struct {
	*catalog.MemoryCatalog
	productLists map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryCatalog: catalog.NewMemoryCatalog(), productLists: map[string]int{}}
}

func (c *countingStore) ListSupplierProducts(ctx context.Context, supplierID string) ([]catalog.SupplierProduct, error) {
	c.productLists[supplierID]++
	return c.MemoryCatalog.ListSupplierProducts(ctx, supplierID)
}

func seed(t *testing.T, store catalog.Store, supplier string, products map[string]float64, unit catalog.Unit) (*catalog.Supplier, map[string]string) {
	t.Helper()
	ctx := context.Background()
	s, err := store.UpsertSupplierByName(ctx, supplier)
	require.NoError(t, err)
	ids := map[string]string{}
	for name, price := range products {
		p, err := store.UpsertSupplierProduct(ctx, s.ID, catalog.ProductInput{Name: name, UnitPrice: fptr(price), Unit: uptr(unit)})
		require.NoError(t, err)
		ids[name] = p.ID
	}
	return s, ids
}

func TestResolve_ProductIDWinsOverNameKey(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	s, ids := seed(t, store, "Laiterie Dupont", map[string]float64{"Beurre AOP": 3.5, "Beurre": 9}, catalog.UnitKilogram)

	line := fiche.IngredientLine{
		Name:              "Beurre",
		Qty:               "250 g",
		Supplier:          fiche.SupplierByID(s.ID, ""),
		SupplierProductID: ids["Beurre AOP"],
	}

	ix, err := BuildIndex(ctx, store, []fiche.IngredientLine{line})
	require.NoError(t, err)

	info, ok := ix.Resolve(line)
	require.True(t, ok)
	assert.Equal(t, 3.5, *info.UnitPrice)
	assert.Equal(t, catalog.UnitKilogram, *info.Unit)
}

func TestResolve_FallsThroughLevels(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	s, _ := seed(t, store, "Épicerie Rossi", map[string]float64{"Pomodori pelati": 2.1, "Crème fraîche": 4.8}, catalog.UnitKilogram)
	other, _ := seed(t, store, "Cave Lambert", map[string]float64{"Chablis": 12.4}, catalog.UnitPiece)

	lines := []fiche.IngredientLine{
		{Name: "pomodori PELATI", Supplier: fiche.SupplierByID(s.ID, ""), SupplierProductID: "stale-id"},
		{Name: "creme fraiche", Supplier: fiche.SupplierByName("epicerie rossi")},
		{Name: "Chablis", Supplier: fiche.SupplierByID(other.ID, "Cave Lambert")},
		{Name: "Chablis", Supplier: fiche.SupplierByName("Unknown")},
		{Name: "Chablis"},
	}

	ix, err := BuildIndex(ctx, store, lines)
	require.NoError(t, err)
	assert.Equal(t, 1, store.productLists[s.ID])
	assert.Equal(t, 1, store.productLists[other.ID])

	info, level := ix.ResolveLevel(lines[0])
	assert.Equal(t, LevelSupplierID, level)
	assert.Equal(t, 2.1, *info.UnitPrice)

	info, level = ix.ResolveLevel(lines[1])
	assert.Equal(t, LevelSupplierName, level)
	assert.Equal(t, 4.8, *info.UnitPrice)

	_, level = ix.ResolveLevel(lines[2])
	assert.Equal(t, LevelSupplierID, level)

	_, ok := ix.Resolve(lines[3])
	assert.False(t, ok)
	_, ok = ix.Resolve(lines[4])
	assert.False(t, ok)
}

func TestBuildIndex_NoSupplierReferencesSkipsStore(t *testing.T) {
	store := newCountingStore()
	ix, err := BuildIndex(context.Background(), store, []fiche.IngredientLine{{Name: "Sel", Qty: "1 pincée"}})
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, store.productLists)
}

func TestBuildIndex_UnknownSupplierIDIgnored(t *testing.T) {
	store := newCountingStore()
	ix, err := BuildIndex(context.Background(), store, []fiche.IngredientLine{{Name: "Sel", Supplier: fiche.SupplierByID("gone", "")}})
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input    string
		value    float64
		unit     *catalog.Unit
		parsable bool
	}{
		{"200 g", 200, uptr(catalog.UnitGram), true},
		{"1,5 kg", 1.5, uptr(catalog.UnitKilogram), true},
		{"3 pezzi", 3, uptr(catalog.UnitPiece), true},
		{"50cl", 50, uptr(catalog.UnitCentiliter), true},
		{"1 tbsp", 1, nil, true},
		{"environ 2 pz", 2, uptr(catalog.UnitPiece), true},
		{"q.b.", 0, nil, false},
		{"", 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, ok := ParseQuantity(tt.input)
			assert.Equal(t, tt.parsable, ok)
			if !tt.parsable {
				return
			}
			assert.Equal(t, tt.value, q.Value)
			assert.Equal(t, tt.unit, q.Unit)
		})
	}
}

func TestQuantityInPriceUnit(t *testing.T) {
	tests := []struct {
		name  string
		q     Quantity
		price catalog.Unit
		want  float64
		ok    bool
	}{
		{"g to kg", Quantity{200, uptr(catalog.UnitGram)}, catalog.UnitKilogram, 0.2, true},
		{"kg to g", Quantity{1.5, uptr(catalog.UnitKilogram)}, catalog.UnitGram, 1500, true},
		{"cl to l", Quantity{50, uptr(catalog.UnitCentiliter)}, catalog.UnitLiter, 0.5, true},
		{"l to ml", Quantity{2, uptr(catalog.UnitLiter)}, catalog.UnitMilliliter, 2000, true},
		{"ml to cl", Quantity{250, uptr(catalog.UnitMilliliter)}, catalog.UnitCentiliter, 25, true},
		{"bare count as piece", Quantity{3, nil}, catalog.UnitPiece, 3, true},
		{"mass to volume", Quantity{200, uptr(catalog.UnitGram)}, catalog.UnitLiter, 0, false},
		{"bare count to kg", Quantity{3, nil}, catalog.UnitKilogram, 0, false},
		{"grams to piece", Quantity{3, uptr(catalog.UnitGram)}, catalog.UnitPiece, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := QuantityInPriceUnit(tt.q, uptr(tt.price))
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, ok := QuantityInPriceUnit(Quantity{1, nil}, nil)
	assert.False(t, ok)
}

func TestCostHelpers(t *testing.T) {
	cost := IngredientCost(fiche.IngredientLine{Qty: "200 g"}, PriceInfo{UnitPrice: fptr(32.5), Unit: uptr(catalog.UnitKilogram)})
	require.NotNil(t, cost)
	assert.InDelta(t, 6.5, *cost, 1e-9)

	assert.Nil(t, IngredientCost(fiche.IngredientLine{Qty: "200 g"}, PriceInfo{UnitPrice: fptr(1)}))
	assert.Nil(t, FoodCost([]*float64{nil, nil}))

	total := FoodCost([]*float64{fptr(6.5), nil, fptr(3.5)})
	require.NotNil(t, total)
	assert.Equal(t, 10.0, *total)
	assert.Equal(t, 2.5, *PerPortion(total, 4))
	assert.Nil(t, PerPortion(total, 0))

	assert.Equal(t, "€ 12.50", FormatCurrency(12.5))
	assert.Equal(t, "€ 0.33", FormatCurrency(1.0/3))
}

func TestCostFiche_ManualFallback(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	s, _ := seed(t, store, "Boucherie Martin", map[string]float64{"Filet de bœuf": 32.5}, catalog.UnitKilogram)

	f := &fiche.Fiche{
		ID:       "f-1",
		Title:    "Tournedos",
		Portions: 5,
		Ingredients: []fiche.IngredientLine{
			{Name: "Filet de bœuf", Qty: "800 g", Supplier: fiche.SupplierByName("Boucherie Martin")},
			{Name: "Beurre", Qty: "50 g", UnitPrice: fptr(10), UnitPriceUnit: uptr(catalog.UnitKilogram)},
			{Name: "Sel", Qty: "q.b."},
		},
	}

	report, err := CostFiche(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, "f-1", report.FicheID)
	require.Len(t, report.Lines, 3)

	assert.Equal(t, SourceCatalog, report.Lines[0].Source)
	assert.InDelta(t, 26.0, *report.Lines[0].Cost, 1e-9)
	assert.Equal(t, SourceManual, report.Lines[1].Source)
	assert.InDelta(t, 0.5, *report.Lines[1].Cost, 1e-9)
	assert.Equal(t, SourceNone, report.Lines[2].Source)
	assert.Nil(t, report.Lines[2].Cost)

	assert.Equal(t, 2, report.Priced)
	assert.Equal(t, 1, report.Unpriced)
	assert.Equal(t, "€ 26.50", report.TotalLabel)
	assert.Equal(t, "€ 5.30", report.PerPortionLabel)
	assert.Equal(t, 1, store.productLists[s.ID])
}

func TestLinkIngredients(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	s, ids := seed(t, store, "Boucherie Martin", map[string]float64{"Filet de bœuf": 32.5, "Onglet": 21}, catalog.UnitKilogram)

	lines := []fiche.IngredientLine{
		{Name: "filet de BŒUF", Supplier: fiche.SupplierByName("boucherie martin")},
		{Name: "Onglet", Supplier: fiche.SupplierByID(s.ID, "")},
		{Name: "Bavette", Supplier: fiche.SupplierByName("Boucherie Martin")},
		{Name: "Onglet", Supplier: fiche.SupplierByName("Inconnu")},
		{Name: "Onglet"},
	}

	out, linked, err := LinkIngredients(ctx, store, lines)
	require.NoError(t, err)
	assert.Equal(t, 2, linked)
	assert.Equal(t, 1, store.productLists[s.ID])

	id, ok := out[0].Supplier.ID()
	require.True(t, ok)
	assert.Equal(t, s.ID, id)
	assert.Equal(t, "Boucherie Martin", out[0].Supplier.Label())
	assert.Equal(t, ids["Filet de bœuf"], out[0].SupplierProductID)
	assert.Equal(t, ids["Onglet"], out[1].SupplierProductID)
	assert.Empty(t, out[2].SupplierProductID)
	assert.Equal(t, fiche.RefByName, out[3].Supplier.Kind())

	// 原切片不變
	assert.Equal(t, fiche.RefByName, lines[0].Supplier.Kind())
}
