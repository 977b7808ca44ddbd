package catalogclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-costing/internal/api/handlers/supplier"
	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/reconcile"
	"recipe-costing/internal/core/sheet"
	"recipe-costing/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogServer(t *testing.T) (*httptest.Server, *catalog.MemoryCatalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := catalog.NewMemoryCatalog()
	router := gin.New()
	supplier.NewHandler(store).RegisterRoutes(router.Group("/api/v1"))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestClient_UpsertFlow(t *testing.T) {
	ctx := context.Background()
	srv, store := newCatalogServer(t)
	client := New(srv.URL+"/", time.Second)

	s, err := client.UpsertSupplierByName(ctx, "Boucherie Martin")
	require.NoError(t, err)
	again, err := client.UpsertSupplierByName(ctx, "BOUCHERIE MARTIN")
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)

	price, unit := 18.5, catalog.UnitKilogram
	p, err := client.UpsertSupplierProduct(ctx, s.ID, catalog.ProductInput{Name: "Paleron", UnitPrice: &price, Unit: &unit})
	require.NoError(t, err)
	assert.Equal(t, s.ID, p.SupplierID)

	products, err := client.ListSupplierProducts(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Paleron", products[0].Name)

	local, err := store.ListSupplierProducts(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, local, 1)
}

func TestClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	srv, _ := newCatalogServer(t)
	client := New(srv.URL, time.Second)

	_, err := client.ListSupplierProducts(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.ErrorIs(t, err, catalog.ErrSupplierNotFound)

	_, err = client.UpsertSupplierProduct(ctx, "missing", catalog.ProductInput{Name: "Paleron"})
	assert.True(t, catalog.IsNotFound(err))

	_, err = client.UpsertSupplierByName(ctx, "   ")
	assert.ErrorIs(t, err, catalog.ErrInvalidName)
}

func TestClient_ProductNotFoundCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"PRODUCT_NOT_FOUND","message":"產品不存在"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ListSupplierProducts(context.Background(), "s-1")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.NotErrorIs(t, err, catalog.ErrSupplierNotFound)
	assert.True(t, catalog.IsNotFound(err))
}

func TestClient_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	client := New(slow.URL, 20*time.Millisecond)
	_, err := client.ListSuppliers(context.Background())
	assert.ErrorIs(t, err, common.ErrGatewayTimeout)
}

func TestClient_DrivesReconcile(t *testing.T) {
	ctx := context.Background()
	srv, store := newCatalogServer(t)
	client := New(srv.URL, time.Second)

	report := sheet.ParseSupplierText("Fournisseur;Désignation;Prix;Unité\n" +
		"Boucherie Martin;Paleron;18,50;kg\n" +
		"Primeurs du Sud;Échalotes;4,20;kg\n")
	summary, err := reconcile.New(client, reconcile.AlwaysMerge(), reconcile.WithSource("remote")).Run(ctx, report.Rows)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ImportedCount)
	assert.Equal(t, 2, summary.SupplierCount)

	suppliers, err := store.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Len(t, suppliers, 2)
}
