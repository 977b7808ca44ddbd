package catalog

import (
	"context"

	"recipe-costing/internal/core/matching"
)

// Store 匯入與價格解析所需的最小目錄介面
type Store interface {
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	// UpsertSupplierByName 依正規化名稱建立或觸碰供應商
	UpsertSupplierByName(ctx context.Context, name string) (*Supplier, error)
	ListSupplierProducts(ctx context.Context, supplierID string) ([]SupplierProduct, error)
	// UpsertSupplierProduct 依 (supplierID, 正規化名稱) 建立或部分更新產品
	UpsertSupplierProduct(ctx context.Context, supplierID string, in ProductInput) (*SupplierProduct, error)
}

// Catalog 完整的目錄管理介面
type Catalog interface {
	Store
	GetSupplier(ctx context.Context, id string) (*Supplier, error)
	RenameSupplier(ctx context.Context, id, name string) (*Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error
	UpdateSupplierProduct(ctx context.Context, supplierID, productID string, update PriceUpdate) (*SupplierProduct, error)
	RenameSupplierProduct(ctx context.Context, supplierID, productID, name string) (*SupplierProduct, error)
	DeleteSupplierProduct(ctx context.Context, supplierID, productID string) error
}

// FindSupplierByName 以正規化名稱在清單中尋找供應商
func FindSupplierByName(suppliers []Supplier, name string) (*Supplier, bool) {
	key := matching.Normalize(name)
	if key == "" {
		return nil, false
	}
	for i := range suppliers {
		if matching.Normalize(suppliers[i].Name) == key {
			return &suppliers[i], true
		}
	}
	return nil, false
}

// FindSupplierByID 在清單中尋找指定 ID 的供應商
func FindSupplierByID(suppliers []Supplier, id string) (*Supplier, bool) {
	for i := range suppliers {
		if suppliers[i].ID == id {
			return &suppliers[i], true
		}
	}
	return nil, false
}

// FindProductByName 以正規化名稱在清單中尋找產品
func FindProductByName(products []SupplierProduct, name string) (*SupplierProduct, bool) {
	key := matching.Normalize(name)
	if key == "" {
		return nil, false
	}
	for i := range products {
		if matching.Normalize(products[i].Name) == key {
			return &products[i], true
		}
	}
	return nil, false
}
