package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"recipe-costing/internal/core/matching"
	"recipe-costing/internal/pkg/common"
)

// MemoryCatalog 以記憶體保存的目錄，用於測試與無資料庫的 CLI 模式
type MemoryCatalog struct {
	mu        sync.RWMutex
	suppliers map[string]Supplier
	products  map[string][]SupplierProduct // supplierID -> products
}

// NewMemoryCatalog 創建空的記憶體目錄
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		suppliers: make(map[string]Supplier),
		products:  make(map[string][]SupplierProduct),
	}
}

// ListSuppliers 依名稱排序列出供應商
func (m *MemoryCatalog) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetSupplier 取得單一供應商
func (m *MemoryCatalog) GetSupplier(ctx context.Context, id string) (*Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSupplierNotFound)
	}
	return &s, nil
}

// UpsertSupplierByName 依正規化名稱建立或觸碰供應商
func (m *MemoryCatalog) UpsertSupplierByName(ctx context.Context, name string) (*Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	key := matching.Normalize(name)
	if key == "" {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := common.Now()
	for id, s := range m.suppliers {
		if matching.Normalize(s.Name) == key {
			s.UpdatedAt = now
			m.suppliers[id] = s
			return &s, nil
		}
	}

	s := Supplier{ID: common.GenerateUUID(), Name: name, CreatedAt: now, UpdatedAt: now}
	m.suppliers[s.ID] = s
	return &s, nil
}

// RenameSupplier 重新命名供應商，名稱鍵衝突時返回 ErrConflict
func (m *MemoryCatalog) RenameSupplier(ctx context.Context, id, name string) (*Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	key := matching.Normalize(name)
	if key == "" {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSupplierNotFound)
	}
	for otherID, other := range m.suppliers {
		if otherID != id && matching.Normalize(other.Name) == key {
			return nil, fmt.Errorf("supplier %q: %w", name, ErrConflict)
		}
	}
	s.Name = name
	s.UpdatedAt = common.Now()
	m.suppliers[id] = s
	return &s, nil
}

// DeleteSupplier 刪除供應商及其產品
func (m *MemoryCatalog) DeleteSupplier(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.suppliers[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrSupplierNotFound)
	}
	delete(m.suppliers, id)
	delete(m.products, id)
	return nil
}

// ListSupplierProducts 依名稱排序列出供應商的產品
func (m *MemoryCatalog) ListSupplierProducts(ctx context.Context, supplierID string) ([]SupplierProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.suppliers[supplierID]; !ok {
		return nil, fmt.Errorf("%s: %w", supplierID, ErrSupplierNotFound)
	}
	out := make([]SupplierProduct, 0, len(m.products[supplierID]))
	for _, p := range m.products[supplierID] {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpsertSupplierProduct 依 (supplierID, 正規化名稱) 建立或部分更新產品
func (m *MemoryCatalog) UpsertSupplierProduct(ctx context.Context, supplierID string, in ProductInput) (*SupplierProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	key := matching.Normalize(in.Name)
	if key == "" {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.suppliers[supplierID]; !ok {
		return nil, fmt.Errorf("%s: %w", supplierID, ErrSupplierNotFound)
	}

	now := common.Now()
	products := m.products[supplierID]
	for i := range products {
		if matching.Normalize(products[i].Name) == key {
			in.MergeInto(&products[i])
			products[i].UpdatedAt = now
			p := products[i].Clone()
			return &p, nil
		}
	}

	p := SupplierProduct{
		ID:         common.GenerateUUID(),
		SupplierID: supplierID,
		Name:       in.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.MergeInto(&p)
	m.products[supplierID] = append(products, p)
	out := p.Clone()
	return &out, nil
}

// UpdateSupplierProduct 覆寫產品單價與單位
func (m *MemoryCatalog) UpdateSupplierProduct(ctx context.Context, supplierID, productID string, update PriceUpdate) (*SupplierProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.productLocked(supplierID, productID)
	if err != nil {
		return nil, err
	}
	p.UnitPrice = clonePtr(update.UnitPrice)
	p.Unit = clonePtr(update.Unit)
	p.UpdatedAt = common.Now()
	out := p.Clone()
	return &out, nil
}

// RenameSupplierProduct 重新命名產品，同一供應商內名稱鍵衝突時返回 ErrConflict
func (m *MemoryCatalog) RenameSupplierProduct(ctx context.Context, supplierID, productID, name string) (*SupplierProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	key := matching.Normalize(name)
	if key == "" {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.productLocked(supplierID, productID)
	if err != nil {
		return nil, err
	}
	for _, other := range m.products[supplierID] {
		if other.ID != productID && matching.Normalize(other.Name) == key {
			return nil, fmt.Errorf("product %q: %w", name, ErrConflict)
		}
	}
	p.Name = name
	p.UpdatedAt = common.Now()
	out := p.Clone()
	return &out, nil
}

// DeleteSupplierProduct 刪除產品
func (m *MemoryCatalog) DeleteSupplierProduct(ctx context.Context, supplierID, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	products := m.products[supplierID]
	for i := range products {
		if products[i].ID == productID {
			m.products[supplierID] = append(products[:i], products[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", productID, ErrProductNotFound)
}

func (m *MemoryCatalog) productLocked(supplierID, productID string) (*SupplierProduct, error) {
	if _, ok := m.suppliers[supplierID]; !ok {
		return nil, fmt.Errorf("%s: %w", supplierID, ErrSupplierNotFound)
	}
	products := m.products[supplierID]
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", productID, ErrProductNotFound)
}
