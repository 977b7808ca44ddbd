package cache

import (
	"context"
	"errors"
	"sync"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/pkg/common"

	"go.uber.org/zap"
)

// CachedCatalog 在目錄外層快取供應商與產品清單，任何寫入都會使相關鍵失效
type CachedCatalog struct {
	catalog.Catalog
	cache  Cache
	prefix string

	// mu 保護 gen；失效與回寫在同一把鎖內完成
	mu  sync.Mutex
	gen uint64
}

// NewCachedCatalog 創建帶快取的目錄；cache 為 nil 時直接返回原目錄
func NewCachedCatalog(inner catalog.Catalog, c Cache, prefix string) catalog.Catalog {
	if c == nil {
		return inner
	}
	return &CachedCatalog{Catalog: inner, cache: c, prefix: prefix}
}

func (c *CachedCatalog) suppliersKey() string {
	return c.prefix + "suppliers"
}

func (c *CachedCatalog) productsKey(supplierID string) string {
	return c.prefix + "products:" + supplierID
}

// load 先讀快取，未命中時以 fetch 讀取並回寫；快取錯誤只記錄，不影響結果。
// fetch 期間若發生失效則不回寫舊清單。
// 只涵蓋本程序內的寫入，多個實例共用 Redis 時仍依賴 TTL 收斂。
func load[T any](ctx context.Context, c *CachedCatalog, key string, fetch func() (T, error)) (T, error) {
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var cached T
		if err := common.ParseJSON(raw, &cached); err == nil {
			return cached, nil
		}
		common.LogWarn("快取內容無法解析", zap.String("鍵", key))
	} else if !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("讀取快取失敗", zap.String("鍵", key), zap.Error(err))
	}

	c.mu.Lock()
	start := c.gen
	c.mu.Unlock()

	value, err := fetch()
	if err != nil {
		return value, err
	}

	raw, err := common.ToJSON(value)
	if err != nil {
		return value, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != start {
		common.LogDebug("讀取期間快取已失效，略過回寫", zap.String("鍵", key))
		return value, nil
	}
	if err := c.cache.Set(ctx, key, raw); err != nil {
		common.LogWarn("寫入快取失敗", zap.String("鍵", key), zap.Error(err))
	}
	return value, nil
}

func (c *CachedCatalog) invalidate(ctx context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if err := c.cache.Delete(ctx, keys...); err != nil {
		common.LogWarn("清除快取失敗", zap.Strings("鍵", keys), zap.Error(err))
	}
}

// ListSuppliers 讀取供應商清單（快取）
func (c *CachedCatalog) ListSuppliers(ctx context.Context) ([]catalog.Supplier, error) {
	return load(ctx, c, c.suppliersKey(), func() ([]catalog.Supplier, error) {
		return c.Catalog.ListSuppliers(ctx)
	})
}

// ListSupplierProducts 讀取產品清單（快取）
func (c *CachedCatalog) ListSupplierProducts(ctx context.Context, supplierID string) ([]catalog.SupplierProduct, error) {
	return load(ctx, c, c.productsKey(supplierID), func() ([]catalog.SupplierProduct, error) {
		return c.Catalog.ListSupplierProducts(ctx, supplierID)
	})
}

// UpsertSupplierByName 寫入供應商並使清單失效
func (c *CachedCatalog) UpsertSupplierByName(ctx context.Context, name string) (*catalog.Supplier, error) {
	s, err := c.Catalog.UpsertSupplierByName(ctx, name)
	if err == nil {
		c.invalidate(ctx, c.suppliersKey())
	}
	return s, err
}

// RenameSupplier 重新命名供應商並使清單失效
func (c *CachedCatalog) RenameSupplier(ctx context.Context, id, name string) (*catalog.Supplier, error) {
	s, err := c.Catalog.RenameSupplier(ctx, id, name)
	if err == nil {
		c.invalidate(ctx, c.suppliersKey())
	}
	return s, err
}

// DeleteSupplier 刪除供應商並使相關快取失效
func (c *CachedCatalog) DeleteSupplier(ctx context.Context, id string) error {
	err := c.Catalog.DeleteSupplier(ctx, id)
	if err == nil {
		c.invalidate(ctx, c.suppliersKey(), c.productsKey(id))
	}
	return err
}

// UpsertSupplierProduct 寫入產品並使該供應商的產品清單失效
func (c *CachedCatalog) UpsertSupplierProduct(ctx context.Context, supplierID string, in catalog.ProductInput) (*catalog.SupplierProduct, error) {
	p, err := c.Catalog.UpsertSupplierProduct(ctx, supplierID, in)
	if err == nil {
		c.invalidate(ctx, c.productsKey(supplierID))
	}
	return p, err
}

// UpdateSupplierProduct 更新產品價格並使產品清單失效
func (c *CachedCatalog) UpdateSupplierProduct(ctx context.Context, supplierID, productID string, update catalog.PriceUpdate) (*catalog.SupplierProduct, error) {
	p, err := c.Catalog.UpdateSupplierProduct(ctx, supplierID, productID, update)
	if err == nil {
		c.invalidate(ctx, c.productsKey(supplierID))
	}
	return p, err
}

// RenameSupplierProduct 重新命名產品並使產品清單失效
func (c *CachedCatalog) RenameSupplierProduct(ctx context.Context, supplierID, productID, name string) (*catalog.SupplierProduct, error) {
	p, err := c.Catalog.RenameSupplierProduct(ctx, supplierID, productID, name)
	if err == nil {
		c.invalidate(ctx, c.productsKey(supplierID))
	}
	return p, err
}

// DeleteSupplierProduct 刪除產品並使產品清單失效
func (c *CachedCatalog) DeleteSupplierProduct(ctx context.Context, supplierID, productID string) error {
	err := c.Catalog.DeleteSupplierProduct(ctx, supplierID, productID)
	if err == nil {
		c.invalidate(ctx, c.productsKey(supplierID))
	}
	return err
}

// Stats 返回快取統計
func (c *CachedCatalog) Stats() map[string]interface{} {
	return c.cache.GetStats()
}
