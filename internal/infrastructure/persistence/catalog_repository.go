package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/matching"
	"recipe-costing/internal/pkg/common"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// CatalogRepository 以 SQLite 實作 catalog.Catalog
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository 創建目錄儲存庫
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Ping 檢查資料庫連線
func (r *CatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx 在交易中執行 fn，fn 返回錯誤時回滾
func (r *CatalogRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListSuppliers 依名稱排序列出供應商
func (r *CatalogRepository) ListSuppliers(ctx context.Context) ([]catalog.Supplier, error) {
	sb := supplierStruct.SelectFrom(suppliersTable)
	sb.OrderBy("name").Asc()
	query, args := sb.Build()

	var rows []supplierRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		common.LogError("Failed to list suppliers", zap.Error(err))
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	out := make([]catalog.Supplier, len(rows))
	for i := range rows {
		out[i] = *toSupplier(&rows[i])
	}
	return out, nil
}

// GetSupplier 取得單一供應商
func (r *CatalogRepository) GetSupplier(ctx context.Context, id string) (*catalog.Supplier, error) {
	return getSupplier(ctx, r.db, "id", id)
}

func getSupplier(ctx context.Context, q sqlx.QueryerContext, column, value string) (*catalog.Supplier, error) {
	sb := supplierStruct.SelectFrom(suppliersTable)
	sb.Where(sb.Equal(column, value))
	query, args := sb.Build()

	var row supplierRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", value, catalog.ErrSupplierNotFound)
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return toSupplier(&row), nil
}

// UpsertSupplierByName 依正規化名稱建立或觸碰供應商
func (r *CatalogRepository) UpsertSupplierByName(ctx context.Context, name string) (*catalog.Supplier, error) {
	name = strings.TrimSpace(name)
	key := matching.Normalize(name)
	if key == "" {
		return nil, catalog.ErrInvalidName
	}

	var out *catalog.Supplier
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		now := common.Now()
		existing, err := getSupplier(ctx, tx, "name_key", key)
		switch {
		case err == nil:
			ub := sqlbuilder.SQLite.NewUpdateBuilder()
			ub.Update(suppliersTable)
			ub.Set(ub.Assign("updated_at", formatTime(now)))
			ub.Where(ub.Equal("id", existing.ID))
			query, args := ub.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to touch supplier: %w", err)
			}
			existing.UpdatedAt = now
			out = existing
			return nil
		case !catalog.IsNotFound(err):
			return err
		}

		s := &catalog.Supplier{ID: common.GenerateUUID(), Name: name, CreatedAt: now, UpdatedAt: now}
		query, args := supplierStruct.InsertInto(suppliersTable, fromSupplier(s)).Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("supplier %q: %w", name, catalog.ErrConflict)
			}
			return fmt.Errorf("failed to create supplier: %w", err)
		}
		common.LogDebug("供應商已建立", zap.String("id", s.ID), zap.String("name", s.Name))
		out = s
		return nil
	})
	return out, err
}

// RenameSupplier 重新命名供應商，名稱鍵衝突時返回 ErrConflict
func (r *CatalogRepository) RenameSupplier(ctx context.Context, id, name string) (*catalog.Supplier, error) {
	name = strings.TrimSpace(name)
	key := matching.Normalize(name)
	if key == "" {
		return nil, catalog.ErrInvalidName
	}

	var out *catalog.Supplier
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		s, err := getSupplier(ctx, tx, "id", id)
		if err != nil {
			return err
		}
		s.Name = name
		s.UpdatedAt = common.Now()

		ub := supplierStruct.Update(suppliersTable, fromSupplier(s))
		ub.Where(ub.Equal("id", id))
		query, args := ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("supplier %q: %w", name, catalog.ErrConflict)
			}
			return fmt.Errorf("failed to rename supplier: %w", err)
		}
		out = s
		return nil
	})
	return out, err
}

// DeleteSupplier 刪除供應商，產品由外鍵串聯刪除
func (r *CatalogRepository) DeleteSupplier(ctx context.Context, id string) error {
	db := supplierStruct.DeleteFrom(suppliersTable)
	db.Where(db.Equal("id", id))
	query, args := db.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, catalog.ErrSupplierNotFound)
	}
	return nil
}

// ListSupplierProducts 依名稱排序列出供應商的產品
func (r *CatalogRepository) ListSupplierProducts(ctx context.Context, supplierID string) ([]catalog.SupplierProduct, error) {
	if _, err := getSupplier(ctx, r.db, "id", supplierID); err != nil {
		return nil, err
	}

	sb := productStruct.SelectFrom(productsTable)
	sb.Where(sb.Equal("supplier_id", supplierID))
	sb.OrderBy("name").Asc()
	query, args := sb.Build()

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		common.LogError("Failed to list supplier products", zap.String("supplier_id", supplierID), zap.Error(err))
		return nil, fmt.Errorf("failed to list supplier products: %w", err)
	}
	return toProducts(rows), nil
}

// findProduct 依 column = value 讀取供應商底下的產品，不存在時 found 為 false
func findProduct(ctx context.Context, q sqlx.QueryerContext, supplierID, column, value string) (*catalog.SupplierProduct, bool, error) {
	sb := productStruct.SelectFrom(productsTable)
	sb.Where(
		sb.Equal("supplier_id", supplierID),
		sb.Equal(column, value),
	)
	query, args := sb.Build()

	var row productRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get supplier product: %w", err)
	}
	return toProduct(&row), true, nil
}

// getProduct 讀取產品；供應商不存在時回報供應商不存在
func getProduct(ctx context.Context, q sqlx.QueryerContext, supplierID, productID string) (*catalog.SupplierProduct, error) {
	p, found, err := findProduct(ctx, q, supplierID, "id", productID)
	if err != nil {
		return nil, err
	}
	if found {
		return p, nil
	}
	if _, err := getSupplier(ctx, q, "id", supplierID); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", productID, catalog.ErrProductNotFound)
}

// UpsertSupplierProduct 依 (supplierID, 正規化名稱) 建立或部分更新產品
func (r *CatalogRepository) UpsertSupplierProduct(ctx context.Context, supplierID string, in catalog.ProductInput) (*catalog.SupplierProduct, error) {
	in.Name = strings.TrimSpace(in.Name)
	key := matching.Normalize(in.Name)
	if key == "" {
		return nil, catalog.ErrInvalidName
	}

	var out *catalog.SupplierProduct
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getSupplier(ctx, tx, "id", supplierID); err != nil {
			return err
		}
		now := common.Now()
		existing, found, err := findProduct(ctx, tx, supplierID, "name_key", key)
		if err != nil {
			return err
		}
		if found {
			in.MergeInto(existing)
			existing.UpdatedAt = now
			if err := updateProduct(ctx, tx, existing); err != nil {
				return err
			}
			out = existing
			return nil
		}

		p := &catalog.SupplierProduct{
			ID:         common.GenerateUUID(),
			SupplierID: supplierID,
			Name:       in.Name,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		in.MergeInto(p)
		query, args := productStruct.InsertInto(productsTable, fromProduct(p)).Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("product %q: %w", in.Name, catalog.ErrConflict)
			}
			return fmt.Errorf("failed to create supplier product: %w", err)
		}
		out = p
		return nil
	})
	return out, err
}

func updateProduct(ctx context.Context, tx *sqlx.Tx, p *catalog.SupplierProduct) error {
	ub := productStruct.Update(productsTable, fromProduct(p))
	ub.Where(ub.Equal("id", p.ID))
	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %q: %w", p.Name, catalog.ErrConflict)
		}
		return fmt.Errorf("failed to update supplier product: %w", err)
	}
	return nil
}

// UpdateSupplierProduct 覆寫產品單價與單位
func (r *CatalogRepository) UpdateSupplierProduct(ctx context.Context, supplierID, productID string, update catalog.PriceUpdate) (*catalog.SupplierProduct, error) {
	var out *catalog.SupplierProduct
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getProduct(ctx, tx, supplierID, productID)
		if err != nil {
			return err
		}
		p.UnitPrice = update.UnitPrice
		p.Unit = update.Unit
		p.UpdatedAt = common.Now()
		if err := updateProduct(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// RenameSupplierProduct 重新命名產品，同一供應商內名稱鍵衝突時返回 ErrConflict
func (r *CatalogRepository) RenameSupplierProduct(ctx context.Context, supplierID, productID, name string) (*catalog.SupplierProduct, error) {
	name = strings.TrimSpace(name)
	if matching.Normalize(name) == "" {
		return nil, catalog.ErrInvalidName
	}

	var out *catalog.SupplierProduct
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getProduct(ctx, tx, supplierID, productID)
		if err != nil {
			return err
		}
		p.Name = name
		p.UpdatedAt = common.Now()
		if err := updateProduct(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// DeleteSupplierProduct 刪除產品
func (r *CatalogRepository) DeleteSupplierProduct(ctx context.Context, supplierID, productID string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getProduct(ctx, tx, supplierID, productID); err != nil {
			return err
		}
		db := productStruct.DeleteFrom(productsTable)
		db.Where(
			db.Equal("id", productID),
			db.Equal("supplier_id", supplierID),
		)
		query, args := db.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete supplier product: %w", err)
		}
		return nil
	})
}
