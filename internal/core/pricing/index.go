// Package pricing 為食材行解析目錄價格並計算成本。
package pricing

import (
	"context"
	"fmt"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
	"recipe-costing/internal/core/matching"
	"recipe-costing/internal/pkg/metrics"
)

// PriceInfo 目錄中的單價與單位
type PriceInfo struct {
	UnitPrice *float64      `json:"unitPrice"`
	Unit      *catalog.Unit `json:"unit"`
}

// Level 價格由哪一層查找得到
type Level string

const (
	LevelProductID    Level = "product_id"
	LevelSupplierID   Level = "supplier_id"
	LevelSupplierName Level = "supplier_name"
	LevelNone         Level = "none"
)

// Index 一組食材行的價格查找表，建立後不再存取目錄
type Index struct {
	byProductID map[string]PriceInfo
	byKey       map[string]PriceInfo // "供應商ID或正規化名稱::正規化產品名稱"
}

// EmptyIndex 空查找表
func EmptyIndex() *Index {
	return &Index{
		byProductID: make(map[string]PriceInfo),
		byKey:       make(map[string]PriceInfo),
	}
}

// Len 返回產品數量
func (ix *Index) Len() int { return len(ix.byProductID) }

// BuildIndex 依食材行引用的供應商建立查找表。
//
// 以 ID 參照的供應商直接使用；以名稱參照的供應商以正規化名稱精確比對目錄。
// 每個供應商的產品清單只讀取一次，並同時以 ID 鍵與名稱鍵登錄。
func BuildIndex(ctx context.Context, store catalog.Store, lines []fiche.IngredientLine) (*Index, error) {
	ix := EmptyIndex()

	var ids []string
	seen := make(map[string]bool)
	addID := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var names []string
	for _, line := range lines {
		if id, ok := line.Supplier.ID(); ok {
			addID(id)
		} else if name, ok := line.Supplier.Name(); ok {
			names = append(names, name)
		}
	}
	if len(ids) == 0 && len(names) == 0 {
		return ix, nil
	}

	suppliers, err := store.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	for _, name := range names {
		if s, ok := catalog.FindSupplierByName(suppliers, name); ok {
			addID(s.ID)
		}
	}

	for _, id := range ids {
		products, err := store.ListSupplierProducts(ctx, id)
		if err != nil {
			if catalog.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("list products of supplier %s: %w", id, err)
		}

		supplier, hasSupplier := catalog.FindSupplierByID(suppliers, id)
		for _, p := range products {
			info := PriceInfo{UnitPrice: p.UnitPrice, Unit: p.Unit}
			productKey := matching.Normalize(p.Name)
			ix.byProductID[p.ID] = info
			ix.byKey[matching.CompositeKey(id, productKey)] = info
			if hasSupplier {
				ix.byKey[matching.CompositeKey(matching.Normalize(supplier.Name), productKey)] = info
			}
		}
	}

	return ix, nil
}

// Resolve 依優先順序查找食材行的價格：產品 ID、供應商 ID + 名稱、供應商名稱 + 名稱。
// 查無價格時返回 false，不會返回錯誤
func (ix *Index) Resolve(line fiche.IngredientLine) (PriceInfo, bool) {
	info, level := ix.lookup(line)
	metrics.RecordPriceResolution(string(level))
	return info, level != LevelNone
}

// ResolveLevel 與 Resolve 相同，並返回命中的層級
func (ix *Index) ResolveLevel(line fiche.IngredientLine) (PriceInfo, Level) {
	info, level := ix.lookup(line)
	metrics.RecordPriceResolution(string(level))
	return info, level
}

func (ix *Index) lookup(line fiche.IngredientLine) (PriceInfo, Level) {
	if line.SupplierProductID != "" {
		if info, ok := ix.byProductID[line.SupplierProductID]; ok {
			return info, LevelProductID
		}
	}

	productKey := matching.Normalize(line.Name)
	switch line.Supplier.Kind() {
	case fiche.RefByID:
		id, _ := line.Supplier.ID()
		if info, ok := ix.byKey[matching.CompositeKey(id, productKey)]; ok {
			return info, LevelSupplierID
		}
	case fiche.RefByName:
		name, _ := line.Supplier.Name()
		if info, ok := ix.byKey[matching.CompositeKey(matching.Normalize(name), productKey)]; ok {
			return info, LevelSupplierName
		}
	}
	return PriceInfo{}, LevelNone
}
