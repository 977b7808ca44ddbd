package pricing

import (
	"context"
	"fmt"
	"strings"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
)

// LinkIngredients 將食材行連結到目錄中名稱完全相同的產品，
// 返回更新後的食材行與成功連結的行數。原切片不會被修改
func LinkIngredients(ctx context.Context, store catalog.Store, lines []fiche.IngredientLine) ([]fiche.IngredientLine, int, error) {
	out := make([]fiche.IngredientLine, len(lines))
	copy(out, lines)
	if len(lines) == 0 {
		return out, 0, nil
	}

	suppliers, err := store.ListSuppliers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}

	products := make(map[string][]catalog.SupplierProduct)
	linked := 0

	for i, line := range out {
		if strings.TrimSpace(line.Name) == "" {
			continue
		}

		var supplier *catalog.Supplier
		if id, ok := line.Supplier.ID(); ok {
			supplier, _ = catalog.FindSupplierByID(suppliers, id)
		} else if name, ok := line.Supplier.Name(); ok {
			supplier, _ = catalog.FindSupplierByName(suppliers, name)
		}
		if supplier == nil {
			continue
		}

		list, ok := products[supplier.ID]
		if !ok {
			list, err = store.ListSupplierProducts(ctx, supplier.ID)
			if err != nil {
				return nil, 0, fmt.Errorf("list products of supplier %s: %w", supplier.ID, err)
			}
			products[supplier.ID] = list
		}

		match, ok := catalog.FindProductByName(list, line.Name)
		if !ok {
			continue
		}
		out[i].Supplier = fiche.SupplierByID(supplier.ID, supplier.Name)
		out[i].SupplierProductID = match.ID
		linked++
	}

	return out, linked, nil
}
