package pricing

import (
	"context"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
)

// PriceSource 成本使用的價格來源
type PriceSource string

const (
	SourceCatalog PriceSource = "catalog"
	SourceManual  PriceSource = "manual"
	SourceNone    PriceSource = "none"
)

// LineCost 單行食材的成本明細
type LineCost struct {
	Name      string        `json:"name"`
	Qty       string        `json:"qty"`
	Supplier  string        `json:"supplier,omitempty"`
	Source    PriceSource   `json:"source"`
	Level     Level         `json:"level"`
	UnitPrice *float64      `json:"unitPrice"`
	Unit      *catalog.Unit `json:"unit"`
	Cost      *float64      `json:"cost"`
	CostLabel string        `json:"costLabel,omitempty"`
}

// Report 技術單成本報表
type Report struct {
	FicheID         string     `json:"ficheId,omitempty"`
	Title           string     `json:"title,omitempty"`
	Portions        int        `json:"portions"`
	Lines           []LineCost `json:"lines"`
	Total           *float64   `json:"total"`
	TotalLabel      string     `json:"totalLabel"`
	PerPortion      *float64   `json:"perPortion"`
	PerPortionLabel string     `json:"perPortionLabel"`
	Priced          int        `json:"priced"`
	Unpriced        int        `json:"unpriced"`
}

// BuildReport 以查找表計算每一行的成本；目錄查無價格時改用行上的手動價格
func BuildReport(ix *Index, lines []fiche.IngredientLine, portions int) *Report {
	report := &Report{Portions: portions, Lines: make([]LineCost, 0, len(lines))}
	costs := make([]*float64, 0, len(lines))

	for _, line := range lines {
		lc := LineCost{Name: line.Name, Qty: line.Qty, Supplier: line.Supplier.Label(), Source: SourceNone}

		price, level := ix.ResolveLevel(line)
		lc.Level = level
		if level != LevelNone && price.UnitPrice != nil {
			lc.Source = SourceCatalog
		} else if manual := ManualPrice(line); manual.UnitPrice != nil {
			price = manual
			lc.Source = SourceManual
		}
		lc.UnitPrice = price.UnitPrice
		lc.Unit = price.Unit

		lc.Cost = IngredientCost(line, price)
		if lc.Cost != nil {
			lc.CostLabel = FormatCurrency(*lc.Cost)
			report.Priced++
		} else {
			report.Unpriced++
		}
		costs = append(costs, lc.Cost)
		report.Lines = append(report.Lines, lc)
	}

	report.Total = FoodCost(costs)
	report.PerPortion = PerPortion(report.Total, portions)
	report.TotalLabel = labelOrZero(report.Total)
	report.PerPortionLabel = labelOrZero(report.PerPortion)
	return report
}

func labelOrZero(v *float64) string {
	if v == nil {
		return FormatCurrency(0)
	}
	return FormatCurrency(*v)
}

// CostFiche 建立查找表並計算技術單成本
func CostFiche(ctx context.Context, store catalog.Store, f *fiche.Fiche) (*Report, error) {
	ix, err := BuildIndex(ctx, store, f.Ingredients)
	if err != nil {
		return nil, err
	}
	report := BuildReport(ix, f.Ingredients, f.Portions)
	report.FicheID = f.ID
	report.Title = f.Title
	return report, nil
}
