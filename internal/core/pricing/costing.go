package pricing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
)

// Quantity 解析後的份量
type Quantity struct {
	Value float64
	Unit  *catalog.Unit // nil 代表沒有單位或無法辨識
}

var quantityPattern = regexp.MustCompile(`([\d.]+)\s*([a-zà-ù]*)`)

// quantityAliases 份量文字中可辨識的單位寫法
var quantityAliases = map[string]catalog.Unit{
	"kg":     catalog.UnitKilogram,
	"g":      catalog.UnitGram,
	"gr":     catalog.UnitGram,
	"grammo": catalog.UnitGram,
	"grammi": catalog.UnitGram,
	"l":      catalog.UnitLiter,
	"lt":     catalog.UnitLiter,
	"litro":  catalog.UnitLiter,
	"litri":  catalog.UnitLiter,
	"ml":     catalog.UnitMilliliter,
	"cl":     catalog.UnitCentiliter,
	"pc":     catalog.UnitPiece,
	"pcs":    catalog.UnitPiece,
	"pz":     catalog.UnitPiece,
	"pezzo":  catalog.UnitPiece,
	"pezzi":  catalog.UnitPiece,
}

// ParseQuantity 解析 "200 g"、"1,5 kg"、"3 pz" 等份量文字，
// 找不到數字時返回 false
func ParseQuantity(qty string) (Quantity, bool) {
	raw := strings.Replace(strings.ToLower(strings.TrimSpace(qty)), ",", ".", 1)
	if raw == "" {
		return Quantity{}, false
	}

	m := quantityPattern.FindStringSubmatch(raw)
	if m == nil {
		return Quantity{}, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Quantity{}, false
	}

	q := Quantity{Value: value}
	if unit, ok := quantityAliases[strings.TrimSpace(m[2])]; ok {
		q.Unit = &unit
	}
	return q, true
}

// conversion 從份量單位換算到價格單位的倍率
var conversion = map[catalog.Unit]map[catalog.Unit]float64{
	catalog.UnitKilogram: {
		catalog.UnitKilogram: 1,
		catalog.UnitGram:     0.001,
	},
	catalog.UnitGram: {
		catalog.UnitKilogram: 1000,
		catalog.UnitGram:     1,
	},
	catalog.UnitLiter: {
		catalog.UnitLiter:      1,
		catalog.UnitMilliliter: 0.001,
		catalog.UnitCentiliter: 0.01,
	},
	catalog.UnitMilliliter: {
		catalog.UnitLiter:      1000,
		catalog.UnitMilliliter: 1,
		catalog.UnitCentiliter: 10,
	},
	catalog.UnitCentiliter: {
		catalog.UnitLiter:      100,
		catalog.UnitMilliliter: 0.1,
		catalog.UnitCentiliter: 1,
	},
}

// QuantityInPriceUnit 將份量換算為價格單位；不同量綱時返回 false。
// 以件計價時接受無單位或件為單位的份量
func QuantityInPriceUnit(q Quantity, priceUnit *catalog.Unit) (float64, bool) {
	if priceUnit == nil {
		return 0, false
	}

	if *priceUnit == catalog.UnitPiece {
		if q.Unit == nil || *q.Unit == catalog.UnitPiece {
			return q.Value, true
		}
		return 0, false
	}

	if q.Unit == nil {
		return 0, false
	}
	factor, ok := conversion[*priceUnit][*q.Unit]
	if !ok {
		return 0, false
	}
	return q.Value * factor, true
}

// IngredientCost 計算一行食材的成本，無法計算時返回 nil
func IngredientCost(line fiche.IngredientLine, price PriceInfo) *float64 {
	if price.UnitPrice == nil || price.Unit == nil {
		return nil
	}
	q, ok := ParseQuantity(line.Qty)
	if !ok {
		return nil
	}
	amount, ok := QuantityInPriceUnit(q, price.Unit)
	if !ok {
		return nil
	}
	cost := *price.UnitPrice * amount
	return &cost
}

// ManualPrice 食材行上手動輸入的價格
func ManualPrice(line fiche.IngredientLine) PriceInfo {
	return PriceInfo{UnitPrice: line.UnitPrice, Unit: line.UnitPriceUnit}
}

// FoodCost 加總可計算的成本；沒有任何一行可計算時返回 nil
func FoodCost(costs []*float64) *float64 {
	var total float64
	found := false
	for _, c := range costs {
		if c != nil {
			total += *c
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

// PerPortion 每份成本
func PerPortion(total *float64, portions int) *float64 {
	if total == nil || portions <= 0 {
		return nil
	}
	v := *total / float64(portions)
	return &v
}

// FormatCurrency 以 "€ 12.50" 格式輸出金額
func FormatCurrency(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "€ 0.00"
	}
	return fmt.Sprintf("€ %.2f", value)
}
