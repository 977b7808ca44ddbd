package sheet

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/matching"
)

var (
	priceNoise    = regexp.MustCompile(`[^\d,.\-]`)
	leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ParsePrice 解析價格，容許歐式千分位與小數逗號。
// 空白、"-" 或無法解析的內容返回 nil
func ParsePrice(value string) *float64 {
	cleaned := strings.TrimSpace(priceNoise.ReplaceAllString(value, ""))
	if cleaned == "" || cleaned == "-" || cleaned == "--" {
		return nil
	}

	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	number := leadingNumber.FindString(cleaned)
	if number == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// unitAliases 各語言單位寫法與容器名稱對應到固定單位
var unitAliases = map[string]catalog.Unit{
	"kg":          catalog.UnitKilogram,
	"kgs":         catalog.UnitKilogram,
	"kilo":        catalog.UnitKilogram,
	"kilos":       catalog.UnitKilogram,
	"kilogramme":  catalog.UnitKilogram,
	"kilogrammes": catalog.UnitKilogram,
	"kilogram":    catalog.UnitKilogram,
	"kilograms":   catalog.UnitKilogram,
	"chilo":       catalog.UnitKilogram,
	"chili":       catalog.UnitKilogram,
	"g":           catalog.UnitGram,
	"gr":          catalog.UnitGram,
	"gramme":      catalog.UnitGram,
	"grammes":     catalog.UnitGram,
	"gram":        catalog.UnitGram,
	"grams":       catalog.UnitGram,
	"grammo":      catalog.UnitGram,
	"grammi":      catalog.UnitGram,
	"l":           catalog.UnitLiter,
	"lt":          catalog.UnitLiter,
	"litre":       catalog.UnitLiter,
	"litres":      catalog.UnitLiter,
	"liter":       catalog.UnitLiter,
	"liters":      catalog.UnitLiter,
	"litro":       catalog.UnitLiter,
	"litri":       catalog.UnitLiter,
	"ml":          catalog.UnitMilliliter,
	"millilitre":  catalog.UnitMilliliter,
	"millilitres": catalog.UnitMilliliter,
	"milliliter":  catalog.UnitMilliliter,
	"milliliters": catalog.UnitMilliliter,
	"millilitro":  catalog.UnitMilliliter,
	"millilitri":  catalog.UnitMilliliter,
	"cl":          catalog.UnitCentiliter,
	"centilitre":  catalog.UnitCentiliter,
	"centilitres": catalog.UnitCentiliter,
	"centiliter":  catalog.UnitCentiliter,
	"centilitro":  catalog.UnitCentiliter,
	"centilitri":  catalog.UnitCentiliter,
	"pc":          catalog.UnitPiece,
	"pcs":         catalog.UnitPiece,
	"pz":          catalog.UnitPiece,
	"pezzo":       catalog.UnitPiece,
	"pezzi":       catalog.UnitPiece,
	"piece":       catalog.UnitPiece,
	"pieces":      catalog.UnitPiece,
	"unit":        catalog.UnitPiece,
	"units":       catalog.UnitPiece,
	"unite":       catalog.UnitPiece,
	"unites":      catalog.UnitPiece,
	"unitee":      catalog.UnitPiece,
	"unitees":     catalog.UnitPiece,
	"unita":       catalog.UnitPiece,
	"each":        catalog.UnitPiece,
	"ea":          catalog.UnitPiece,
	"sachet":      catalog.UnitPiece,
	"sachets":     catalog.UnitPiece,
	"sac":         catalog.UnitPiece,
	"sacs":        catalog.UnitPiece,
	"seau":        catalog.UnitPiece,
	"sceau":       catalog.UnitPiece,
	"bouteille":   catalog.UnitPiece,
	"bouteilles":  catalog.UnitPiece,
	"boite":       catalog.UnitPiece,
	"boites":      catalog.UnitPiece,
	"barquette":   catalog.UnitPiece,
	"barquettes":  catalog.UnitPiece,
	"carton":      catalog.UnitPiece,
	"cartons":     catalog.UnitPiece,
	"cagette":     catalog.UnitPiece,
	"cagettes":    catalog.UnitPiece,
	"bottle":      catalog.UnitPiece,
	"bottles":     catalog.UnitPiece,
	"box":         catalog.UnitPiece,
	"boxes":       catalog.UnitPiece,
	"bag":         catalog.UnitPiece,
	"bags":        catalog.UnitPiece,
	"crate":       catalog.UnitPiece,
	"crates":      catalog.UnitPiece,
	"bottiglia":   catalog.UnitPiece,
	"bottiglie":   catalog.UnitPiece,
	"scatola":     catalog.UnitPiece,
	"scatole":     catalog.UnitPiece,
	"busta":       catalog.UnitPiece,
	"buste":       catalog.UnitPiece,
	"cassa":       catalog.UnitPiece,
	"casse":       catalog.UnitPiece,
	"secchio":     catalog.UnitPiece,
	"vaschetta":   catalog.UnitPiece,
	"vaschette":   catalog.UnitPiece,
}

// unitFallbacks 子字串比對順序；kg 必須在 g 之前
var unitFallbacks = []struct {
	fragment string
	unit     catalog.Unit
}{
	{"kg", catalog.UnitKilogram},
	{"g", catalog.UnitGram},
	{"ml", catalog.UnitMilliliter},
	{"cl", catalog.UnitCentiliter},
	{"l", catalog.UnitLiter},
}

// NormalizeUnit 將單位文字轉為固定單位，無法辨識時返回 nil
func NormalizeUnit(value string) *catalog.Unit {
	cleaned := matching.Normalize(value)
	if cleaned == "" {
		return nil
	}

	if unit, ok := unitAliases[cleaned]; ok {
		return &unit
	}

	for _, fb := range unitFallbacks {
		if strings.Contains(cleaned, fb.fragment) {
			unit := fb.unit
			return &unit
		}
	}
	return nil
}
