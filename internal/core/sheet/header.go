package sheet

import (
	"strings"

	"recipe-costing/internal/core/matching"
)

// Columns 表頭辨識出的欄位位置，-1 代表該欄不存在
type Columns struct {
	Supplier     int `json:"supplier"`
	Product      int `json:"product"`
	SupplierCode int `json:"supplierCode"`
	SourcePrice  int `json:"sourcePrice"`
	SourceUnit   int `json:"sourceUnit"`
	UnitPrice    int `json:"unitPrice"`
	Unit         int `json:"unit"`
}

// 各語言（法文 / 義大利文 / 英文）的欄位關鍵字，以正規化後的文字比對
var (
	supplierWords = []string{"fournisseur", "fornitore", "supplier", "vendor"}
	productWords  = []string{"designation", "produit", "prodotto", "product"}
	codeWords     = []string{"code fournisseur", "codice fornitore", "supplier code", "source code", "vendor code"}
	sourceWords   = []string{"source", "origine"}
	priceWords    = []string{"prix", "prezzo", "price", "tarif"}
	unitWords     = []string{"unite", "unita"}
)

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasUnitWord(s string) bool {
	if containsAny(s, unitWords) {
		return true
	}
	for _, token := range strings.Fields(s) {
		if token == "unit" || token == "uom" {
			return true
		}
	}
	return false
}

// ClassifyHeader 判斷一列是否為表頭並返回欄位位置。
//
// 每個儲存格只會被指派一個角色，優先順序為：
// 供應商代碼、供應商、產品、來源價格、來源單位、價格、單位。
// 只有同時找到供應商欄與產品欄時才視為表頭。
func ClassifyHeader(row []string) (Columns, bool) {
	cols := Columns{
		Supplier:     -1,
		Product:      -1,
		SupplierCode: -1,
		SourcePrice:  -1,
		SourceUnit:   -1,
		UnitPrice:    -1,
		Unit:         -1,
	}

	for idx, cell := range row {
		text := matching.Normalize(cell)
		if text == "" {
			continue
		}

		hasSource := containsAny(text, sourceWords)
		hasPrice := containsAny(text, priceWords)
		hasUnit := hasUnitWord(text)

		switch {
		case containsAny(text, codeWords):
			cols.SupplierCode = idx
		case containsAny(text, supplierWords):
			cols.Supplier = idx
		case containsAny(text, productWords):
			cols.Product = idx
		case hasPrice && hasSource:
			cols.SourcePrice = idx
		case hasUnit && hasSource:
			cols.SourceUnit = idx
		case hasPrice:
			cols.UnitPrice = idx
		case hasUnit:
			cols.Unit = idx
		}
	}

	if cols.Supplier < 0 || cols.Product < 0 {
		return cols, false
	}
	return cols, true
}

// cell 取得指定欄位的內容，欄位不存在或超出範圍時返回空字串
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
