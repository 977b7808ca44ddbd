package sheet

import (
	"strings"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/matching"
)

// ImportRow 價目表中的一筆資料列
type ImportRow struct {
	Supplier     string        `json:"supplier"`
	Product      string        `json:"product"`
	SupplierCode *string       `json:"supplierCode,omitempty"`
	SourcePrice  *float64      `json:"sourcePrice,omitempty"`
	SourceUnit   *catalog.Unit `json:"sourceUnit,omitempty"`
	UnitPrice    *float64      `json:"unitPrice,omitempty"`
	Unit         *catalog.Unit `json:"unit,omitempty"`
}

// ProductInput 轉為目錄寫入內容，名稱使用 name
func (r ImportRow) ProductInput(name string) catalog.ProductInput {
	return catalog.ProductInput{
		Name:         name,
		SupplierCode: r.SupplierCode,
		SourcePrice:  r.SourcePrice,
		SourceUnit:   r.SourceUnit,
		UnitPrice:    r.UnitPrice,
		Unit:         r.Unit,
	}
}

// FillBlanks 以 other 補上目前為空的選填欄位
func (r *ImportRow) FillBlanks(other ImportRow) {
	if r.SupplierCode == nil {
		r.SupplierCode = other.SupplierCode
	}
	if r.SourcePrice == nil {
		r.SourcePrice = other.SourcePrice
	}
	if r.SourceUnit == nil {
		r.SourceUnit = other.SourceUnit
	}
	if r.UnitPrice == nil {
		r.UnitPrice = other.UnitPrice
	}
	if r.Unit == nil {
		r.Unit = other.Unit
	}
}

// ParseReport 解析結果
type ParseReport struct {
	Rows    []ImportRow `json:"rows"`
	Tables  int         `json:"tables"`  // 辨識到的表頭數
	Skipped int         `json:"skipped"` // 表頭之後被捨棄的資料列
}

// isTemplateNoise 判斷是否為範本中的說明列或合計列
func isTemplateNoise(supplierKey, productKey string) bool {
	return strings.Contains(supplierKey, "fournisseur") ||
		strings.Contains(productKey, "designation") ||
		strings.Contains(supplierKey, "merci d ajouter") ||
		strings.Contains(productKey, "merci d ajouter") ||
		productKey == "total"
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseRows 將表格列轉為匯入列。
//
// 每個被辨識為表頭的列都會重設欄位對應；第一個表頭之前的列會被略過。
// 缺少供應商或產品的列不會中斷解析，只計入 Skipped。
func ParseRows(rows [][]string) ParseReport {
	var (
		report ParseReport
		cols   Columns
		active bool
	)

	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}

		if header, ok := ClassifyHeader(row); ok {
			cols = header
			active = true
			report.Tables++
			continue
		}
		if !active {
			continue
		}

		supplier := cell(row, cols.Supplier)
		product := cell(row, cols.Product)
		if supplier == "" || product == "" {
			report.Skipped++
			continue
		}
		if isTemplateNoise(matching.Normalize(supplier), matching.Normalize(product)) {
			report.Skipped++
			continue
		}

		item := ImportRow{
			Supplier:    supplier,
			Product:     product,
			SourcePrice: ParsePrice(cell(row, cols.SourcePrice)),
			SourceUnit:  NormalizeUnit(cell(row, cols.SourceUnit)),
			UnitPrice:   ParsePrice(cell(row, cols.UnitPrice)),
			Unit:        NormalizeUnit(cell(row, cols.Unit)),
		}
		if code := cell(row, cols.SupplierCode); code != "" {
			item.SupplierCode = &code
		}
		report.Rows = append(report.Rows, item)
	}

	return report
}

// ParseSupplierText 解析分隔文字格式的價目表。
//
// 先用偵測到的分隔符；找不到表頭時依序改試 `,`、`;`、tab，
// 採用第一個能辨識出表頭的結果，讓表頭前的標題列不影響分隔符判斷
func ParseSupplierText(text string) ParseReport {
	detected := DetectDelimiter(text)
	report := ParseRows(ParseDelimited(text, detected))
	if report.Tables > 0 {
		return report
	}
	for _, delim := range []rune{',', ';', '\t'} {
		if delim == detected {
			continue
		}
		if alt := ParseRows(ParseDelimited(text, delim)); alt.Tables > 0 {
			return alt
		}
	}
	return report
}
