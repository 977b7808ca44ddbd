package persistence

import (
	"database/sql"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
	"recipe-costing/internal/core/matching"

	"github.com/huandu/go-sqlbuilder"
)

const (
	suppliersTable = "suppliers"
	productsTable  = "supplier_products"
	fichesTable    = "fiches"
)

// supplierRow suppliers 資料列
type supplierRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	NameKey   string `db:"name_key"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// productRow supplier_products 資料列
type productRow struct {
	ID           string          `db:"id"`
	SupplierID   string          `db:"supplier_id"`
	Name         string          `db:"name"`
	NameKey      string          `db:"name_key"`
	SupplierCode sql.NullString  `db:"supplier_code"`
	SourcePrice  sql.NullFloat64 `db:"source_price"`
	SourceUnit   sql.NullString  `db:"source_unit"`
	UnitPrice    sql.NullFloat64 `db:"unit_price"`
	Unit         sql.NullString  `db:"unit"`
	CreatedAt    string          `db:"created_at"`
	UpdatedAt    string          `db:"updated_at"`
}

// ficheRow fiches 資料列，技術單內容以 JSON 文件保存
type ficheRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Category  string `db:"category"`
	Document  string `db:"document"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

var (
	supplierStruct = sqlbuilder.NewStruct(new(supplierRow)).For(sqlbuilder.SQLite)
	productStruct  = sqlbuilder.NewStruct(new(productRow)).For(sqlbuilder.SQLite)
	ficheStruct    = sqlbuilder.NewStruct(new(ficheRow)).For(sqlbuilder.SQLite)
)

func fromSupplier(s *catalog.Supplier) *supplierRow {
	return &supplierRow{
		ID:        s.ID,
		Name:      s.Name,
		NameKey:   matching.Normalize(s.Name),
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

func toSupplier(row *supplierRow) *catalog.Supplier {
	return &catalog.Supplier{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
}

func fromProduct(p *catalog.SupplierProduct) *productRow {
	return &productRow{
		ID:           p.ID,
		SupplierID:   p.SupplierID,
		Name:         p.Name,
		NameKey:      matching.Normalize(p.Name),
		SupplierCode: nullString(p.SupplierCode),
		SourcePrice:  nullFloat(p.SourcePrice),
		SourceUnit:   nullUnit(p.SourceUnit),
		UnitPrice:    nullFloat(p.UnitPrice),
		Unit:         nullUnit(p.Unit),
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

func toProduct(row *productRow) *catalog.SupplierProduct {
	p := &catalog.SupplierProduct{
		ID:         row.ID,
		SupplierID: row.SupplierID,
		Name:       row.Name,
		CreatedAt:  parseTime(row.CreatedAt),
		UpdatedAt:  parseTime(row.UpdatedAt),
	}
	if row.SupplierCode.Valid {
		code := row.SupplierCode.String
		p.SupplierCode = &code
	}
	if row.SourcePrice.Valid {
		v := row.SourcePrice.Float64
		p.SourcePrice = &v
	}
	p.SourceUnit = unitOf(row.SourceUnit)
	if row.UnitPrice.Valid {
		v := row.UnitPrice.Float64
		p.UnitPrice = &v
	}
	p.Unit = unitOf(row.Unit)
	return p
}

func toProducts(rows []productRow) []catalog.SupplierProduct {
	out := make([]catalog.SupplierProduct, len(rows))
	for i := range rows {
		out[i] = *toProduct(&rows[i])
	}
	return out
}

func fromFiche(f *fiche.Fiche, document string) *ficheRow {
	return &ficheRow{
		ID:        f.ID,
		Title:     f.Title,
		Category:  f.Category,
		Document:  document,
		CreatedAt: formatTime(f.CreatedAt),
		UpdatedAt: formatTime(f.UpdatedAt),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullUnit(u *catalog.Unit) sql.NullString {
	if u == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*u), Valid: true}
}

// unitOf 讀回單位，不在固定詞彙內的值視為空
func unitOf(ns sql.NullString) *catalog.Unit {
	if !ns.Valid {
		return nil
	}
	u, ok := catalog.ParseUnit(ns.String)
	if !ok {
		return nil
	}
	return &u
}
