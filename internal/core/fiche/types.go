// Package fiche 定義技術單（食譜）與其食材行。
package fiche

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"recipe-costing/internal/core/catalog"
)

// ErrNotFound 技術單不存在
var ErrNotFound = errors.New("fiche: not found")

// RefKind 供應商參照的種類
type RefKind int

const (
	RefUnset RefKind = iota
	RefByID
	RefByName
)

// SupplierRef 食材行對供應商的參照：依 ID、依名稱或未設定
type SupplierRef struct {
	kind  RefKind
	value string
	label string // ByID 時保留的顯示名稱
}

// SupplierByID 以供應商 ID 參照，label 為選填的顯示名稱
func SupplierByID(id, label string) SupplierRef {
	id = strings.TrimSpace(id)
	if id == "" {
		return SupplierByName(label)
	}
	return SupplierRef{kind: RefByID, value: id, label: strings.TrimSpace(label)}
}

// SupplierByName 以供應商名稱參照，空白名稱視為未設定
func SupplierByName(name string) SupplierRef {
	name = strings.TrimSpace(name)
	if name == "" {
		return SupplierRef{}
	}
	return SupplierRef{kind: RefByName, value: name}
}

// Kind 返回參照種類
func (r SupplierRef) Kind() RefKind { return r.kind }

// ID 返回供應商 ID
func (r SupplierRef) ID() (string, bool) {
	return r.value, r.kind == RefByID
}

// Name 返回以名稱參照時的供應商名稱
func (r SupplierRef) Name() (string, bool) {
	return r.value, r.kind == RefByName
}

// Label 返回可顯示的供應商文字
func (r SupplierRef) Label() string {
	if r.kind == RefByID {
		return r.label
	}
	return r.value
}

// IngredientLine 技術單中的一行食材
type IngredientLine struct {
	Name              string
	Qty               string // 例如 "200 g"、"2 pz"
	Note              string
	Supplier          SupplierRef
	SupplierProductID string
	UnitPrice         *float64 // 手動輸入的單價，目錄查無價格時使用
	UnitPriceUnit     *catalog.Unit
}

type ingredientWire struct {
	Name              string        `json:"name"`
	Qty               string        `json:"qty"`
	Note              string        `json:"note,omitempty"`
	Supplier          string        `json:"supplier,omitempty"`
	SupplierID        string        `json:"supplierId,omitempty"`
	SupplierProductID string        `json:"supplierProductId,omitempty"`
	UnitPrice         *float64      `json:"unitPrice,omitempty"`
	UnitPriceUnit     *catalog.Unit `json:"unitPriceUnit,omitempty"`
}

// MarshalJSON 以 supplier / supplierId / supplierProductId 三個欄位輸出
func (l IngredientLine) MarshalJSON() ([]byte, error) {
	w := ingredientWire{
		Name:              l.Name,
		Qty:               l.Qty,
		Note:              l.Note,
		Supplier:          l.Supplier.Label(),
		SupplierProductID: l.SupplierProductID,
		UnitPrice:         l.UnitPrice,
		UnitPriceUnit:     l.UnitPriceUnit,
	}
	if id, ok := l.Supplier.ID(); ok {
		w.SupplierID = id
	}
	return json.Marshal(w)
}

// UnmarshalJSON 將三個欄位轉為單一 SupplierRef
func (l *IngredientLine) UnmarshalJSON(data []byte) error {
	var w ingredientWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = IngredientLine{
		Name:              w.Name,
		Qty:               w.Qty,
		Note:              w.Note,
		Supplier:          SupplierByID(w.SupplierID, w.Supplier),
		SupplierProductID: strings.TrimSpace(w.SupplierProductID),
		UnitPrice:         w.UnitPrice,
		UnitPriceUnit:     w.UnitPriceUnit,
	}
	if l.UnitPriceUnit != nil && !l.UnitPriceUnit.Valid() {
		l.UnitPriceUnit = nil
	}
	return nil
}

// Fiche 技術單
type Fiche struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Category    string           `json:"category,omitempty"`
	Portions    int              `json:"portions"`
	Allergens   []string         `json:"allergens"`
	Equipment   []string         `json:"equipment"`
	Ingredients []IngredientLine `json:"ingredients"`
	Steps       []string         `json:"steps"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Normalize 補上預設值，讓清單欄位在 JSON 中輸出為 []
func (f *Fiche) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	if f.Portions <= 0 {
		f.Portions = 1
	}
	if f.Allergens == nil {
		f.Allergens = []string{}
	}
	if f.Equipment == nil {
		f.Equipment = []string{}
	}
	if f.Ingredients == nil {
		f.Ingredients = []IngredientLine{}
	}
	if f.Steps == nil {
		f.Steps = []string{}
	}
}

// Summary 技術單清單項目
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
