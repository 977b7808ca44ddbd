// Package catalog 定義供應商與其報價產品的領域模型與儲存介面。
package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Unit 成本計算使用的固定單位
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitCentiliter Unit = "cl"
	UnitPiece      Unit = "pc"
)

// Units 所有合法單位
var Units = []Unit{UnitKilogram, UnitGram, UnitLiter, UnitMilliliter, UnitCentiliter, UnitPiece}

// Valid 檢查單位是否屬於固定詞彙
func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// ParseUnit 將字串轉為單位，僅接受固定詞彙
func ParseUnit(s string) (Unit, bool) {
	u := Unit(s)
	return u, u.Valid()
}

// 儲存層錯誤
var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrConflict    = errors.New("catalog: conflict")
	ErrInvalidName = errors.New("catalog: name is required")

	// 兩者皆包裝 ErrNotFound
	ErrSupplierNotFound = fmt.Errorf("supplier: %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product: %w", ErrNotFound)
)

// IsNotFound 判斷錯誤是否為實體不存在
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict 判斷錯誤是否為名稱衝突
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// Supplier 供應商
type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SupplierProduct 供應商的報價產品
type SupplierProduct struct {
	ID           string    `json:"id"`
	SupplierID   string    `json:"supplierId"`
	Name         string    `json:"name"`
	SupplierCode *string   `json:"supplierCode"`
	SourcePrice  *float64  `json:"sourcePrice"` // 供應商原始報價，未換算
	SourceUnit   *Unit     `json:"sourceUnit"`
	UnitPrice    *float64  `json:"unitPrice"` // 成本計算用的單價
	Unit         *Unit     `json:"unit"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProductInput 產品寫入內容，nil 欄位代表「沿用現有值」
type ProductInput struct {
	Name         string   `json:"name"`
	SupplierCode *string  `json:"supplierCode,omitempty"`
	SourcePrice  *float64 `json:"sourcePrice,omitempty"`
	SourceUnit   *Unit    `json:"sourceUnit,omitempty"`
	UnitPrice    *float64 `json:"unitPrice,omitempty"`
	Unit         *Unit    `json:"unit,omitempty"`
}

// MergeInto 以部分更新語意將輸入合併到既有產品上，指標值會被複製
func (in ProductInput) MergeInto(p *SupplierProduct) {
	if in.SupplierCode != nil {
		p.SupplierCode = clonePtr(in.SupplierCode)
	}
	if in.SourcePrice != nil {
		p.SourcePrice = clonePtr(in.SourcePrice)
	}
	if in.SourceUnit != nil {
		p.SourceUnit = clonePtr(in.SourceUnit)
	}
	if in.UnitPrice != nil {
		p.UnitPrice = clonePtr(in.UnitPrice)
	}
	if in.Unit != nil {
		p.Unit = clonePtr(in.Unit)
	}
}

// Clone 返回不與原值共用指標欄位的副本
func (p SupplierProduct) Clone() SupplierProduct {
	p.SupplierCode = clonePtr(p.SupplierCode)
	p.SourcePrice = clonePtr(p.SourcePrice)
	p.SourceUnit = clonePtr(p.SourceUnit)
	p.UnitPrice = clonePtr(p.UnitPrice)
	p.Unit = clonePtr(p.Unit)
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// PriceUpdate 直接覆寫單價與單位（nil 代表清除）
type PriceUpdate struct {
	UnitPrice *float64 `json:"unitPrice"`
	Unit      *Unit    `json:"unit"`
}
