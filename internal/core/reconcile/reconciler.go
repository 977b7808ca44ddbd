// Package reconcile 將匯入列與既有目錄對齊：去重、解析供應商與產品，並寫回目錄。
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/matching"
	"recipe-costing/internal/core/sheet"
	"recipe-costing/internal/pkg/common"
	"recipe-costing/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Status 匯入結果狀態
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Summary 一次匯入的結果
type Summary struct {
	ImportedCount     int      `json:"importedCount"`
	SupplierCount     int      `json:"supplierCount"`
	AppliedBatchNotes []string `json:"appliedBatchNotes"`
	CreatedSuppliers  int      `json:"createdSuppliers"`
	CreatedProducts   int      `json:"createdProducts"`
	Prompts           int      `json:"prompts"`
	Status            Status   `json:"status"`
	FailureReason     string   `json:"failureReason,omitempty"`
}

// Reconciler 匯入協調器
type Reconciler struct {
	store   catalog.Store
	decider Decider
	source  string
}

// Option 協調器選項
type Option func(*Reconciler)

// WithSource 設定日誌中的來源名稱（檔名等）
func WithSource(source string) Option {
	return func(r *Reconciler) { r.source = source }
}

// New 創建協調器
func New(store catalog.Store, decider Decider, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, decider: decider, source: "import"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dedup 以「供應商::產品」正規化鍵合併列，保留首次出現的順序與原始文字；
// 後出現的列只補上前面留空的選填欄位。缺少供應商或產品的列會被捨棄
func Dedup(rows []sheet.ImportRow) []sheet.ImportRow {
	index := make(map[string]int, len(rows))
	out := make([]sheet.ImportRow, 0, len(rows))

	for _, row := range rows {
		supplierKey := matching.Normalize(row.Supplier)
		productKey := matching.Normalize(row.Product)
		if supplierKey == "" || productKey == "" {
			continue
		}
		key := matching.CompositeKey(supplierKey, productKey)
		if i, ok := index[key]; ok {
			out[i].FillBlanks(row)
			continue
		}
		index[key] = len(out)
		out = append(out, row)
	}
	return out
}

// Run 執行一次匯入。
//
// 返回的 Summary 永遠不為 nil；寫入失敗時立即中止，Summary 帶有失敗狀態與原因，
// 且先前已寫入的實體不會回滾。
func (r *Reconciler) Run(ctx context.Context, rows []sheet.ImportRow) (*Summary, error) {
	start := time.Now()
	s := newSession(r)

	err := s.run(ctx, Dedup(rows))
	if err != nil {
		s.summary.Status = StatusFailed
		s.summary.FailureReason = err.Error()
	} else {
		s.summary.Status = StatusCompleted
	}
	s.summary.SupplierCount = len(s.touched)

	duration := time.Since(start)
	metrics.RecordImportRun(string(s.summary.Status), s.summary.ImportedCount, duration.Seconds())
	common.LogImportRun(r.source, s.summary.ImportedCount, s.summary.SupplierCount, duration, err)

	return s.summary, err
}

// memo 「套用到全部」的記憶
type memo struct {
	set         bool
	useExisting bool
}

// session 單次匯入的暫存狀態，Run 結束即丟棄
type session struct {
	r       *Reconciler
	summary *Summary

	suppliers   []catalog.Supplier                   // 目錄中與本次建立的供應商
	resolved    map[string]string                    // 供應商正規化鍵 -> 供應商 ID
	touched     map[string]struct{}                  // 本次觸及的供應商 ID
	products    map[string][]catalog.SupplierProduct // 依供應商 ID 延遲載入的產品
	supplierMem memo
	productMem  map[string]*memo // 依供應商 ID 分開記憶
}

func newSession(r *Reconciler) *session {
	return &session{
		r:          r,
		summary:    &Summary{AppliedBatchNotes: []string{}},
		resolved:   make(map[string]string),
		touched:    make(map[string]struct{}),
		products:   make(map[string][]catalog.SupplierProduct),
		productMem: make(map[string]*memo),
	}
}

func (s *session) run(ctx context.Context, rows []sheet.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}

	suppliers, err := s.r.store.ListSuppliers(ctx)
	if err != nil {
		return fmt.Errorf("list suppliers: %w", err)
	}
	s.suppliers = suppliers

	// 供應商階段必須全部完成後才開始產品階段
	for _, row := range rows {
		if err := s.resolveSupplier(ctx, row.Supplier); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := s.importProduct(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) resolveSupplier(ctx context.Context, name string) error {
	key := matching.Normalize(name)
	if _, ok := s.resolved[key]; ok {
		return nil
	}

	if existing, ok := catalog.FindSupplierByName(s.suppliers, name); ok {
		s.bindSupplier(key, existing.ID)
		return nil
	}

	names := make([]string, len(s.suppliers))
	for i, sup := range s.suppliers {
		names[i] = sup.Name
	}
	if i := matching.FirstSimilar(name, names); i >= 0 {
		candidate := s.suppliers[i]
		useExisting, err := s.decide(ctx, &s.supplierMem, Prompt{
			Scope:      ScopeSupplier,
			Incoming:   name,
			Existing:   candidate.Name,
			ExistingID: candidate.ID,
		})
		if err != nil {
			return err
		}
		if useExisting {
			common.LogDebug("供應商合併到既有項目",
				zap.String("incoming", name),
				zap.String("existing", candidate.Name),
			)
			s.bindSupplier(key, candidate.ID)
			return nil
		}
	}

	created, err := s.r.store.UpsertSupplierByName(ctx, name)
	if err != nil {
		return fmt.Errorf("upsert supplier %q: %w", name, err)
	}
	s.suppliers = append(s.suppliers, *created)
	// 新供應商沒有產品，不必再向目錄查詢
	s.products[created.ID] = []catalog.SupplierProduct{}
	s.summary.CreatedSuppliers++
	s.bindSupplier(key, created.ID)
	return nil
}

func (s *session) bindSupplier(key, id string) {
	s.resolved[key] = id
	s.touched[id] = struct{}{}
}

func (s *session) supplierName(id string) string {
	if sup, ok := catalog.FindSupplierByID(s.suppliers, id); ok {
		return sup.Name
	}
	return ""
}

// productsFor 延遲載入並快取供應商的產品清單
func (s *session) productsFor(ctx context.Context, supplierID string) ([]catalog.SupplierProduct, error) {
	if products, ok := s.products[supplierID]; ok {
		return products, nil
	}
	products, err := s.r.store.ListSupplierProducts(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list products of supplier %s: %w", supplierID, err)
	}
	s.products[supplierID] = products
	return products, nil
}

func (s *session) importProduct(ctx context.Context, row sheet.ImportRow) error {
	supplierID, ok := s.resolved[matching.Normalize(row.Supplier)]
	if !ok {
		return fmt.Errorf("supplier %q was not resolved", row.Supplier)
	}

	products, err := s.productsFor(ctx, supplierID)
	if err != nil {
		return err
	}

	// 同一供應商內名稱完全相同時直接合併
	name := row.Product
	existingIdx := -1
	if existing, ok := catalog.FindProductByName(products, row.Product); ok {
		name = existing.Name
		existingIdx = indexOfProduct(products, existing.ID)
	} else {
		names := make([]string, len(products))
		for i, p := range products {
			names[i] = p.Name
		}
		if i := matching.FirstSimilar(row.Product, names); i >= 0 {
			candidate := products[i]
			useExisting, err := s.decide(ctx, s.productMemo(supplierID), Prompt{
				Scope:        ScopeProduct,
				Incoming:     row.Product,
				Existing:     candidate.Name,
				ExistingID:   candidate.ID,
				SupplierName: s.supplierName(supplierID),
			})
			if err != nil {
				return err
			}
			if useExisting {
				name = candidate.Name
				existingIdx = i
			}
		}
	}

	saved, err := s.r.store.UpsertSupplierProduct(ctx, supplierID, row.ProductInput(name))
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Product, err)
	}

	if existingIdx >= 0 {
		products[existingIdx] = *saved
	} else {
		products = append(products, *saved)
		s.summary.CreatedProducts++
	}
	s.products[supplierID] = products
	s.summary.ImportedCount++
	return nil
}

// productMemo 返回供應商的產品「套用到全部」記憶
func (s *session) productMemo(supplierID string) *memo {
	m, ok := s.productMem[supplierID]
	if !ok {
		m = &memo{}
		s.productMem[supplierID] = m
	}
	return m
}

func indexOfProduct(products []catalog.SupplierProduct, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// decide 先查「套用到全部」記憶，沒有才詢問決策者
func (s *session) decide(ctx context.Context, m *memo, p Prompt) (bool, error) {
	if m.set {
		metrics.RecordDecision(string(p.Scope), m.useExisting, true)
		return m.useExisting, nil
	}

	s.summary.Prompts++
	d, err := s.r.decider.Decide(ctx, p)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		return false, fmt.Errorf("decision for %s %q: %w", p.Scope, p.Incoming, err)
	}
	metrics.RecordDecision(string(p.Scope), d.UseExisting, false)

	if d.ApplyToAll {
		m.set = true
		m.useExisting = d.UseExisting
		s.summary.AppliedBatchNotes = append(s.summary.AppliedBatchNotes, batchNote(p, d.UseExisting))
	}
	return d.UseExisting, nil
}

func batchNote(p Prompt, useExisting bool) string {
	choice := "create new"
	if useExisting {
		choice = "use existing"
	}
	scope := string(p.Scope)
	if p.SupplierName != "" {
		scope += " of " + p.SupplierName
	}
	return fmt.Sprintf("%s: %q applied to all similar matches (first: %q ~ %q)", scope, choice, p.Incoming, p.Existing)
}
