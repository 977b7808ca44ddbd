package fiche

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"recipe-costing/internal/pkg/common"
)

// Store 技術單儲存介面
type Store interface {
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, id string) (*Fiche, error)
	// Save 建立或覆寫技術單；ID 為空時產生新 ID
	Save(ctx context.Context, f *Fiche) (*Fiche, error)
	Delete(ctx context.Context, id string) error
}

// PrepareSave 在寫入前補上 ID、預設值與時間戳
func PrepareSave(f *Fiche, existing *Fiche) {
	f.Normalize()
	now := common.Now()
	if f.ID == "" {
		f.ID = common.GenerateUUID()
	}
	if existing != nil {
		f.CreatedAt = existing.CreatedAt
	} else if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
}

// MemoryStore 記憶體技術單儲存
type MemoryStore struct {
	mu     sync.RWMutex
	fiches map[string]Fiche
}

// NewMemoryStore 創建記憶體技術單儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fiches: make(map[string]Fiche)}
}

// List 依更新時間由新到舊列出
func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.fiches))
	for _, f := range m.fiches {
		out = append(out, Summary{ID: f.ID, Title: f.Title, Category: f.Category, UpdatedAt: f.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Get 取得技術單
func (m *MemoryStore) Get(ctx context.Context, id string) (*Fiche, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.fiches[id]
	if !ok {
		return nil, fmt.Errorf("fiche %s: %w", id, ErrNotFound)
	}
	return &f, nil
}

// Save 建立或覆寫技術單
func (m *MemoryStore) Save(ctx context.Context, f *Fiche) (*Fiche, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *f
	var existing *Fiche
	if prev, ok := m.fiches[saved.ID]; ok && saved.ID != "" {
		existing = &prev
	}
	PrepareSave(&saved, existing)
	m.fiches[saved.ID] = saved
	return &saved, nil
}

// Delete 刪除技術單
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fiches[id]; !ok {
		return fmt.Errorf("fiche %s: %w", id, ErrNotFound)
	}
	delete(m.fiches, id)
	return nil
}
