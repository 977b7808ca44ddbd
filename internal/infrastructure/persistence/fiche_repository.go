package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recipe-costing/internal/core/fiche"
	"recipe-costing/internal/pkg/common"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// FicheRepository 以 SQLite 實作 fiche.Store
type FicheRepository struct {
	db *sqlx.DB
}

// NewFicheRepository 創建技術單儲存庫
func NewFicheRepository(db *sqlx.DB) *FicheRepository {
	return &FicheRepository{db: db}
}

// List 依更新時間由新到舊列出
func (r *FicheRepository) List(ctx context.Context) ([]fiche.Summary, error) {
	sb := ficheStruct.SelectFrom(fichesTable)
	sb.OrderBy("updated_at").Desc()
	query, args := sb.Build()

	var rows []ficheRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		common.LogError("Failed to list fiches", zap.Error(err))
		return nil, fmt.Errorf("failed to list fiches: %w", err)
	}

	out := make([]fiche.Summary, len(rows))
	for i, row := range rows {
		out[i] = fiche.Summary{
			ID:        row.ID,
			Title:     row.Title,
			Category:  row.Category,
			UpdatedAt: parseTime(row.UpdatedAt),
		}
	}
	return out, nil
}

// Get 取得技術單
func (r *FicheRepository) Get(ctx context.Context, id string) (*fiche.Fiche, error) {
	return getFiche(ctx, r.db, id)
}

func getFiche(ctx context.Context, q sqlx.QueryerContext, id string) (*fiche.Fiche, error) {
	sb := ficheStruct.SelectFrom(fichesTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row ficheRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fiche %s: %w", id, fiche.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get fiche: %w", err)
	}

	var f fiche.Fiche
	if err := common.ParseJSON(row.Document, &f); err != nil {
		return nil, fmt.Errorf("fiche %s has an unreadable document: %w", id, err)
	}
	f.ID = row.ID
	f.CreatedAt = parseTime(row.CreatedAt)
	f.UpdatedAt = parseTime(row.UpdatedAt)
	f.Normalize()
	return &f, nil
}

// Save 建立或覆寫技術單
func (r *FicheRepository) Save(ctx context.Context, f *fiche.Fiche) (*fiche.Fiche, error) {
	saved := *f

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing *fiche.Fiche
	if saved.ID != "" {
		prev, err := getFiche(ctx, tx, saved.ID)
		switch {
		case err == nil:
			existing = prev
		case !errors.Is(err, fiche.ErrNotFound):
			return nil, err
		}
	}
	fiche.PrepareSave(&saved, existing)

	document, err := common.ToJSON(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fiche: %w", err)
	}
	row := fromFiche(&saved, document)

	var query string
	var args []interface{}
	if existing != nil {
		ub := ficheStruct.Update(fichesTable, row)
		ub.Where(ub.Equal("id", row.ID))
		query, args = ub.Build()
	} else {
		query, args = ficheStruct.InsertInto(fichesTable, row).Build()
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to save fiche: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	common.LogDebug("技術單已儲存", zap.String("id", saved.ID), zap.Bool("created", existing == nil))
	return &saved, nil
}

// Delete 刪除技術單
func (r *FicheRepository) Delete(ctx context.Context, id string) error {
	db := ficheStruct.DeleteFrom(fichesTable)
	db.Where(db.Equal("id", id))
	query, args := db.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete fiche: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fiche %s: %w", id, fiche.ErrNotFound)
	}
	return nil
}
