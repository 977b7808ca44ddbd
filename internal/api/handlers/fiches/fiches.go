// Package fiches 提供技術單、目錄同步與成本計算的 HTTP 處理器。
package fiches

import (
	"net/http"
	"strings"

	"recipe-costing/internal/api/handlers"
	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
	"recipe-costing/internal/core/pricing"
	"recipe-costing/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncResponse 同步結果
type SyncResponse struct {
	Fiche  *fiche.Fiche `json:"fiche"`
	Linked int          `json:"linked"`
}

// CostingRequest 臨時成本計算請求
type CostingRequest struct {
	Portions    int                    `json:"portions"`
	Ingredients []fiche.IngredientLine `json:"ingredients"`
}

// Handler 技術單處理器
type Handler struct {
	fiches  fiche.Store
	catalog catalog.Store
}

// NewHandler 創建技術單處理器
func NewHandler(fiches fiche.Store, store catalog.Store) *Handler {
	return &Handler{fiches: fiches, catalog: store}
}

// RegisterRoutes 註冊技術單與成本路由
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/fiches")
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		group.POST("/:id/sync", h.Sync)
		group.GET("/:id/costing", h.Costing)
	}
	rg.POST("/costing", h.AdHocCosting)
}

// List 列出技術單
func (h *Handler) List(c *gin.Context) {
	list, err := h.fiches.List(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get 取得技術單
func (h *Handler) Get(c *gin.Context) {
	f, err := h.fiches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Create 建立技術單
func (h *Handler) Create(c *gin.Context) {
	f, ok := bindFiche(c)
	if !ok {
		return
	}
	f.ID = ""
	saved, err := h.fiches.Save(c.Request.Context(), f)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	common.LogInfo("技術單已建立", zap.String("id", saved.ID), zap.String("title", saved.Title))
	c.JSON(http.StatusCreated, saved)
}

// Update 覆寫技術單
func (h *Handler) Update(c *gin.Context) {
	f, ok := bindFiche(c)
	if !ok {
		return
	}
	f.ID = c.Param("id")
	saved, err := h.fiches.Save(c.Request.Context(), f)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Delete 刪除技術單
func (h *Handler) Delete(c *gin.Context) {
	if err := h.fiches.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sync 將食材行連結到目錄中的產品並保存
func (h *Handler) Sync(c *gin.Context) {
	ctx := c.Request.Context()
	f, err := h.fiches.Get(ctx, c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	lines, linked, err := pricing.LinkIngredients(ctx, h.catalog, f.Ingredients)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	f.Ingredients = lines

	saved, err := h.fiches.Save(ctx, f)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	common.LogInfo("技術單已同步", zap.String("id", saved.ID), zap.Int("linked", linked))
	c.JSON(http.StatusOK, SyncResponse{Fiche: saved, Linked: linked})
}

// Costing 計算技術單成本
func (h *Handler) Costing(c *gin.Context) {
	ctx := c.Request.Context()
	f, err := h.fiches.Get(ctx, c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	report, err := pricing.CostFiche(ctx, h.catalog, f)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AdHocCosting 計算未保存食材行的成本
func (h *Handler) AdHocCosting(c *gin.Context) {
	var req CostingRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	if req.Portions <= 0 {
		req.Portions = 1
	}
	ix, err := pricing.BuildIndex(c.Request.Context(), h.catalog, req.Ingredients)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pricing.BuildReport(ix, req.Ingredients, req.Portions))
}

func bindFiche(c *gin.Context) (*fiche.Fiche, bool) {
	var f fiche.Fiche
	if !handlers.BindJSON(c, &f) {
		return nil, false
	}
	if strings.TrimSpace(f.Title) == "" {
		handlers.RespondError(c, common.NewValidationError("title is required"))
		return nil, false
	}
	return &f, true
}
