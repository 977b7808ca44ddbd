// Package supplier 提供供應商與產品目錄的 HTTP 處理器。
package supplier

import (
	"fmt"
	"net/http"

	"recipe-costing/internal/api/handlers"
	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NameRequest 建立或重新命名時的請求體
type NameRequest struct {
	Name string `json:"name" binding:"required"`
}

// Handler 目錄處理器
type Handler struct {
	catalog catalog.Catalog
}

// NewHandler 創建目錄處理器
func NewHandler(c catalog.Catalog) *Handler {
	return &Handler{catalog: c}
}

// RegisterRoutes 註冊供應商與產品路由
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("", h.ListSuppliers)
		suppliers.POST("", h.UpsertSupplier)
		suppliers.GET("/:id", h.GetSupplier)
		suppliers.PUT("/:id", h.RenameSupplier)
		suppliers.DELETE("/:id", h.DeleteSupplier)

		suppliers.GET("/:id/products", h.ListProducts)
		suppliers.POST("/:id/products", h.UpsertProduct)
		suppliers.PUT("/:id/products/:productId/price", h.UpdateProductPrice)
		suppliers.PUT("/:id/products/:productId/name", h.RenameProduct)
		suppliers.DELETE("/:id/products/:productId", h.DeleteProduct)
	}
}

// ListSuppliers 列出供應商
func (h *Handler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.catalog.ListSuppliers(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// UpsertSupplier 依名稱建立或觸碰供應商
func (h *Handler) UpsertSupplier(c *gin.Context) {
	var req NameRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	s, err := h.catalog.UpsertSupplierByName(c.Request.Context(), req.Name)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetSupplier 取得供應商
func (h *Handler) GetSupplier(c *gin.Context) {
	s, err := h.catalog.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// RenameSupplier 重新命名供應商
func (h *Handler) RenameSupplier(c *gin.Context) {
	var req NameRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	s, err := h.catalog.RenameSupplier(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	common.LogInfo("供應商已重新命名", zap.String("id", s.ID), zap.String("name", s.Name))
	c.JSON(http.StatusOK, s)
}

// DeleteSupplier 刪除供應商與其產品
func (h *Handler) DeleteSupplier(c *gin.Context) {
	id := c.Param("id")
	if err := h.catalog.DeleteSupplier(c.Request.Context(), id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	common.LogInfo("供應商已刪除", zap.String("id", id))
	c.Status(http.StatusNoContent)
}

// ListProducts 列出供應商的產品
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListSupplierProducts(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// UpsertProduct 建立或部分更新產品
func (h *Handler) UpsertProduct(c *gin.Context) {
	var in catalog.ProductInput
	if !handlers.BindJSON(c, &in) {
		return
	}
	if err := validateUnits(in.SourceUnit, in.Unit); err != nil {
		handlers.RespondError(c, err)
		return
	}
	p, err := h.catalog.UpsertSupplierProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProductPrice 覆寫產品單價與單位，省略的欄位會被清除
func (h *Handler) UpdateProductPrice(c *gin.Context) {
	var update catalog.PriceUpdate
	if !handlers.BindJSON(c, &update) {
		return
	}
	if err := validateUnits(update.Unit); err != nil {
		handlers.RespondError(c, err)
		return
	}
	p, err := h.catalog.UpdateSupplierProduct(c.Request.Context(), c.Param("id"), c.Param("productId"), update)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RenameProduct 重新命名產品
func (h *Handler) RenameProduct(c *gin.Context) {
	var req NameRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	p, err := h.catalog.RenameSupplierProduct(c.Request.Context(), c.Param("id"), c.Param("productId"), req.Name)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProduct 刪除產品
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteSupplierProduct(c.Request.Context(), c.Param("id"), c.Param("productId")); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func validateUnits(units ...*catalog.Unit) error {
	for _, u := range units {
		if u != nil && !u.Valid() {
			return common.NewValidationError(fmt.Sprintf("unknown unit %q, expected one of %v", *u, catalog.Units))
		}
	}
	return nil
}
