// Package handlers 提供各 HTTP 處理器共用的錯誤回應。
package handlers

import (
	"context"
	"errors"
	"net/http"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ToCustomError 將領域錯誤轉為 API 錯誤
func ToCustomError(err error) *common.CustomError {
	var custom *common.CustomError
	switch {
	case errors.As(err, &custom):
		return custom
	case errors.Is(err, catalog.ErrInvalidName):
		return common.ErrInvalidName.WithError(err)
	case errors.Is(err, catalog.ErrConflict):
		return common.ErrDuplicateName.WithError(err)
	case errors.Is(err, catalog.ErrSupplierNotFound):
		return common.ErrSupplierNotFound.WithError(err)
	case errors.Is(err, catalog.ErrProductNotFound):
		return common.ErrProductNotFound.WithError(err)
	case errors.Is(err, catalog.ErrNotFound):
		return common.ErrNotFound.WithError(err)
	case errors.Is(err, fiche.ErrNotFound):
		return common.ErrFicheNotFound.WithError(err)
	case common.IsValidationError(err):
		return common.ErrInvalidRequest.WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.WithError(err)
	default:
		return common.ErrInternalError.WithError(err)
	}
}

// isDebug 從 context 讀取設定判斷是否輸出錯誤細節
func isDebug(c *gin.Context) bool {
	v, exists := c.Get("config")
	if !exists {
		return false
	}
	cfg, ok := v.(*config.Config)
	return ok && cfg.App.Debug
}

// RespondError 以 {code, message, details} 格式回應錯誤
func RespondError(c *gin.Context, err error) {
	custom := ToCustomError(err)
	if custom.Status >= http.StatusInternalServerError {
		common.LogError("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", custom.Code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(custom.Status, custom.Response(isDebug(c)))
}

// BindJSON 解析 JSON 請求體，失敗時直接回應 400
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		RespondError(c, common.ErrInvalidRequest.WithError(err))
		return false
	}
	return true
}
