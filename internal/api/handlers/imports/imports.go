// Package imports 提供價目表上傳匯入的 HTTP 處理器。
package imports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"recipe-costing/internal/api/handlers"
	"recipe-costing/internal/core/importqueue"
	"recipe-costing/internal/core/reconcile"
	"recipe-costing/internal/core/sheet"
	"recipe-costing/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner 執行匯入的隊列
type Runner interface {
	Submit(ctx context.Context, rows []sheet.ImportRow, decider reconcile.Decider, source string) (*reconcile.Summary, error)
	GetQueueStatus() *importqueue.Status
}

// Response 匯入結果
type Response struct {
	Source  string             `json:"source"`
	Policy  reconcile.Policy   `json:"policy"`
	Tables  int                `json:"tables"`
	Rows    int                `json:"rows"`
	Skipped int                `json:"skipped"`
	Summary *reconcile.Summary `json:"summary"`
}

// Handler 匯入處理器
type Handler struct {
	runner        Runner
	defaultPolicy reconcile.Policy
}

// NewHandler 創建匯入處理器；HTTP 上無法互動，預設策略必須是 merge 或 new
func NewHandler(runner Runner, defaultPolicy reconcile.Policy) *Handler {
	if defaultPolicy != reconcile.PolicyCreate {
		defaultPolicy = reconcile.PolicyMerge
	}
	return &Handler{runner: runner, defaultPolicy: defaultPolicy}
}

// RegisterRoutes 註冊匯入路由，extra 為只套用在上傳端點的中間件
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, extra ...gin.HandlerFunc) {
	group := rg.Group("/imports")
	{
		group.POST("", append(extra, h.Import)...)
		group.GET("/status", h.Status)
	}
}

// Import 解析上傳的價目表並排入匯入隊列
func (h *Handler) Import(c *gin.Context) {
	policy, decider, err := h.decider(c.Query("policy"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	data, source, err := readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(c, common.ErrPayloadTooLarge.WithError(err))
			return
		}
		handlers.RespondError(c, common.ErrInvalidImportFile.WithError(err))
		return
	}

	report, err := sheet.Parse(data)
	if err != nil {
		handlers.RespondError(c, common.ErrInvalidImportFile.WithError(err))
		return
	}
	if report.Tables == 0 {
		handlers.RespondError(c, common.ErrInvalidImportFile.WithError(
			common.NewValidationError("no header row with a supplier and a product column was found")))
		return
	}

	common.LogInfo("收到匯入檔案",
		zap.String("source", source),
		zap.Int("bytes", len(data)),
		zap.Int("rows", len(report.Rows)),
		zap.Int("skipped", report.Skipped),
		zap.String("policy", string(policy)),
	)

	summary, err := h.runner.Submit(c.Request.Context(), report.Rows, decider, source)
	resp := Response{
		Source:  source,
		Policy:  policy,
		Tables:  report.Tables,
		Rows:    len(report.Rows),
		Skipped: report.Skipped,
		Summary: summary,
	}
	if err != nil {
		if summary == nil {
			handlers.RespondError(c, err)
			return
		}
		// 中途失敗：回傳部分統計，已寫入的資料不回滾
		custom := common.ErrImportFailed.WithError(err)
		_ = c.Error(err)
		c.JSON(custom.Status, gin.H{
			"code":    custom.Code,
			"message": custom.Message,
			"details": summary.FailureReason,
			"result":  resp,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Status 返回匯入隊列狀態
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.GetQueueStatus())
}

// decider 依查詢參數選擇自動決策策略
func (h *Handler) decider(raw string) (reconcile.Policy, reconcile.Decider, error) {
	policy := h.defaultPolicy
	if strings.TrimSpace(raw) != "" {
		p, err := reconcile.ParsePolicy(raw)
		if err != nil {
			return "", nil, common.ErrInvalidRequest.WithError(err)
		}
		policy = p
	}
	switch policy {
	case reconcile.PolicyMerge:
		return policy, reconcile.AlwaysMerge(), nil
	case reconcile.PolicyCreate:
		return policy, reconcile.AlwaysCreate(), nil
	default:
		return "", nil, common.ErrInvalidRequest.WithError(
			common.NewValidationError("policy \"ask\" needs a terminal, use merge or new over HTTP"))
	}
}

// readUpload 讀取 multipart 的 file 欄位或原始請求體
func readUpload(c *gin.Context) ([]byte, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		return data, fh.Filename, err
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", common.NewValidationError("empty request body")
	}
	source := c.GetHeader("X-Filename")
	if source == "" {
		source = "upload"
	}
	return data, source, nil
}
