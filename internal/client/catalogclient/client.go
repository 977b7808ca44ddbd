// Package catalogclient 透過 HTTP 存取遠端目錄服務，讓匯入 CLI 可以直接寫入執行中的服務。
package catalogclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// Client 以 REST API 實作 catalog.Store
type Client struct {
	client *resty.Client
}

// New 創建目錄客戶端
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+apiPrefix).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "recipe-costing-importer")

	return &Client{client: client}
}

// ListSuppliers 列出供應商
func (c *Client) ListSuppliers(ctx context.Context) ([]catalog.Supplier, error) {
	var out []catalog.Supplier
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&common.ErrorResponse{}).
		Get("/suppliers")
	if err := checkResponse(resp, err, "list suppliers"); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertSupplierByName 依名稱建立或觸碰供應商
func (c *Client) UpsertSupplierByName(ctx context.Context, name string) (*catalog.Supplier, error) {
	var out catalog.Supplier
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": name}).
		SetResult(&out).
		SetError(&common.ErrorResponse{}).
		Post("/suppliers")
	if err := checkResponse(resp, err, "upsert supplier"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSupplierProducts 列出供應商的產品
func (c *Client) ListSupplierProducts(ctx context.Context, supplierID string) ([]catalog.SupplierProduct, error) {
	var out []catalog.SupplierProduct
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("supplierId", supplierID).
		SetResult(&out).
		SetError(&common.ErrorResponse{}).
		Get("/suppliers/{supplierId}/products")
	if err := checkResponse(resp, err, "list supplier products"); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertSupplierProduct 建立或部分更新產品
func (c *Client) UpsertSupplierProduct(ctx context.Context, supplierID string, in catalog.ProductInput) (*catalog.SupplierProduct, error) {
	var out catalog.SupplierProduct
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("supplierId", supplierID).
		SetBody(in).
		SetResult(&out).
		SetError(&common.ErrorResponse{}).
		Post("/suppliers/{supplierId}/products")
	if err := checkResponse(resp, err, "upsert supplier product"); err != nil {
		return nil, err
	}
	return &out, nil
}

// checkResponse 將傳輸錯誤與 HTTP 狀態轉為目錄錯誤
func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		var urlErr *url.Error
		common.LogError("Catalog request failed", zap.String("op", op), zap.Error(err))
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("%s: %w", op, common.ErrGatewayTimeout.WithError(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	message := resp.Status()
	if e, ok := resp.Error().(*common.ErrorResponse); ok && e.Message != "" {
		message = e.Code + ": " + e.Message
		if e.Details != "" {
			message += " (" + e.Details + ")"
		}
	}

	common.LogWarn("Catalog service returned error status",
		zap.String("op", op),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("message", message),
	)

	switch resp.StatusCode() {
	case http.StatusNotFound:
		sentinel := catalog.ErrNotFound
		if e, ok := resp.Error().(*common.ErrorResponse); ok {
			switch e.Code {
			case common.ErrSupplierNotFound.Code:
				sentinel = catalog.ErrSupplierNotFound
			case common.ErrProductNotFound.Code:
				sentinel = catalog.ErrProductNotFound
			}
		}
		return fmt.Errorf("%s: %s: %w", op, message, sentinel)
	case http.StatusConflict:
		return fmt.Errorf("%s: %s: %w", op, message, catalog.ErrConflict)
	case http.StatusBadRequest:
		if e, ok := resp.Error().(*common.ErrorResponse); ok && e.Code == common.ErrInvalidName.Code {
			return fmt.Errorf("%s: %w", op, catalog.ErrInvalidName)
		}
	}
	return fmt.Errorf("%s: catalog service error (status %d): %s", op, resp.StatusCode(), message)
}
