// Package importqueue 以有界隊列與固定數量的 worker 執行價目表匯入。
package importqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/reconcile"
	"recipe-costing/internal/core/sheet"
	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/pkg/common"
	"recipe-costing/internal/pkg/metrics"

	"go.uber.org/zap"
)

// ErrClosed 隊列已關閉
var ErrClosed = errors.New("import queue is closed")

// Job 隊列中的匯入工作
type Job struct {
	Context context.Context
	Rows    []sheet.ImportRow
	Decider reconcile.Decider
	Source  string
	Result  chan Result
}

// Result 匯入結果；Summary 在失敗時仍會帶有部分統計
type Result struct {
	Summary *reconcile.Summary
	Error   error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 匯入隊列管理器
type Manager struct {
	config    config.ImportConfig
	store     catalog.Store
	queue     chan *Job
	processed int64
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

// NewManager 創建隊列並啟動 worker
func NewManager(cfg config.ImportConfig, store catalog.Store) *Manager {
	if cfg.QueueWorkers <= 0 {
		cfg.QueueWorkers = 1
	}
	if cfg.QueueMaxSize <= 0 {
		cfg.QueueMaxSize = 1
	}
	m := &Manager{
		config: cfg,
		store:  store,
		queue:  make(chan *Job, cfg.QueueMaxSize),
	}
	for i := 0; i < cfg.QueueWorkers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("匯入隊列已啟動",
		zap.Int("workers", cfg.QueueWorkers),
		zap.Int("max_queue_size", cfg.QueueMaxSize),
	)
	return m
}

// Enqueue 將匯入工作加入隊列，隊列已滿時立即返回 common.ErrImportQueueFull
func (m *Manager) Enqueue(ctx context.Context, rows []sheet.ImportRow, decider reconcile.Decider, source string) (<-chan Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	job := &Job{
		Context: ctx,
		Rows:    rows,
		Decider: decider,
		Source:  source,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- job:
		metrics.ImportQueueDepth.Set(float64(len(m.queue)))
		common.LogInfo("Import enqueued",
			zap.String("source", source),
			zap.Int("rows", len(rows)),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.QueueMaxSize),
		)
		return job.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		common.LogWarn("匯入隊列已滿", zap.Int("max_queue_size", m.config.QueueMaxSize))
		return nil, common.ErrImportQueueFull
	}
}

// Submit 加入隊列並等待結果
func (m *Manager) Submit(ctx context.Context, rows []sheet.ImportRow, decider reconcile.Decider, source string) (*reconcile.Summary, error) {
	result, err := m.Enqueue(ctx, rows, decider, source)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-result:
		return r.Summary, r.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for job := range m.queue {
		metrics.ImportQueueDepth.Set(float64(len(m.queue)))
		result := m.process(job)
		atomic.AddInt64(&m.processed, 1)
		job.Result <- result
		common.LogDebug("Import job processed", zap.Int("worker", id), zap.String("source", job.Source))
	}
}

func (m *Manager) process(job *Job) Result {
	ctx := job.Context
	if err := ctx.Err(); err != nil {
		return Result{Error: err}
	}
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	summary, err := reconcile.New(m.store, job.Decider, reconcile.WithSource(job.Source)).Run(ctx, job.Rows)
	common.LogDebug("Import job finished", zap.String("source", job.Source), zap.Duration("耗時", time.Since(start)))
	return Result{Summary: summary, Error: err}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.QueueMaxSize,
		Workers:        m.config.QueueWorkers,
	}
}

// Close 停止接受新工作，等待隊列中的工作完成
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	metrics.ImportQueueDepth.Set(0)
	common.LogInfo("匯入隊列已關閉", zap.Int64("processed", atomic.LoadInt64(&m.processed)))
}
