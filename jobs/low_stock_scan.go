package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/evergreen-pos/evergreen-pos/internal/jobs"
	"github.com/evergreen-pos/evergreen-pos/internal/reports"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// lowStockSeenKey remembers which products the previous scan already flagged,
// so staff are only prompted once per dip below minimum.
const lowStockSeenKey = "jobs:low_stock:seen"

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LowStockSource exposes the subset of the reports service the scan needs.
type LowStockSource interface {
	LowStock(ctx context.Context) ([]reports.LowStockItem, error)
}

// LowStockScanJob flags active products at or below their minimum stock and
// records a reorder prompt for each product that newly dipped.
type LowStockScanJob struct {
	Reports LowStockSource
	Redis   *redis.Client
	Audit   AuditPort
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(reportsSvc LowStockSource, redisClient *redis.Client, audit AuditPort, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{
		Reports: reportsSvc,
		Redis:   redisClient,
		Audit:   audit,
		Logger:  logger,
		Metrics: metrics,
	}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskInventoryLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger := j.logger()
	items, err := j.Reports.LowStock(jobCtx)
	if err != nil {
		resultErr = err
		logger.Error("list low stock products", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetLowStockCount(len(items))

	seen, err := j.previouslyFlagged(jobCtx)
	if err != nil {
		resultErr = err
		logger.Error("load previous scan state", slog.Any("error", err))
		return resultErr
	}

	prompted := 0
	for _, item := range items {
		if seen[item.ProductID] {
			continue
		}
		if err := j.recordPrompt(jobCtx, item); err != nil {
			resultErr = err
			logger.Error("record reorder prompt",
				slog.Int64("product_id", item.ProductID),
				slog.Any("error", err))
			return resultErr
		}
		prompted++
	}

	if err := j.storeFlagged(jobCtx, items); err != nil {
		resultErr = err
		logger.Error("store scan state", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed low stock scan",
		slog.Int("low_stock", len(items)),
		slog.Int("newly_flagged", prompted))
	return resultErr
}

func (j *LowStockScanJob) recordPrompt(ctx context.Context, item reports.LowStockItem) error {
	if j.Audit == nil {
		return nil
	}
	return j.Audit.Record(ctx, shared.AuditLog{
		Action:   "inventory:low_stock",
		Entity:   "product",
		EntityID: strconv.FormatInt(item.ProductID, 10),
		Meta: map[string]any{
			"name":          item.Name,
			"barcode":       item.Barcode,
			"current_stock": item.CurrentStock,
			"minimum_stock": item.MinimumStock,
			"deficit":       item.Deficit,
		},
	})
}

// previouslyFlagged loads the product ids flagged by the last scan.
func (j *LowStockScanJob) previouslyFlagged(ctx context.Context) (map[int64]bool, error) {
	seen := make(map[int64]bool)
	if j.Redis == nil {
		return seen, nil
	}
	members, err := j.Redis.SMembers(ctx, lowStockSeenKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		seen[id] = true
	}
	return seen, nil
}

// storeFlagged replaces the scan state with the current low set, so products
// that recover and dip again are prompted again.
func (j *LowStockScanJob) storeFlagged(ctx context.Context, items []reports.LowStockItem) error {
	if j.Redis == nil {
		return nil
	}
	pipe := j.Redis.TxPipeline()
	pipe.Del(ctx, lowStockSeenKey)
	if len(items) > 0 {
		members := make([]any, 0, len(items))
		for _, item := range items {
			members = append(members, strconv.FormatInt(item.ProductID, 10))
		}
		pipe.SAdd(ctx, lowStockSeenKey, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskInventoryLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
