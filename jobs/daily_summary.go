package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/evergreen-pos/evergreen-pos/internal/jobs"
	"github.com/evergreen-pos/evergreen-pos/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SummarySource exposes the subset of the reports service the job needs.
type SummarySource interface {
	SalesSummary(ctx context.Context, period string, from, to *time.Time) (reports.SalesSummary, error)
	RefreshDashboard(ctx context.Context) (reports.DashboardSnapshot, error)
}

// DailySummaryJob computes a day's sales summary for the operational log and
// refreshes the cached dashboard snapshot.
type DailySummaryJob struct {
	Reports SummarySource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDailySummaryJob wires dependencies for the daily summary handler.
func NewDailySummaryJob(reportsSvc SummarySource, logger *slog.Logger, metrics *jobmetrics.Metrics) *DailySummaryJob {
	return &DailySummaryJob{
		Reports: reportsSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes daily summary tasks.
func (j *DailySummaryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("daily summary: handler not configured")
	}
	var payload DailySummaryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReportsDailySummary)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	day, err := j.resolveDay(payload)
	if err != nil {
		j.logger().Warn("daily summary: bad payload day", slog.String("day", payload.Day))
		return asynq.SkipRetry
	}
	from := day
	to := day.AddDate(0, 0, 1)

	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger := j.logger().With(slog.String("day", day.Format("2006-01-02")))
	summary, err := j.Reports.SalesSummary(jobCtx, "", &from, &to)
	if err != nil {
		resultErr = err
		logger.Error("compute daily summary", slog.Any("error", err))
		return resultErr
	}
	logger.Info("daily sales summary",
		slog.Int("sales", summary.SaleCount),
		slog.Float64("revenue", summary.TotalRevenue),
		slog.Float64("tax", summary.TotalTax),
		slog.Float64("average_sale", summary.AverageSale))

	snapshot, err := j.Reports.RefreshDashboard(jobCtx)
	if err != nil {
		resultErr = err
		logger.Error("refresh dashboard snapshot", slog.Any("error", err))
		return resultErr
	}
	logger.Info("dashboard snapshot refreshed",
		slog.String("snapshot_date", snapshot.Date),
		slog.Float64("revenue", snapshot.Revenue),
		slog.Int("low_stock", snapshot.LowStockCount))
	return resultErr
}

// resolveDay picks the payload's day, or the day before the run when unset.
func (j *DailySummaryJob) resolveDay(payload DailySummaryPayload) (time.Time, error) {
	if payload.Day != "" {
		return time.Parse("2006-01-02", payload.Day)
	}
	now := j.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -1), nil
}

func (j *DailySummaryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsDailySummary))
	}
	return slog.Default().With(slog.String("job", TaskReportsDailySummary))
}

func (j *DailySummaryJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DailySummaryJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
