package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsDailySummary computes a day's sales summary and refreshes
	// the dashboard snapshot.
	TaskReportsDailySummary = "reports:daily_summary"
	// TaskInventoryLowStockScan flags products at or below minimum stock.
	TaskInventoryLowStockScan = "inventory:low_stock_scan"
)

// DailySummaryPayload selects the day to summarise. An empty Day means the
// day before the task runs, which is what the nightly cron wants.
type DailySummaryPayload struct {
	Day string `json:"day,omitempty"`
}

// NewDailySummaryTask constructs an Asynq task for the daily sales summary.
func NewDailySummaryTask(day time.Time) (*asynq.Task, error) {
	payload := DailySummaryPayload{}
	if !day.IsZero() {
		payload.Day = day.UTC().Format("2006-01-02")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsDailySummary, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryLowStockScan, body, asynq.Queue(QueueDefault)), nil
}
