package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

const topProductLimit = 10

// Named report periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	periodCustom  = "custom"
)

// RepositoryPort abstracts the aggregation queries for the service.
type RepositoryPort interface {
	SalesTotals(ctx context.Context, from, to time.Time) (int, float64, float64, float64, error)
	SaleStamps(ctx context.Context, from, to time.Time) ([]SaleStamp, error)
	SalesByCategory(ctx context.Context, from, to time.Time) ([]CategoryBucket, error)
	SalesByPaymentMethod(ctx context.Context, from, to time.Time) ([]MethodBucket, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRevenue, error)
	MovementTotals(ctx context.Context, filter inventory.MovementFilter) ([]TypeBucket, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
}

// MovementLister supplies the paginated ledger listing the movement
// report embeds.
type MovementLister interface {
	List(ctx context.Context, filter inventory.MovementFilter) ([]inventory.Movement, shared.Pagination, error)
}

// Service recomputes reports from the raw ledgers and maintains the
// cached dashboard snapshot.
type Service struct {
	repo      RepositoryPort
	movements MovementLister
	cache     *Cache
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, movements MovementLister, cache *Cache) *Service {
	return &Service{
		repo:      repo,
		movements: movements,
		cache:     cache,
		now:       time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// ParsePeriod resolves a named period to a half-open UTC range relative
// to now: daily is today, weekly starts on Monday, monthly on the 1st.
func ParsePeriod(period string, now time.Time) (time.Time, time.Time, error) {
	day := midnight(now)
	switch period {
	case PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown report period %q", httpx.ErrValidation, period)
	}
}

// SalesSummary recomputes the sales report for a named period, or for
// an explicit [from, to) range when both bounds are given.
func (s *Service) SalesSummary(ctx context.Context, period string, from, to *time.Time) (SalesSummary, error) {
	var start, end time.Time
	if from != nil && to != nil {
		start, end = from.UTC(), to.UTC()
		period = periodCustom
	} else {
		var err error
		start, end, err = ParsePeriod(period, s.now().UTC())
		if err != nil {
			return SalesSummary{}, err
		}
	}
	if !end.After(start) {
		return SalesSummary{}, fmt.Errorf("%w: report range is empty", httpx.ErrValidation)
	}

	summary := SalesSummary{Period: period, From: start, To: end}
	var stamps []SaleStamp

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, revenue, tax, discount, err := s.repo.SalesTotals(gctx, start, end)
		if err != nil {
			return err
		}
		summary.SaleCount = count
		summary.TotalRevenue = revenue
		summary.TotalTax = tax
		summary.TotalDiscount = discount
		return nil
	})
	g.Go(func() error {
		var err error
		stamps, err = s.repo.SaleStamps(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ByCategory, err = s.repo.SalesByCategory(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ByPaymentMethod, err = s.repo.SalesByPaymentMethod(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		summary.TopProducts, err = s.repo.TopProducts(gctx, start, end, topProductLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return SalesSummary{}, err
	}

	summary.ByDay, summary.ByHour = foldBuckets(stamps)
	if summary.SaleCount > 0 {
		summary.AverageSale = summary.TotalRevenue / float64(summary.SaleCount)
	}
	return summary, nil
}

// MovementSummary returns the filtered ledger listing with per-type totals.
func (s *Service) MovementSummary(ctx context.Context, filter inventory.MovementFilter) (MovementSummary, error) {
	totals, err := s.repo.MovementTotals(ctx, filter)
	if err != nil {
		return MovementSummary{}, err
	}
	movements, pagination, err := s.movements.List(ctx, filter)
	if err != nil {
		return MovementSummary{}, err
	}
	return MovementSummary{
		Totals:     totals,
		Movements:  movements,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		Total:      pagination.Total,
		TotalPages: pagination.TotalPages,
	}, nil
}

// LowStock lists active products at or below their reorder threshold.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	return s.repo.LowStock(ctx)
}

// Dashboard serves today's snapshot, computing and caching it on a miss.
func (s *Service) Dashboard(ctx context.Context) (DashboardSnapshot, error) {
	today := s.now().UTC()
	key, err := s.cache.BuildKey(ctx, keyDashboard(today))
	if err != nil {
		return DashboardSnapshot{}, err
	}
	var snapshot DashboardSnapshot
	err = s.cache.FetchJSON(ctx, key, &snapshot, func(ctx context.Context) (interface{}, error) {
		return s.computeDashboard(ctx, today)
	})
	if err != nil {
		return DashboardSnapshot{}, err
	}
	return snapshot, nil
}

// RefreshDashboard recomputes the snapshot and overwrites the cached
// copy. The worker's cron calls it so reads stay warm.
func (s *Service) RefreshDashboard(ctx context.Context) (DashboardSnapshot, error) {
	today := s.now().UTC()
	snapshot, err := s.computeDashboard(ctx, today)
	if err != nil {
		return DashboardSnapshot{}, err
	}
	key, err := s.cache.BuildKey(ctx, keyDashboard(today))
	if err != nil {
		return DashboardSnapshot{}, err
	}
	if err := s.cache.StoreJSON(ctx, key, snapshot); err != nil {
		return DashboardSnapshot{}, err
	}
	return snapshot, nil
}

// Invalidate bumps the cache version after a sale mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) computeDashboard(ctx context.Context, day time.Time) (DashboardSnapshot, error) {
	start := midnight(day)
	end := start.AddDate(0, 0, 1)

	count, revenue, _, _, err := s.repo.SalesTotals(ctx, start, end)
	if err != nil {
		return DashboardSnapshot{}, err
	}
	low, err := s.repo.LowStock(ctx)
	if err != nil {
		return DashboardSnapshot{}, err
	}
	return DashboardSnapshot{
		Date:          start.Format("2006-01-02"),
		Revenue:       revenue,
		SaleCount:     count,
		LowStockCount: len(low),
		GeneratedAt:   s.now().UTC(),
	}, nil
}

// foldBuckets folds per-sale stamps into day and hour-of-day buckets.
// Hours always cover 0-23 so charts stay aligned; days appear only when
// they saw sales, in chronological order.
func foldBuckets(stamps []SaleStamp) ([]DayBucket, []HourBucket) {
	hours := make([]HourBucket, 24)
	for i := range hours {
		hours[i].Hour = i
	}

	dayIndex := map[string]int{}
	var days []DayBucket
	for _, stamp := range stamps {
		at := stamp.CreatedAt.UTC()
		day := at.Format("2006-01-02")
		idx, ok := dayIndex[day]
		if !ok {
			idx = len(days)
			dayIndex[day] = idx
			days = append(days, DayBucket{Date: day})
		}
		days[idx].Count++
		days[idx].Revenue += stamp.Total

		hours[at.Hour()].Count++
		hours[at.Hour()].Revenue += stamp.Total
	}
	return days, hours
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
