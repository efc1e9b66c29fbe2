package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

type mockReportRepo struct {
	count      int
	revenue    float64
	tax        float64
	discount   float64
	stamps     []SaleStamp
	categories []CategoryBucket
	methods    []MethodBucket
	top        []ProductRevenue
	typeTotals []TypeBucket
	low        []LowStockItem

	totalsCalls int
	stampCalls  int
	lowCalls    int
	lastFrom    time.Time
	lastTo      time.Time
}

func (m *mockReportRepo) SalesTotals(_ context.Context, from, to time.Time) (int, float64, float64, float64, error) {
	m.totalsCalls++
	m.lastFrom, m.lastTo = from, to
	return m.count, m.revenue, m.tax, m.discount, nil
}

func (m *mockReportRepo) SaleStamps(_ context.Context, _, _ time.Time) ([]SaleStamp, error) {
	m.stampCalls++
	return m.stamps, nil
}

func (m *mockReportRepo) SalesByCategory(_ context.Context, _, _ time.Time) ([]CategoryBucket, error) {
	return m.categories, nil
}

func (m *mockReportRepo) SalesByPaymentMethod(_ context.Context, _, _ time.Time) ([]MethodBucket, error) {
	return m.methods, nil
}

func (m *mockReportRepo) TopProducts(_ context.Context, _, _ time.Time, _ int) ([]ProductRevenue, error) {
	return m.top, nil
}

func (m *mockReportRepo) MovementTotals(_ context.Context, _ inventory.MovementFilter) ([]TypeBucket, error) {
	return m.typeTotals, nil
}

func (m *mockReportRepo) LowStock(_ context.Context) ([]LowStockItem, error) {
	m.lowCalls++
	return m.low, nil
}

type stubMovements struct {
	movements []inventory.Movement
}

func (s *stubMovements) List(_ context.Context, filter inventory.MovementFilter) ([]inventory.Movement, shared.Pagination, error) {
	return s.movements, shared.NewPagination(filter.Page, filter.PerPage, len(s.movements)), nil
}

var reportClock = func() time.Time {
	// A Saturday afternoon; the week began Monday 2025-03-10.
	return time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC)
}

func newReportService(t *testing.T, repo RepositoryPort) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, &stubMovements{}, cache).WithNow(reportClock)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestParsePeriodRanges(t *testing.T) {
	now := reportClock()

	from, to, err := ParsePeriod(PeriodDaily, now)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if got := from.Format("2006-01-02"); got != "2025-03-15" {
		t.Fatalf("daily start %s", got)
	}
	if to.Sub(from) != 24*time.Hour {
		t.Fatalf("daily span %v", to.Sub(from))
	}

	from, to, err = ParsePeriod(PeriodWeekly, now)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if got := from.Format("2006-01-02"); got != "2025-03-10" {
		t.Fatalf("weekly start %s, want Monday 2025-03-10", got)
	}
	if got := to.Format("2006-01-02"); got != "2025-03-17" {
		t.Fatalf("weekly end %s", got)
	}

	from, to, err = ParsePeriod(PeriodMonthly, now)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if got := from.Format("2006-01-02"); got != "2025-03-01" {
		t.Fatalf("monthly start %s", got)
	}
	if got := to.Format("2006-01-02"); got != "2025-04-01" {
		t.Fatalf("monthly end %s", got)
	}

	if _, _, err := ParsePeriod("fortnightly", now); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestSalesSummaryFoldsBuckets(t *testing.T) {
	repo := &mockReportRepo{
		count:    3,
		revenue:  150.0,
		tax:      15.0,
		discount: 5.0,
		stamps: []SaleStamp{
			{CreatedAt: time.Date(2025, 3, 14, 9, 15, 0, 0, time.UTC), Total: 40},
			{CreatedAt: time.Date(2025, 3, 15, 9, 45, 0, 0, time.UTC), Total: 60},
			{CreatedAt: time.Date(2025, 3, 15, 16, 5, 0, 0, time.UTC), Total: 50},
		},
		categories: []CategoryBucket{{Category: "INDOOR_PLANT", Quantity: 5, Revenue: 150}},
		methods:    []MethodBucket{{Method: "CASH", Count: 3, Amount: 150}},
		top:        []ProductRevenue{{ProductID: 1, Name: "Monstera Deliciosa", Quantity: 3, Revenue: 135}},
	}
	svc, cleanup := newReportService(t, repo)
	defer cleanup()

	summary, err := svc.SalesSummary(context.Background(), PeriodWeekly, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Period != PeriodWeekly {
		t.Fatalf("period %s", summary.Period)
	}
	if summary.SaleCount != 3 || summary.TotalRevenue != 150 {
		t.Fatalf("totals %d / %.2f", summary.SaleCount, summary.TotalRevenue)
	}
	if summary.AverageSale != 50 {
		t.Fatalf("average %.2f", summary.AverageSale)
	}

	if len(summary.ByDay) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(summary.ByDay))
	}
	if summary.ByDay[0].Date != "2025-03-14" || summary.ByDay[0].Revenue != 40 {
		t.Fatalf("first day bucket %+v", summary.ByDay[0])
	}
	if summary.ByDay[1].Date != "2025-03-15" || summary.ByDay[1].Count != 2 {
		t.Fatalf("second day bucket %+v", summary.ByDay[1])
	}

	if len(summary.ByHour) != 24 {
		t.Fatalf("expected 24 hour buckets, got %d", len(summary.ByHour))
	}
	if summary.ByHour[9].Count != 2 || summary.ByHour[9].Revenue != 100 {
		t.Fatalf("hour 9 bucket %+v", summary.ByHour[9])
	}
	if summary.ByHour[16].Count != 1 {
		t.Fatalf("hour 16 bucket %+v", summary.ByHour[16])
	}
	if summary.ByHour[3].Count != 0 {
		t.Fatalf("hour 3 should be empty: %+v", summary.ByHour[3])
	}

	if len(summary.ByCategory) != 1 || len(summary.ByPaymentMethod) != 1 || len(summary.TopProducts) != 1 {
		t.Fatal("breakdowns not carried through")
	}
}

func TestSalesSummaryCustomRange(t *testing.T) {
	repo := &mockReportRepo{}
	svc, cleanup := newReportService(t, repo)
	defer cleanup()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	summary, err := svc.SalesSummary(context.Background(), "whatever", &from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Period != "custom" {
		t.Fatalf("period %s", summary.Period)
	}
	if !repo.lastFrom.Equal(from) || !repo.lastTo.Equal(to) {
		t.Fatalf("range passed to repo: %v - %v", repo.lastFrom, repo.lastTo)
	}
}

func TestSalesSummaryRejectsEmptyRange(t *testing.T) {
	svc, cleanup := newReportService(t, &mockReportRepo{})
	defer cleanup()

	from := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SalesSummary(context.Background(), "", &from, &to); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestSalesSummaryAlwaysRecomputes(t *testing.T) {
	repo := &mockReportRepo{count: 1, revenue: 10}
	svc, cleanup := newReportService(t, repo)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.SalesSummary(ctx, PeriodDaily, nil, nil); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := svc.SalesSummary(ctx, PeriodDaily, nil, nil); err != nil {
		t.Fatalf("second: %v", err)
	}
	if repo.totalsCalls != 2 {
		t.Fatalf("report must recompute every request, totals queried %d times", repo.totalsCalls)
	}
}

func TestDashboardCachesSnapshot(t *testing.T) {
	repo := &mockReportRepo{
		count:   4,
		revenue: 220.0,
		low:     []LowStockItem{{ProductID: 3, Name: "Jade Plant", CurrentStock: 1, MinimumStock: 2, Deficit: 1}},
	}
	svc, cleanup := newReportService(t, repo)
	defer cleanup()

	ctx := context.Background()
	snapshot, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Revenue != 220 || snapshot.SaleCount != 4 || snapshot.LowStockCount != 1 {
		t.Fatalf("snapshot %+v", snapshot)
	}
	if snapshot.Date != "2025-03-15" {
		t.Fatalf("snapshot date %s", snapshot.Date)
	}
	if repo.totalsCalls != 1 {
		t.Fatalf("expected 1 compute, got %d", repo.totalsCalls)
	}

	// Second read hits the cache.
	if _, err := svc.Dashboard(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.totalsCalls != 1 {
		t.Fatalf("expected cached snapshot, computed %d times", repo.totalsCalls)
	}

	// A sale invalidates; the next read recomputes.
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	repo.revenue = 300
	snapshot, err = svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Revenue != 300 {
		t.Fatalf("expected refreshed revenue, got %.2f", snapshot.Revenue)
	}
	if repo.totalsCalls != 2 {
		t.Fatalf("expected recompute after bump, got %d", repo.totalsCalls)
	}
}

func TestRefreshDashboardWarmsCache(t *testing.T) {
	repo := &mockReportRepo{count: 2, revenue: 88.0}
	svc, cleanup := newReportService(t, repo)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.RefreshDashboard(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if repo.totalsCalls != 1 {
		t.Fatalf("expected 1 compute, got %d", repo.totalsCalls)
	}

	snapshot, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if snapshot.Revenue != 88 {
		t.Fatalf("snapshot %+v", snapshot)
	}
	if repo.totalsCalls != 1 {
		t.Fatalf("dashboard should read the warmed cache, computed %d times", repo.totalsCalls)
	}
}

func TestMovementSummaryCombinesTotalsAndListing(t *testing.T) {
	repo := &mockReportRepo{
		typeTotals: []TypeBucket{
			{Type: inventory.MovementReceived, Count: 2, Quantity: 30},
			{Type: inventory.MovementSold, Count: 5, Quantity: 9},
		},
	}
	mr := miniredis.RunT(t)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	movements := &stubMovements{movements: []inventory.Movement{
		{ID: 1, ProductID: 1, Type: inventory.MovementSold, Quantity: 2},
	}}
	svc := NewService(repo, movements, NewCache(client, time.Minute)).WithNow(reportClock)

	summary, err := svc.MovementSummary(context.Background(), inventory.MovementFilter{Page: 1, PerPage: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Totals) != 2 {
		t.Fatalf("totals %+v", summary.Totals)
	}
	if len(summary.Movements) != 1 || summary.Total != 1 {
		t.Fatalf("listing %+v", summary)
	}
}
