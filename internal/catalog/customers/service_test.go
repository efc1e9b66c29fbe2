package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	nextID    int64
	salesFor  map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]Customer{}, nextID: 1, salesFor: map[int64]bool{}}
}

func (m *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(_ context.Context, c Customer) (Customer, error) {
	c.ID = m.nextID
	m.nextID++
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(_ context.Context, c Customer) (Customer, error) {
	if _, ok := m.customers[c.ID]; !ok {
		return Customer{}, shared.ErrNotFound
	}
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.customers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *memoryRepo) HasSales(_ context.Context, id int64) (bool, error) {
	return m.salesFor[id], nil
}

func TestTierForThresholds(t *testing.T) {
	cases := []struct {
		spent float64
		want  Tier
	}{
		{0, TierStandard},
		{499.99, TierStandard},
		{500, TierBronze},
		{999.99, TierBronze},
		{1000, TierSilver},
		{2499.99, TierSilver},
		{2500, TierGold},
		{4999.99, TierGold},
		{5000, TierPlatinum},
		{12000, TierPlatinum},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TierFor(tc.spent), "spent %.2f", tc.spent)
	}
}

func TestPointsForSaleFloorsTotal(t *testing.T) {
	require.Equal(t, int64(0), PointsForSale(0))
	require.Equal(t, int64(0), PointsForSale(0.99))
	require.Equal(t, int64(45), PointsForSale(45.80))
	require.Equal(t, int64(100), PointsForSale(100))
	require.Equal(t, int64(0), PointsForSale(-5))
}

func TestCreateCustomerStartsOnStandardTier(t *testing.T) {
	svc := NewService(newMemoryRepo())

	created, err := svc.Create(context.Background(), CustomerForm{
		FirstName: "Rosa",
		LastName:  "Nguyen",
		Email:     "rosa@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, TierStandard, created.Tier)
	require.Zero(t, created.TotalSpent)
	require.Zero(t, created.LoyaltyPoints)
	require.True(t, created.IsActive)
}

func TestCreateCustomerRequiresContactFields(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CustomerForm{FirstName: "Rosa"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteCustomerWithSalesDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CustomerForm{
		FirstName: "Theo",
		LastName:  "Marsh",
		Email:     "theo@example.com",
	})
	require.NoError(t, err)
	repo.salesFor[created.ID] = true

	deactivated, err := svc.Delete(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, deactivated)

	kept, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, kept.IsActive)
}

func TestDeleteCustomerWithoutSalesRemoves(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CustomerForm{
		FirstName: "Iris",
		LastName:  "Okafor",
		Email:     "iris@example.com",
	})
	require.NoError(t, err)

	deactivated, err := svc.Delete(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, deactivated)

	_, err = repo.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateCustomerKeepsLoyaltyFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CustomerForm{
		FirstName: "Mae",
		LastName:  "Cole",
		Email:     "mae@example.com",
	})
	require.NoError(t, err)

	// Simulate loyalty accrual happening through the sale flow.
	accrued := created
	accrued.TotalSpent = 1200
	accrued.LoyaltyPoints = 1200
	accrued.Tier = TierSilver
	_, err = repo.Update(context.Background(), accrued)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, CustomerForm{
		FirstName: "Mae",
		LastName:  "Cole-Ferris",
		Email:     "mae@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "Cole-Ferris", updated.LastName)
	require.Equal(t, 1200.0, updated.TotalSpent)
	require.Equal(t, int64(1200), updated.LoyaltyPoints)
	require.Equal(t, TierSilver, updated.Tier)
}
