package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

// ============================================================================
// LIFECYCLE TEST SUITE
// ============================================================================

// SaleLifecycleTestSuite exercises full checkout workflows end to end:
// checkout → void and checkout → partial refund → full refund.
type SaleLifecycleTestSuite struct {
	suite.Suite
	service *Service
	repo    *mockRepository
	audit   *capturingAudit
	ctx     context.Context
}

// SetupTest runs before each test in the suite.
func (s *SaleLifecycleTestSuite) SetupTest() {
	s.repo = newMockRepository()
	seedNursery(s.repo)
	s.repo.customers[5] = &CustomerAccount{ID: 5, TotalSpent: 950, LoyaltyPoints: 950, Tier: "BRONZE"}
	s.audit = &capturingAudit{}
	s.service = newTestService(s.repo, s.audit)
	s.ctx = context.Background()
}

// TestCheckoutThenVoid walks a sale from checkout to void and verifies
// the stock ledger ends where it started.
func (s *SaleLifecycleTestSuite) TestCheckoutThenVoid() {
	t := s.T()

	// Step 1: Ring up a mixed basket for a loyalty customer.
	customerID := int64(5)
	req := CreateSaleRequest{
		CustomerID: &customerID,
		Items: []SaleItemRequest{
			{ProductID: 1, Quantity: 1},           // Monstera 45.00 @10%
			{Barcode: "29950000021", Quantity: 2}, // Pots 2 × 10.00 @15%
		},
		Payments: []PaymentRequest{
			{Method: PaymentMethodCash, Amount: 30.00},
			{Method: PaymentMethodCard, Amount: 42.00},
		},
	}

	sale, err := s.service.Create(s.ctx, req, 7, "")
	require.NoError(t, err)
	assert.Equal(t, SaleStatusCompleted, sale.Status)
	assert.InDelta(t, 65.00, sale.Subtotal, 0.01)
	assert.InDelta(t, 7.50, sale.TaxTotal, 0.01)
	assert.InDelta(t, 72.00, sale.Total, 0.01)
	require.Len(t, sale.Payments, 2)

	// Step 2: Loyalty crossed the SILVER threshold (950 + 72 = 1022).
	account := s.repo.customers[5]
	assert.InDelta(t, 1022.00, account.TotalSpent, 0.01)
	assert.Equal(t, int64(1022), account.LoyaltyPoints)
	assert.Equal(t, "SILVER", account.Tier)

	// Step 3: Stock moved out.
	assert.Equal(t, 19, s.repo.products[1].CurrentStock)
	assert.Equal(t, 48, s.repo.products[2].CurrentStock)

	// Step 4: Manager voids the sale.
	voided, err := s.service.Void(s.ctx, sale.ID, VoidSaleRequest{Reason: "trainee rang wrong basket"}, 9)
	require.NoError(t, err)
	assert.Equal(t, SaleStatusVoided, voided.Status)

	// Step 5: Stock is back, and the ledger shows matched SOLD/RETURNED pairs.
	assert.Equal(t, 20, s.repo.products[1].CurrentStock)
	assert.Equal(t, 50, s.repo.products[2].CurrentStock)
	for _, productID := range []int64{1, 2} {
		movements := s.repo.movementsFor(productID)
		require.Len(t, movements, 2)
		assert.Equal(t, inventory.MovementSold, movements[0].Type)
		assert.Equal(t, inventory.MovementReturned, movements[1].Type)
		assert.Equal(t, movements[0].Quantity, movements[1].Quantity)
		assert.Equal(t, movements[0].PreviousStock, movements[1].NewStock)
		assert.Equal(t, "VOID-"+sale.SaleNumber, movements[1].Reference)
	}

	// Step 6: Both operations hit the audit trail.
	require.Len(t, s.audit.logs, 2)
	assert.Equal(t, "sales:create", s.audit.logs[0].Action)
	assert.Equal(t, "sales:void", s.audit.logs[1].Action)
	assert.Equal(t, int64(9), s.audit.logs[1].ActorID)
}

// TestCheckoutThenRefundInStages refunds a sale one unit at a time and
// verifies the status transitions PARTIALLY_REFUNDED → REFUNDED.
func (s *SaleLifecycleTestSuite) TestCheckoutThenRefundInStages() {
	t := s.T()

	sale, err := s.service.Create(s.ctx, CreateSaleRequest{
		Items:    []SaleItemRequest{{ProductID: 3, Quantity: 3}},
		Payments: []PaymentRequest{{Method: PaymentMethodEFTPOS, Amount: 82.50}},
	}, 7, "")
	require.NoError(t, err)
	require.InDelta(t, 82.50, sale.Total, 0.01) // 3 × 25.00 @10%
	require.Equal(t, 0, s.repo.products[3].CurrentStock)

	// Stage 1: one unit back.
	partial, err := s.service.Refund(s.ctx, sale.ID, RefundSaleRequest{
		Items:  []RefundItemRequest{{ProductID: 3, Quantity: 1}},
		Reason: "root rot on arrival",
		Method: PaymentMethodEFTPOS,
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, SaleStatusPartiallyRefunded, partial.Status)
	assert.Equal(t, 1, s.repo.products[3].CurrentStock)
	require.Len(t, partial.Refunds, 1)
	assert.InDelta(t, 27.50, partial.Refunds[0].Total, 0.01)

	// Stage 2: the remaining two units.
	full, err := s.service.Refund(s.ctx, sale.ID, RefundSaleRequest{
		Items:  []RefundItemRequest{{ProductID: 3, Quantity: 2}},
		Reason: "remaining plants failed too",
		Method: PaymentMethodEFTPOS,
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, SaleStatusRefunded, full.Status)
	assert.Equal(t, 3, s.repo.products[3].CurrentStock)
	require.Len(t, full.Refunds, 2)

	// Refund totals across both stages equal the original sale total.
	var refunded float64
	for _, refund := range full.Refunds {
		refunded += refund.Total
	}
	assert.InDelta(t, sale.Total, refunded, 0.01)

	// Stage 3: nothing left to refund.
	_, err = s.service.Refund(s.ctx, sale.ID, RefundSaleRequest{
		Items:  []RefundItemRequest{{ProductID: 3, Quantity: 1}},
		Reason: "greedy",
		Method: PaymentMethodEFTPOS,
	}, 9)
	require.Error(t, err)
}

// TestSellDownToReorderPointThenOversell sells a product down to its reorder
// point, confirms it sits at low stock, and checks that overselling fails
// without touching the level.
func (s *SaleLifecycleTestSuite) TestSellDownToReorderPointThenOversell() {
	t := s.T()

	// 45 of 50 pots go out in one trade-sale basket.
	_, err := s.service.Create(s.ctx, CreateSaleRequest{
		Items:    []SaleItemRequest{{ProductID: 2, Quantity: 45}},
		Payments: []PaymentRequest{{Method: PaymentMethodCard, Amount: 517.50}},
	}, 7, "")
	require.NoError(t, err)
	assert.Equal(t, 5, s.repo.products[2].CurrentStock)

	// The pot now sits at or below its minimum of 10.
	product := s.repo.products[2]
	assert.LessOrEqual(t, product.CurrentStock, product.MinimumStock)

	// Ten more cannot be sold; the failed checkout leaves the level alone.
	_, err = s.service.Create(s.ctx, CreateSaleRequest{
		Items:    []SaleItemRequest{{ProductID: 2, Quantity: 10}},
		Payments: []PaymentRequest{{Method: PaymentMethodCard, Amount: 115.00}},
	}, 7, "")
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	assert.Equal(t, 5, s.repo.products[2].CurrentStock)
	require.Len(t, s.repo.movementsFor(2), 1)
}

// TestLedgerStaysConsistentAcrossSales runs several checkouts and checks the
// movement ledger chains cleanly per product: each entry starts where the
// previous one ended.
func (s *SaleLifecycleTestSuite) TestLedgerStaysConsistentAcrossSales() {
	t := s.T()

	for i := 0; i < 4; i++ {
		_, err := s.service.Create(s.ctx, CreateSaleRequest{
			Items:    []SaleItemRequest{{ProductID: 2, Quantity: 3}},
			Payments: []PaymentRequest{{Method: PaymentMethodCash, Amount: 34.50}},
		}, 7, "")
		require.NoError(t, err)
	}

	movements := s.repo.movementsFor(2)
	require.Len(t, movements, 4)
	previous := 50
	for _, movement := range movements {
		assert.Equal(t, previous, movement.PreviousStock)
		assert.Equal(t, previous-movement.Quantity, movement.NewStock)
		previous = movement.NewStock
	}
	assert.Equal(t, 38, s.repo.products[2].CurrentStock)
}

// TestSuite runner
func TestSaleLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(SaleLifecycleTestSuite))
}
