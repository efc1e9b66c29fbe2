package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

type memoryRepo struct {
	products  map[int64]Product
	movements map[int64]bool
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}, movements: map[int64]bool{}}
}

func (m *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Product, int, error) {
	list := []Product{}
	for _, p := range m.products {
		list = append(list, p)
	}
	return list, len(list), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) GetByBarcode(_ context.Context, barcode string) (Product, error) {
	for _, p := range m.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, product Product) (Product, error) {
	m.nextID++
	product.ID = m.nextID
	m.products[product.ID] = product
	return product, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, product Product) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	m.products[id] = product
	return nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = active
	m.products[id] = p
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryRepo) HasMovements(_ context.Context, id int64) (bool, error) {
	return m.movements[id], nil
}

type memoryLink struct {
	attached []string
	detached []string
}

func (l *memoryLink) AttachProduct(_ context.Context, supplierID, productID int64) error {
	l.attached = append(l.attached, fmt.Sprintf("%d:%d", supplierID, productID))
	return nil
}

func (l *memoryLink) DetachProduct(_ context.Context, supplierID, productID int64) error {
	l.detached = append(l.detached, fmt.Sprintf("%d:%d", supplierID, productID))
	return nil
}

func validRequest() CreateProductRequest {
	return CreateProductRequest{
		Barcode:      "29910000016",
		Name:         "Monstera Deliciosa",
		Category:     "INDOOR_PLANT",
		CostPrice:    12.50,
		SellingPrice: 34.95,
		TaxRate:      10,
		MinimumStock: 5,
	}
}

func TestCreateProductDefaultsActive(t *testing.T) {
	repo := newMemoryRepo()
	link := &memoryLink{}
	svc := NewService(repo, nil, link)

	supplierID := int64(3)
	req := validRequest()
	req.SupplierID = &supplierID

	product, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.True(t, product.IsActive)
	require.Equal(t, 0, product.CurrentStock)
	require.Equal(t, []string{"3:1"}, link.attached)
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCreateProductRejectsUnknownCategory(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	req := validRequest()
	req.Category = "AQUATIC_PLANT"
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProductRunsBarcodeValidator(t *testing.T) {
	rejectAll := func(code string) error {
		return fmt.Errorf("%w: bad check digit in %s", shared.ErrValidation, code)
	}
	svc := NewService(newMemoryRepo(), rejectAll, nil)

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "bad check digit")
}

func TestUpdateProductMovesSupplierLink(t *testing.T) {
	repo := newMemoryRepo()
	link := &memoryLink{}
	svc := NewService(repo, nil, link)

	oldSupplier := int64(3)
	req := validRequest()
	req.SupplierID = &oldSupplier
	product, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	newSupplier := int64(9)
	updated, err := svc.Update(context.Background(), product.ID, UpdateProductRequest{
		Barcode:      product.Barcode,
		Name:         product.Name,
		Category:     string(product.Category),
		CostPrice:    product.CostPrice,
		SellingPrice: product.SellingPrice,
		TaxRate:      product.TaxRate,
		MinimumStock: product.MinimumStock,
		SupplierID:   &newSupplier,
		IsActive:     true,
	})
	require.NoError(t, err)
	require.Equal(t, newSupplier, *updated.SupplierID)
	require.Equal(t, []string{"3:1"}, link.detached)
	require.Equal(t, []string{"3:1", "9:1"}, link.attached)
}

func TestDeleteProductWithoutHistoryRemovesRow(t *testing.T) {
	repo := newMemoryRepo()
	link := &memoryLink{}
	svc := NewService(repo, nil, link)

	supplierID := int64(2)
	req := validRequest()
	req.SupplierID = &supplierID
	product, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	deactivated, err := svc.Delete(context.Background(), product.ID)
	require.NoError(t, err)
	require.False(t, deactivated)

	_, err = svc.Get(context.Background(), product.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, link.detached, "2:1")
}

func TestDeleteProductWithHistoryDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	product, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	repo.movements[product.ID] = true

	deactivated, err := svc.Delete(context.Background(), product.ID)
	require.NoError(t, err)
	require.True(t, deactivated)

	kept, err := svc.Get(context.Background(), product.ID)
	require.NoError(t, err)
	require.False(t, kept.IsActive)
}

func TestUpdateProductRejectsBarcodeOfAnotherProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	first, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	second := validRequest()
	second.Barcode = "29930000120"
	second.Name = "Echeveria Elegans"
	second.Category = "SUCCULENT"
	created, err := svc.Create(context.Background(), second)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, UpdateProductRequest{
		Barcode:      first.Barcode,
		Name:         created.Name,
		Category:     string(created.Category),
		CostPrice:    created.CostPrice,
		SellingPrice: created.SellingPrice,
		TaxRate:      created.TaxRate,
		MinimumStock: created.MinimumStock,
		IsActive:     true,
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}
