package order

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/user"
	"github.com/soundcraft/server/internal/shared/events"
	"github.com/soundcraft/server/internal/shared/mail"
	"github.com/soundcraft/server/internal/shared/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.New("order_test")

// --- Fakes ---

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
	stocks *fakeCatalogRepo
}

func newFakeOrderRepo(stocks *fakeCatalogRepo) *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*Order), stocks: stocks}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.PaymentReferenceID == o.PaymentReferenceID {
			return assert.AnError
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByReferenceID(_ context.Context, ref string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentReferenceID == ref {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, offset, limit int) ([]*Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var orders []*Order
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return orders, int64(len(orders)), nil
}

func (r *fakeOrderRepo) List(_ context.Context, status OrderStatus, offset, limit int) ([]*Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var orders []*Order
	for _, o := range r.orders {
		if status == "" || o.Status == status {
			orders = append(orders, o)
		}
	}
	return orders, int64(len(orders)), nil
}

// Complete mirrors the production CAS semantics: the flip happens only
// from pending, and stock decrements clamp at zero.
func (r *fakeOrderRepo) Complete(_ context.Context, id uuid.UUID, transactionCode string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != OrderStatusPending {
		return nil, ErrAlreadySettled
	}
	o.Status = OrderStatusCompleted
	o.TransactionCode = transactionCode
	for _, item := range o.Items {
		r.stocks.decrement(item.ProductID, item.Quantity)
	}
	return o, nil
}

func (r *fakeOrderRepo) Fail(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != OrderStatusPending {
		return nil, ErrAlreadySettled
	}
	o.Status = OrderStatusFailed
	return o, nil
}

type fakeCatalogRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
}

func newFakeCatalogRepo(products ...*catalog.Product) *fakeCatalogRepo {
	r := &fakeCatalogRepo{products: make(map[uuid.UUID]*catalog.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeCatalogRepo) decrement(id uuid.UUID, qty int) {
	if p, ok := r.products[id]; ok {
		p.Stock -= qty
		if p.Stock < 0 {
			p.Stock = 0
		}
	}
}

func (r *fakeCatalogRepo) GetProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeCatalogRepo) CreateProduct(context.Context, *catalog.Product) error { return nil }
func (r *fakeCatalogRepo) ListProducts(context.Context, *catalog.ProductFilter) ([]*catalog.Product, int64, error) {
	return nil, 0, nil
}
func (r *fakeCatalogRepo) UpdateProduct(context.Context, *catalog.Product) error  { return nil }
func (r *fakeCatalogRepo) DeleteProduct(context.Context, uuid.UUID) error         { return nil }
func (r *fakeCatalogRepo) SetStock(context.Context, uuid.UUID, int) error         { return nil }
func (r *fakeCatalogRepo) LowStock(context.Context, int, int) ([]*catalog.Product, error) {
	return nil, nil
}
func (r *fakeCatalogRepo) CreateCategory(context.Context, *catalog.Category) error { return nil }
func (r *fakeCatalogRepo) GetCategory(context.Context, uuid.UUID) (*catalog.Category, error) {
	return &catalog.Category{}, nil
}
func (r *fakeCatalogRepo) ListCategories(context.Context) ([]*catalog.Category, error) {
	return nil, nil
}
func (r *fakeCatalogRepo) UpdateCategory(context.Context, *catalog.Category) error { return nil }
func (r *fakeCatalogRepo) DeleteCategory(context.Context, uuid.UUID) error         { return nil }

type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Create(context.Context, *user.User) error { return nil }
func (r *fakeUserRepo) GetByEmail(context.Context, string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}
func (r *fakeUserRepo) Update(context.Context, *user.User) error { return nil }
func (r *fakeUserRepo) Delete(context.Context, uuid.UUID) error  { return nil }
func (r *fakeUserRepo) List(context.Context, int, int) ([]*user.User, int64, error) {
	return nil, 0, nil
}
func (r *fakeUserRepo) SetAdmin(context.Context, uuid.UUID, bool) error { return nil }
func (r *fakeUserRepo) MarkVerified(context.Context, uuid.UUID) error   { return nil }
func (r *fakeUserRepo) Count(context.Context) (int64, error)            { return 0, nil }

// --- Test setup ---

func newTestService(t *testing.T, products ...*catalog.Product) (*Service, *fakeOrderRepo, *fakeCatalogRepo) {
	t.Helper()
	catalogRepo := newFakeCatalogRepo(products...)
	orderRepo := newFakeOrderRepo(catalogRepo)
	userID := uuid.New()
	users := &fakeUserRepo{users: map[uuid.UUID]*user.User{
		userID: {ID: userID, Name: "Test", Email: "test@example.com"},
	}}
	svc := NewService(
		orderRepo,
		catalogRepo,
		users,
		events.NopPublisher{},
		mail.NewNoOpMailer(zap.NewNop()),
		testMetrics,
		zap.NewNop(),
	)
	return svc, orderRepo, catalogRepo
}

// --- Tests ---

func TestService_CreatePending(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
	strings := &catalog.Product{ID: uuid.New(), Name: "Strings", PricePaisa: 2500, Stock: 5}

	t.Run("re-prices items and sums the total", func(t *testing.T) {
		svc, _, _ := newTestService(t, guitar, strings)

		order, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, []ItemRequest{
			{ProductID: guitar.ID, Quantity: 2},
			{ProductID: strings.ID, Quantity: 1},
		})
		require.NoError(t, err)

		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, int64(12500), order.AmountPaisa)
		assert.Equal(t, order.AmountPaisa, Total(order.Items))
		assert.NotEmpty(t, order.PaymentReferenceID)
		assert.NotEmpty(t, order.OrderNumber)
	})

	t.Run("distinct orders get distinct reference ids", func(t *testing.T) {
		svc, _, _ := newTestService(t, guitar)

		a, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, []ItemRequest{
			{ProductID: guitar.ID, Quantity: 1},
		})
		require.NoError(t, err)
		b, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodKhalti, []ItemRequest{
			{ProductID: guitar.ID, Quantity: 1},
		})
		require.NoError(t, err)

		assert.NotEqual(t, a.PaymentReferenceID, b.PaymentReferenceID)
	})

	t.Run("rejects empty orders", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
	})

	t.Run("rejects unknown products", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, []ItemRequest{
			{ProductID: uuid.New(), Quantity: 1},
		})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("rejects quantities above stock", func(t *testing.T) {
		low := &catalog.Product{ID: uuid.New(), Name: "Rare", PricePaisa: 1000, Stock: 1}
		svc, _, _ := newTestService(t, low)
		_, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, []ItemRequest{
			{ProductID: low.ID, Quantity: 2},
		})
		assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	})
}

func TestService_Complete(t *testing.T) {
	t.Run("completes and decrements stock with clamp", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		pick := &catalog.Product{ID: uuid.New(), Name: "Pick", PricePaisa: 100, Stock: 1}
		svc, _, catalogRepo := newTestService(t, guitar, pick)

		order, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, []ItemRequest{
			{ProductID: guitar.ID, Quantity: 3},
			{ProductID: pick.ID, Quantity: 1},
		})
		require.NoError(t, err)

		// Stock moved between initiation and settlement.
		catalogRepo.products[pick.ID].Stock = 0

		completed, err := svc.Complete(context.Background(), order.PaymentReferenceID, "TXN-001")
		require.NoError(t, err)

		assert.Equal(t, OrderStatusCompleted, completed.Status)
		assert.Equal(t, "TXN-001", completed.TransactionCode)
		assert.Equal(t, 7, catalogRepo.products[guitar.ID].Stock)
		assert.Equal(t, 0, catalogRepo.products[pick.ID].Stock)
	})

	t.Run("second completion is a no-op", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		svc, _, catalogRepo := newTestService(t, guitar)

		order, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodEsewa, []ItemRequest{
			{ProductID: guitar.ID, Quantity: 3},
		})
		require.NoError(t, err)

		_, err = svc.Complete(context.Background(), order.PaymentReferenceID, "TXN-001")
		require.NoError(t, err)
		require.Equal(t, 7, catalogRepo.products[guitar.ID].Stock)

		settled, err := svc.Complete(context.Background(), order.PaymentReferenceID, "TXN-001")
		assert.ErrorIs(t, err, ErrAlreadySettled)
		assert.Equal(t, OrderStatusCompleted, settled.Status)
		assert.Equal(t, 7, catalogRepo.products[guitar.ID].Stock, "stock must not decrement twice")
	})

	t.Run("unknown reference mutates nothing", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		svc, _, catalogRepo := newTestService(t, guitar)

		_, err := svc.Complete(context.Background(), "no-such-reference", "TXN-001")
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.Equal(t, 10, catalogRepo.products[guitar.ID].Stock)
	})
}

func TestService_Fail(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
	svc, _, catalogRepo := newTestService(t, guitar)

	order, err := svc.CreatePending(context.Background(), uuid.New(), PaymentMethodKhalti, []ItemRequest{
		{ProductID: guitar.ID, Quantity: 2},
	})
	require.NoError(t, err)

	failed, err := svc.Fail(context.Background(), order.PaymentReferenceID, "gateway declined")
	require.NoError(t, err)

	assert.Equal(t, OrderStatusFailed, failed.Status)
	assert.Equal(t, 10, catalogRepo.products[guitar.ID].Stock, "failed orders never touch stock")

	// A failed order cannot be completed afterwards.
	settled, err := svc.Complete(context.Background(), order.PaymentReferenceID, "TXN-001")
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, OrderStatusFailed, settled.Status)
}

func TestService_Get(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
	svc, _, _ := newTestService(t, guitar)

	owner := uuid.New()
	order, err := svc.CreatePending(context.Background(), owner, PaymentMethodEsewa, []ItemRequest{
		{ProductID: guitar.ID, Quantity: 1},
	})
	require.NoError(t, err)

	t.Run("owner sees the order", func(t *testing.T) {
		resp, err := svc.Get(context.Background(), order.ID, owner, false)
		require.NoError(t, err)
		assert.Equal(t, order.ID, resp.ID)
		assert.Equal(t, "50.00", resp.Amount)
	})

	t.Run("stranger gets not found", func(t *testing.T) {
		_, err := svc.Get(context.Background(), order.ID, uuid.New(), false)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("admin sees any order", func(t *testing.T) {
		resp, err := svc.Get(context.Background(), order.ID, uuid.New(), true)
		require.NoError(t, err)
		assert.Equal(t, order.ID, resp.ID)
	})
}
