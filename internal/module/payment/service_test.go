package payment

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/module/payment/provider"
	"github.com/soundcraft/server/internal/module/user"
	"github.com/soundcraft/server/internal/shared/config"
	"github.com/soundcraft/server/internal/shared/events"
	"github.com/soundcraft/server/internal/shared/mail"
	"github.com/soundcraft/server/internal/shared/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.New("payment_test")

// --- Fakes ---

// fakeProvider is a scriptable gateway: tests set the initiate and
// verify outcomes before exercising the flow.
type fakeProvider struct {
	name           string
	initiateResult *provider.InitiateResult
	initiateErr    error
	verifyResult   *provider.VerifyResult
	verifyErr      error
	verifyCalls    int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Initiate(_ context.Context, _ *provider.InitiateRequest) (*provider.InitiateResult, error) {
	if p.initiateErr != nil {
		return nil, p.initiateErr
	}
	if p.initiateResult != nil {
		return p.initiateResult, nil
	}
	return &provider.InitiateResult{PaymentURL: "https://gateway.example.com/pay"}, nil
}

func (p *fakeProvider) Verify(_ context.Context, req *provider.VerifyRequest) (*provider.VerifyResult, error) {
	p.verifyCalls++
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	result := *p.verifyResult
	if result.AmountPaisa == 0 {
		result.AmountPaisa = req.AmountPaisa
	}
	return &result, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
	stocks *fakeCatalogRepo
}

func newFakeOrderRepo(stocks *fakeCatalogRepo) *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*order.Order), stocks: stocks}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByReferenceID(_ context.Context, ref string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentReferenceID == ref {
			return o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, offset, limit int) ([]*order.Order, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) List(_ context.Context, status order.OrderStatus, offset, limit int) ([]*order.Order, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) Complete(_ context.Context, id uuid.UUID, transactionCode string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	if o.Status != order.OrderStatusPending {
		return nil, order.ErrAlreadySettled
	}
	o.Status = order.OrderStatusCompleted
	o.TransactionCode = transactionCode
	for _, item := range o.Items {
		r.stocks.decrement(item.ProductID, item.Quantity)
	}
	return o, nil
}

func (r *fakeOrderRepo) Fail(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	if o.Status != order.OrderStatusPending {
		return nil, order.ErrAlreadySettled
	}
	o.Status = order.OrderStatusFailed
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
func (r *fakeCatalogRepo) UpdateProduct(context.Context, *catalog.Product) error { return nil }
func (r *fakeCatalogRepo) DeleteProduct(context.Context, uuid.UUID) error        { return nil }
func (r *fakeCatalogRepo) SetStock(context.Context, uuid.UUID, int) error        { return nil }
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

type fakeUserRepo struct{}

func (fakeUserRepo) Create(context.Context, *user.User) error { return nil }
func (fakeUserRepo) GetByID(context.Context, uuid.UUID) (*user.User, error) {
	return nil, user.ErrUserNotFound
}
func (fakeUserRepo) GetByEmail(context.Context, string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}
func (fakeUserRepo) Update(context.Context, *user.User) error { return nil }
func (fakeUserRepo) Delete(context.Context, uuid.UUID) error  { return nil }
func (fakeUserRepo) List(context.Context, int, int) ([]*user.User, int64, error) {
	return nil, 0, nil
}
func (fakeUserRepo) SetAdmin(context.Context, uuid.UUID, bool) error { return nil }
func (fakeUserRepo) MarkVerified(context.Context, uuid.UUID) error   { return nil }
func (fakeUserRepo) Count(context.Context) (int64, error)            { return 0, nil }

// --- Test setup ---

type testEnv struct {
	svc     *Service
	esewa   *fakeProvider
	khalti  *fakeProvider
	catalog *fakeCatalogRepo
	orders  *order.Service
}

func newTestEnv(t *testing.T, products ...*catalog.Product) *testEnv {
	t.Helper()

	catalogRepo := newFakeCatalogRepo(products...)
	orderSvc := order.NewService(
		newFakeOrderRepo(catalogRepo),
		catalogRepo,
		fakeUserRepo{},
		events.NopPublisher{},
		mail.NewNoOpMailer(zap.NewNop()),
		testMetrics,
		zap.NewNop(),
	)

	esewa := &fakeProvider{name: "esewa"}
	khalti := &fakeProvider{name: "khalti"}
	registry := NewRegistry()
	registry.Register(esewa)
	registry.Register(khalti)

	svc := NewService(
		orderSvc,
		registry,
		&config.ServerConfig{PublicURL: "https://shop.example.com"},
		&config.FrontendConfig{
			BaseURL:     "https://soundcraft.example.com",
			SuccessPath: "/payment/success",
			FailurePath: "/payment/failure",
		},
		testMetrics,
		zap.NewNop(),
	)

	return &testEnv{svc: svc, esewa: esewa, khalti: khalti, catalog: catalogRepo, orders: orderSvc}
}

func (e *testEnv) pendingOrder(t *testing.T, items ...order.ItemRequest) *order.Order {
	t.Helper()
	o, err := e.orders.CreatePending(context.Background(), uuid.New(), order.PaymentMethodEsewa, items)
	require.NoError(t, err)
	return o
}

// esewaCallbackData encodes a redirect blob the way the gateway does.
func esewaCallbackData(t *testing.T, referenceID, status string) string {
	t.Helper()
	blob := `{"transaction_code":"C-1","status":"` + status + `","transaction_uuid":"` + referenceID + `","product_code":"EPAYTEST"}`
	return base64.StdEncoding.EncodeToString([]byte(blob))
}

func redirectQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}

// --- Tests ---

func TestService_Initiate(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
	strings := &catalog.Product{ID: uuid.New(), Name: "Strings", PricePaisa: 2500, Stock: 5}

	t.Run("creates a pending order before contacting the gateway", func(t *testing.T) {
		env := newTestEnv(t, guitar, strings)

		resp, err := env.svc.Initiate(context.Background(), uuid.New(), order.PaymentMethodKhalti, []order.ItemRequest{
			{ProductID: guitar.ID, Quantity: 2},
			{ProductID: strings.ID, Quantity: 1},
		})
		require.NoError(t, err)

		assert.Equal(t, "pending", string(resp.Order.Status))
		assert.Equal(t, "125.00", resp.Order.Amount)
		assert.NotEmpty(t, resp.Order.PaymentReferenceID)
		assert.Equal(t, "https://gateway.example.com/pay", resp.Payment.PaymentURL)

		// The order survives even though nothing settled yet.
		stored, err := env.orders.GetByReferenceID(context.Background(), resp.Order.PaymentReferenceID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusPending, stored.Status)
	})

	t.Run("gateway failure leaves a reconcilable pending order", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		env.esewa.initiateErr = assert.AnError

		_, err := env.svc.Initiate(context.Background(), uuid.New(), order.PaymentMethodEsewa, []order.ItemRequest{
			{ProductID: guitar.ID, Quantity: 1},
		})
		assert.Error(t, err)
	})

	t.Run("rejects unsupported methods", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		_, err := env.svc.Initiate(context.Background(), uuid.New(), order.PaymentMethod("cash"), []order.ItemRequest{
			{ProductID: guitar.ID, Quantity: 1},
		})
		assert.ErrorIs(t, err, ErrUnsupportedMethod)
	})
}

func TestService_VerifyEsewa(t *testing.T) {
	t.Run("settled payment completes the order and decrements stock", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		pick := &catalog.Product{ID: uuid.New(), Name: "Pick", PricePaisa: 100, Stock: 1}
		env := newTestEnv(t, guitar, pick)
		o := env.pendingOrder(t,
			order.ItemRequest{ProductID: guitar.ID, Quantity: 3},
			order.ItemRequest{ProductID: pick.ID, Quantity: 1},
		)
		env.esewa.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "0001ABC", RawStatus: "COMPLETE"}

		outcome, err := env.svc.VerifyEsewa(context.Background(), esewaCallbackData(t, o.PaymentReferenceID, "COMPLETE"))
		require.NoError(t, err)

		assert.True(t, outcome.Settled)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/success?"))
		query := redirectQuery(t, outcome.RedirectURL)
		assert.Equal(t, "0001ABC", query.Get("transaction_code"))
		assert.Equal(t, "151.00", query.Get("total_amount"))
		assert.Equal(t, o.PaymentReferenceID, query.Get("transaction_uuid"))

		assert.Equal(t, 7, env.catalog.products[guitar.ID].Stock)
		assert.Equal(t, 0, env.catalog.products[pick.ID].Stock)

		stored, err := env.orders.GetByReferenceID(context.Background(), o.PaymentReferenceID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCompleted, stored.Status)
		assert.Equal(t, "0001ABC", stored.TransactionCode)
	})

	t.Run("replayed callback is a no-op", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 3})
		env.esewa.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "0001ABC", RawStatus: "COMPLETE"}
		data := esewaCallbackData(t, o.PaymentReferenceID, "COMPLETE")

		first, err := env.svc.VerifyEsewa(context.Background(), data)
		require.NoError(t, err)
		require.Equal(t, 7, env.catalog.products[guitar.ID].Stock)

		second, err := env.svc.VerifyEsewa(context.Background(), data)
		require.NoError(t, err)

		assert.True(t, second.Settled)
		assert.Equal(t, first.RedirectURL, second.RedirectURL)
		assert.Equal(t, 7, env.catalog.products[guitar.ID].Stock, "stock must not decrement twice")
	})

	t.Run("transient gateway status leaves the order pending", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 2})
		env.esewa.verifyResult = &provider.VerifyResult{Pending: true, RawStatus: "PENDING"}
		data := esewaCallbackData(t, o.PaymentReferenceID, "PENDING")

		outcome, err := env.svc.VerifyEsewa(context.Background(), data)
		require.NoError(t, err)

		assert.False(t, outcome.Settled)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/failure?"))
		assert.Equal(t, 10, env.catalog.products[guitar.ID].Stock)

		stored, err := env.orders.GetByReferenceID(context.Background(), o.PaymentReferenceID)
		require.NoError(t, err)
		require.Equal(t, order.OrderStatusPending, stored.Status, "transient statuses must not finalize the order")

		// The gateway settles; the next callback completes the order.
		env.esewa.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "0001ABC", RawStatus: "COMPLETE"}
		settled, err := env.svc.VerifyEsewa(context.Background(), data)
		require.NoError(t, err)
		assert.True(t, settled.Settled)
		assert.Equal(t, 8, env.catalog.products[guitar.ID].Stock)
	})

	t.Run("unsettled status fails the order without touching stock", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 2})
		env.esewa.verifyResult = &provider.VerifyResult{Settled: false, RawStatus: "CANCELED"}

		outcome, err := env.svc.VerifyEsewa(context.Background(), esewaCallbackData(t, o.PaymentReferenceID, "CANCELED"))
		require.NoError(t, err)

		assert.False(t, outcome.Settled)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/failure?"))
		assert.Equal(t, 10, env.catalog.products[guitar.ID].Stock)

		stored, err := env.orders.GetByReferenceID(context.Background(), o.PaymentReferenceID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusFailed, stored.Status)
	})

	t.Run("gateway error leaves the order pending for replay", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 2})
		env.esewa.verifyErr = assert.AnError

		_, err := env.svc.VerifyEsewa(context.Background(), esewaCallbackData(t, o.PaymentReferenceID, "COMPLETE"))
		assert.Error(t, err)

		stored, err := env.orders.GetByReferenceID(context.Background(), o.PaymentReferenceID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusPending, stored.Status)
		assert.Equal(t, 10, env.catalog.products[guitar.ID].Stock)

		// Gateway recovers; the replay settles normally.
		env.esewa.verifyErr = nil
		env.esewa.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "0001ABC", RawStatus: "COMPLETE"}
		outcome, err := env.svc.VerifyEsewa(context.Background(), esewaCallbackData(t, o.PaymentReferenceID, "COMPLETE"))
		require.NoError(t, err)
		assert.True(t, outcome.Settled)
		assert.Equal(t, 8, env.catalog.products[guitar.ID].Stock)
	})

	t.Run("amount mismatch fails the order", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 2})
		env.esewa.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "0001ABC", AmountPaisa: 9999, RawStatus: "COMPLETE"}

		outcome, err := env.svc.VerifyEsewa(context.Background(), esewaCallbackData(t, o.PaymentReferenceID, "COMPLETE"))
		require.NoError(t, err)

		assert.False(t, outcome.Settled)
		assert.Equal(t, 10, env.catalog.products[guitar.ID].Stock)
		stored, err := env.orders.GetByReferenceID(context.Background(), o.PaymentReferenceID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusFailed, stored.Status)
	})

	t.Run("unknown reference mutates nothing and skips the gateway", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)

		outcome, err := env.svc.VerifyEsewa(context.Background(), esewaCallbackData(t, "no-such-reference", "COMPLETE"))
		require.NoError(t, err)

		assert.False(t, outcome.Settled)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/failure?"))
		assert.Equal(t, 10, env.catalog.products[guitar.ID].Stock)
		assert.Zero(t, env.esewa.verifyCalls)
	})

	t.Run("malformed callback data redirects to the failure page", func(t *testing.T) {
		env := newTestEnv(t)

		for _, data := range []string{
			"",
			"%%%not-base64%%%",
			base64.StdEncoding.EncodeToString([]byte(`{"status":"COMPLETE"}`)),
		} {
			outcome, err := env.svc.VerifyEsewa(context.Background(), data)
			require.NoError(t, err)
			assert.False(t, outcome.Settled)
			assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/failure?"))
		}
		assert.Zero(t, env.esewa.verifyCalls, "malformed callbacks must not reach the gateway")
	})
}

func TestService_VerifyKhalti(t *testing.T) {
	t.Run("completed lookup settles the order", func(t *testing.T) {
		guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}
		env := newTestEnv(t, guitar)
		o, err := env.orders.CreatePending(context.Background(), uuid.New(), order.PaymentMethodKhalti, []order.ItemRequest{
			{ProductID: guitar.ID, Quantity: 1},
		})
		require.NoError(t, err)
		env.khalti.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "TXN-K1", RawStatus: "Completed"}

		outcome, err := env.svc.VerifyKhalti(context.Background(), "pidx-1", o.PaymentReferenceID)
		require.NoError(t, err)

		assert.True(t, outcome.Settled)
		assert.Equal(t, 9, env.catalog.products[guitar.ID].Stock)
	})

	t.Run("callbacks missing identifiers redirect to the failure page", func(t *testing.T) {
		env := newTestEnv(t)

		outcome, err := env.svc.VerifyKhalti(context.Background(), "", "ref-1")
		require.NoError(t, err)
		assert.False(t, outcome.Settled)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/failure?"))

		outcome, err = env.svc.VerifyKhalti(context.Background(), "pidx-1", "")
		require.NoError(t, err)
		assert.False(t, outcome.Settled)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://soundcraft.example.com/payment/failure?"))
		assert.Zero(t, env.khalti.verifyCalls)
	})
}
