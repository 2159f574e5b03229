package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	orderdomain "github.com/modbay/storefront/internal/order/domain"
	"github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/internal/payment/gateway"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	settingsdomain "github.com/modbay/storefront/internal/settings/domain"
	userdomain "github.com/modbay/storefront/internal/user/domain"
)

type fakeGateway struct {
	status    string
	statusErr error
	intent    *gateway.Intent
	createErr error
}

func (f *fakeGateway) CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (*gateway.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.intent, nil
}

func (f *fakeGateway) FetchStatus(ctx context.Context, externalID string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: make(map[string]*domain.PaymentIntent)}
}

func (f *fakeIntentRepo) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents[intent.ExternalID] = intent
	return nil
}

func (f *fakeIntentRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[externalID]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	copy := *intent
	return &copy, nil
}

func (f *fakeIntentRepo) UpdateStatus(ctx context.Context, externalID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[externalID]
	if !ok {
		return domain.ErrIntentNotFound
	}
	if !domain.Terminal(intent.Status) {
		intent.Status = status
	}
	return nil
}

func (f *fakeIntentRepo) MarkMaterialized(ctx context.Context, externalID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[externalID]
	if !ok {
		return domain.ErrIntentNotFound
	}
	intent.MaterializedAt = &at
	return nil
}

// fakeOrderRepo reproduces the conditional-transition semantics of the real
// store: only one Materialize call per external id reports won.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*orderdomain.Order
	nextID uint
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*orderdomain.Order)}
}

func (f *fakeOrderRepo) CreateAwaitingPayment(ctx context.Context, order *orderdomain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[order.PaymentExternalID]; ok {
		return nil
	}
	f.nextID++
	order.ID = f.nextID
	order.Status = orderdomain.StatusAwaitingPayment
	order.SellerPaymentStatus = orderdomain.SellerPaymentNone
	f.orders[order.PaymentExternalID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uint) (*orderdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			copy := *o
			return &copy, nil
		}
	}
	return nil, orderdomain.ErrOrderNotFound
}

func (f *fakeOrderRepo) FindByPaymentExternalID(ctx context.Context, externalID string) (*orderdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[externalID]
	if !ok {
		return nil, orderdomain.ErrOrderNotFound
	}
	copy := *o
	return &copy, nil
}

func (f *fakeOrderRepo) FindByBuyerID(ctx context.Context, buyerID uint, limit, offset int) ([]orderdomain.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) FindByDownloadToken(ctx context.Context, token string) (*orderdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.DownloadToken == token && o.Status == orderdomain.StatusCompleted {
			copy := *o
			return &copy, nil
		}
	}
	return nil, orderdomain.ErrOrderNotFound
}

func (f *fakeOrderRepo) Materialize(ctx context.Context, params orderdomain.MaterializeParams) (bool, *orderdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[params.PaymentExternalID]
	if !ok {
		return false, nil, orderdomain.ErrOrderNotFound
	}
	if o.Status != orderdomain.StatusAwaitingPayment {
		copy := *o
		return false, &copy, nil
	}
	o.Status = orderdomain.StatusCompleted
	o.PlatformFee = params.PlatformFee
	o.SellerAmount = params.SellerAmount
	o.DownloadToken = params.DownloadToken
	expires := params.DownloadExpiresAt
	o.DownloadExpiresAt = &expires
	o.SellerPaymentStatus = orderdomain.SellerPaymentPending
	copy := *o
	return true, &copy, nil
}

func (f *fakeOrderRepo) MarkFailed(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[externalID]
	if !ok {
		return orderdomain.ErrOrderNotFound
	}
	if o.Status == orderdomain.StatusAwaitingPayment {
		o.Status = orderdomain.StatusFailed
	}
	return nil
}

func (f *fakeOrderRepo) UpdateSellerPaymentStatus(ctx context.Context, orderID uint, status string) error {
	return nil
}

type fakeProductRepo struct {
	products map[uint]productdomain.Product
}

func (f *fakeProductRepo) Create(ctx context.Context, p *productdomain.Product) error { return nil }

func (f *fakeProductRepo) FindByID(ctx context.Context, id uint) (*productdomain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, productdomain.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeProductRepo) FindByIDs(ctx context.Context, ids []uint) ([]productdomain.Product, error) {
	var out []productdomain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FindAll(ctx context.Context, limit, offset int) ([]productdomain.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) FindByCategory(ctx context.Context, category string, limit, offset int) ([]productdomain.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) FindBySellerID(ctx context.Context, sellerID uint, limit, offset int) ([]productdomain.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) Update(ctx context.Context, p *productdomain.Product) error { return nil }
func (f *fakeProductRepo) Delete(ctx context.Context, id uint) error                  { return nil }
func (f *fakeProductRepo) IncrementDownloadCount(ctx context.Context, id uint) error  { return nil }

type fakeUserRepo struct {
	users map[uint]userdomain.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *userdomain.User) error { return nil }

func (f *fakeUserRepo) FindByID(ctx context.Context, id uint) (*userdomain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	return nil, userdomain.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return nil, userdomain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *userdomain.User) error { return nil }

type fakeSettingsRepo struct {
	settings settingsdomain.PlatformSettings
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*settingsdomain.PlatformSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettingsRepo) Update(ctx context.Context, s *settingsdomain.PlatformSettings) error {
	f.settings = *s
	return nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (f *fakeScheduler) Schedule(ctx context.Context, order *orderdomain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, order.ID)
	return f.err
}

type fakeSink struct {
	mu    sync.Mutex
	sends []uint
}

func (f *fakeSink) Send(ctx context.Context, userID uint, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, userID)
	return nil
}

type engineFixture struct {
	engine    *Engine
	gateway   *fakeGateway
	intents   *fakeIntentRepo
	orders    *fakeOrderRepo
	scheduler *fakeScheduler
	sink      *fakeSink
}

func newEngineFixture() *engineFixture {
	gw := &fakeGateway{status: domain.StatusPending}
	intents := newFakeIntentRepo()
	orders := newFakeOrderRepo()
	scheduler := &fakeScheduler{}
	sink := &fakeSink{}
	products := &fakeProductRepo{products: map[uint]productdomain.Product{
		1: {ID: 1, SellerID: 10, Name: "Neon Skin", Price: 700, Active: true},
		2: {ID: 2, SellerID: 10, Name: "Desert Map", Price: 300, Active: true},
		3: {ID: 3, SellerID: 20, Name: "Physics Mod", Price: 500, Active: true},
		4: {ID: 4, SellerID: 10, Name: "Retired Skin", Price: 200, Active: false},
	}}
	users := &fakeUserRepo{users: map[uint]userdomain.User{
		5: {ID: 5, Username: "buyer", Email: "buyer@example.com", Role: userdomain.RoleBuyer},
	}}
	settings := &fakeSettingsRepo{settings: settingsdomain.PlatformSettings{
		ID:                  1,
		FeePercentage:       10.0,
		AutoPayoutEnabled:   true,
		MinimumPayoutAmount: 100,
	}}

	return &engineFixture{
		engine:    NewEngine(gw, intents, orders, products, users, settings, scheduler, sink, nil),
		gateway:   gw,
		intents:   intents,
		orders:    orders,
		scheduler: scheduler,
		sink:      sink,
	}
}

func (f *engineFixture) seedIntent(t *testing.T, externalID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	if err := f.intents.Create(ctx, &domain.PaymentIntent{
		ExternalID: externalID,
		BuyerID:    5,
		Amount:     amount,
		Status:     domain.StatusPending,
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}); err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	if err := f.orders.CreateAwaitingPayment(ctx, &orderdomain.Order{
		BuyerID:           5,
		SellerID:          10,
		Amount:            amount,
		PaymentExternalID: externalID,
	}); err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestCreateCheckout(t *testing.T) {
	f := newEngineFixture()
	f.gateway.intent = &gateway.Intent{
		ExternalID: "charge-1",
		PixCode:    "00020126pix",
		Simulated:  false,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}

	checkout, err := f.engine.CreateCheckout(context.Background(), 5, []uint{1, 2}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checkout.Amount != 1000 {
		t.Errorf("expected amount 1000, got %d", checkout.Amount)
	}
	if checkout.PixCode != "00020126pix" {
		t.Errorf("unexpected pix code %q", checkout.PixCode)
	}

	order, err := f.orders.FindByPaymentExternalID(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.Status != orderdomain.StatusAwaitingPayment {
		t.Errorf("expected awaiting_payment, got %s", order.Status)
	}
	if order.SellerID != 10 {
		t.Errorf("expected seller 10, got %d", order.SellerID)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(order.Items))
	}

	intent, err := f.intents.FindByExternalID(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("intent not persisted: %v", err)
	}
	if intent.Amount != 1000 {
		t.Errorf("expected intent amount 1000, got %d", intent.Amount)
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	tests := []struct {
		name       string
		buyerID    uint
		productIDs []uint
		wantErr    error
	}{
		{
			name:       "empty product list",
			buyerID:    5,
			productIDs: nil,
			wantErr:    ErrEmptyCheckout,
		},
		{
			name:       "unknown product",
			buyerID:    5,
			productIDs: []uint{99},
			wantErr:    productdomain.ErrProductNotFound,
		},
		{
			name:       "products from different sellers",
			buyerID:    5,
			productIDs: []uint{1, 3},
			wantErr:    ErrMixedSellers,
		},
		{
			name:       "inactive product",
			buyerID:    5,
			productIDs: []uint{4},
			wantErr:    ErrProductUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture()
			_, err := f.engine.CreateCheckout(context.Background(), tt.buyerID, tt.productIDs, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReconcileStillPending(t *testing.T) {
	f := newEngineFixture()
	f.seedIntent(t, "charge-1", 1000)
	f.gateway.status = domain.StatusPending

	outcome, err := f.engine.Reconcile(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeStillPending {
		t.Errorf("expected still_pending, got %s", outcome)
	}

	order, _ := f.orders.FindByPaymentExternalID(context.Background(), "charge-1")
	if order.Status != orderdomain.StatusAwaitingPayment {
		t.Errorf("pending reconcile must not touch the order, got %s", order.Status)
	}
	if len(f.scheduler.calls) != 0 {
		t.Errorf("pending reconcile must not schedule payouts")
	}
}

func TestReconcileRejected(t *testing.T) {
	f := newEngineFixture()
	f.seedIntent(t, "charge-1", 1000)
	f.gateway.status = domain.StatusRejected

	outcome, err := f.engine.Reconcile(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("expected rejected, got %s", outcome)
	}

	order, _ := f.orders.FindByPaymentExternalID(context.Background(), "charge-1")
	if order.Status != orderdomain.StatusFailed {
		t.Errorf("expected failed order, got %s", order.Status)
	}
	intent, _ := f.intents.FindByExternalID(context.Background(), "charge-1")
	if intent.Status != domain.StatusRejected {
		t.Errorf("expected rejected intent, got %s", intent.Status)
	}
}

func TestReconcileApproved(t *testing.T) {
	f := newEngineFixture()
	f.seedIntent(t, "charge-1", 1000)
	f.gateway.status = domain.StatusApproved

	outcome, err := f.engine.Reconcile(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNewlyCompleted {
		t.Errorf("expected newly_completed, got %s", outcome)
	}

	order, _ := f.orders.FindByPaymentExternalID(context.Background(), "charge-1")
	if order.Status != orderdomain.StatusCompleted {
		t.Errorf("expected completed order, got %s", order.Status)
	}
	if order.PlatformFee != 100 || order.SellerAmount != 900 {
		t.Errorf("expected 100/900 split, got %d/%d", order.PlatformFee, order.SellerAmount)
	}
	if order.DownloadToken == "" {
		t.Error("expected a download token on the completed order")
	}
	if len(f.scheduler.calls) != 1 {
		t.Fatalf("expected one payout schedule call, got %d", len(f.scheduler.calls))
	}
	if len(f.sink.sends) != 1 || f.sink.sends[0] != 5 {
		t.Errorf("expected one notification to buyer 5, got %v", f.sink.sends)
	}

	intent, _ := f.intents.FindByExternalID(context.Background(), "charge-1")
	if intent.Status != domain.StatusApproved {
		t.Errorf("expected approved intent, got %s", intent.Status)
	}
	if intent.MaterializedAt == nil {
		t.Error("expected materialized timestamp on intent")
	}
}

func TestReconcileApprovedIsIdempotent(t *testing.T) {
	f := newEngineFixture()
	f.seedIntent(t, "charge-1", 1000)
	f.gateway.status = domain.StatusApproved

	first, err := f.engine.Reconcile(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	second, err := f.engine.Reconcile(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	if first != OutcomeNewlyCompleted {
		t.Errorf("first call should win, got %s", first)
	}
	if second != OutcomeAlreadyCompleted {
		t.Errorf("second call should short-circuit, got %s", second)
	}
	if len(f.scheduler.calls) != 1 {
		t.Errorf("side effects must run once, got %d payout calls", len(f.scheduler.calls))
	}
	if len(f.sink.sends) != 1 {
		t.Errorf("side effects must run once, got %d notifications", len(f.sink.sends))
	}
}

// Polling and webhook race against each other in production; exactly one
// caller may observe newly_completed.
func TestReconcileConcurrentSingleWinner(t *testing.T) {
	f := newEngineFixture()
	f.seedIntent(t, "charge-1", 1000)
	f.gateway.status = domain.StatusApproved

	const callers = 16
	outcomes := make(chan Outcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.engine.Reconcile(context.Background(), "charge-1")
			if err != nil {
				t.Errorf("reconcile: %v", err)
				return
			}
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	var winners, losers int
	for outcome := range outcomes {
		switch outcome {
		case OutcomeNewlyCompleted:
			winners++
		case OutcomeAlreadyCompleted:
			losers++
		default:
			t.Errorf("unexpected outcome %s", outcome)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
	if winners+losers != callers {
		t.Errorf("expected %d total outcomes, got %d", callers, winners+losers)
	}
	if len(f.scheduler.calls) != 1 {
		t.Errorf("expected one payout schedule, got %d", len(f.scheduler.calls))
	}
	if len(f.sink.sends) != 1 {
		t.Errorf("expected one notification, got %d", len(f.sink.sends))
	}
}

func TestReconcileUnknownExternalID(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.Reconcile(context.Background(), "charge-missing")
	if !errors.Is(err, domain.ErrIntentNotFound) {
		t.Errorf("expected ErrIntentNotFound, got %v", err)
	}
}

// A payout scheduling failure must not unwind the completed order.
func TestReconcilePayoutFailureKeepsOrderCompleted(t *testing.T) {
	f := newEngineFixture()
	f.seedIntent(t, "charge-1", 1000)
	f.gateway.status = domain.StatusApproved
	f.scheduler.err = errors.New("transfer service down")

	outcome, err := f.engine.Reconcile(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNewlyCompleted {
		t.Errorf("expected newly_completed, got %s", outcome)
	}

	order, _ := f.orders.FindByPaymentExternalID(context.Background(), "charge-1")
	if order.Status != orderdomain.StatusCompleted {
		t.Errorf("order must stay completed, got %s", order.Status)
	}
}
