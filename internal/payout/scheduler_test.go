package payout

import (
	"context"
	"errors"
	"sync"
	"testing"

	orderdomain "github.com/modbay/storefront/internal/order/domain"
	"github.com/modbay/storefront/internal/payout/domain"
	settingsdomain "github.com/modbay/storefront/internal/settings/domain"
	userdomain "github.com/modbay/storefront/internal/user/domain"
)

type fakePayoutRepo struct {
	mu      sync.Mutex
	byOrder map[uint]*domain.SellerPayout
	nextID  uint
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{byOrder: make(map[uint]*domain.SellerPayout)}
}

func (f *fakePayoutRepo) CreateForOrder(ctx context.Context, payout *domain.SellerPayout) (bool, *domain.SellerPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byOrder[payout.OrderID]; ok {
		copy := *existing
		return false, &copy, nil
	}
	f.nextID++
	payout.ID = f.nextID
	f.byOrder[payout.OrderID] = payout
	return true, nil, nil
}

func (f *fakePayoutRepo) FindByID(ctx context.Context, id uint) (*domain.SellerPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byOrder {
		if p.ID == id {
			copy := *p
			return &copy, nil
		}
	}
	return nil, domain.ErrPayoutNotFound
}

func (f *fakePayoutRepo) FindByOrderID(ctx context.Context, orderID uint) (*domain.SellerPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byOrder[orderID]
	if !ok {
		return nil, domain.ErrPayoutNotFound
	}
	copy := *p
	return &copy, nil
}

func (f *fakePayoutRepo) FindAll(ctx context.Context, status string, limit, offset int) ([]domain.SellerPayout, error) {
	return nil, nil
}

func (f *fakePayoutRepo) MarkSent(ctx context.Context, id uint, transferID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byOrder {
		if p.ID == id {
			p.Status = domain.StatusSent
			p.TransferID = transferID
			return nil
		}
	}
	return domain.ErrPayoutNotFound
}

func (f *fakePayoutRepo) MarkFailed(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byOrder {
		if p.ID == id {
			p.Status = domain.StatusFailed
			return nil
		}
	}
	return domain.ErrPayoutNotFound
}

type fakeOrders struct {
	orders map[uint]*orderdomain.Order
	seller map[uint]string
}

func (f *fakeOrders) CreateAwaitingPayment(ctx context.Context, order *orderdomain.Order) error {
	return nil
}

func (f *fakeOrders) FindByID(ctx context.Context, id uint) (*orderdomain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, orderdomain.ErrOrderNotFound
	}
	copy := *o
	return &copy, nil
}

func (f *fakeOrders) FindByPaymentExternalID(ctx context.Context, externalID string) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrOrderNotFound
}

func (f *fakeOrders) FindByBuyerID(ctx context.Context, buyerID uint, limit, offset int) ([]orderdomain.Order, error) {
	return nil, nil
}

func (f *fakeOrders) FindByDownloadToken(ctx context.Context, token string) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrOrderNotFound
}

func (f *fakeOrders) Materialize(ctx context.Context, params orderdomain.MaterializeParams) (bool, *orderdomain.Order, error) {
	return false, nil, orderdomain.ErrOrderNotFound
}

func (f *fakeOrders) MarkFailed(ctx context.Context, externalID string) error { return nil }

func (f *fakeOrders) UpdateSellerPaymentStatus(ctx context.Context, orderID uint, status string) error {
	if f.seller == nil {
		f.seller = make(map[uint]string)
	}
	f.seller[orderID] = status
	return nil
}

type fakeUsers struct {
	users map[uint]userdomain.User
}

func (f *fakeUsers) Create(ctx context.Context, u *userdomain.User) error { return nil }

func (f *fakeUsers) FindByID(ctx context.Context, id uint) (*userdomain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	return nil, userdomain.ErrUserNotFound
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return nil, userdomain.ErrUserNotFound
}

func (f *fakeUsers) Update(ctx context.Context, u *userdomain.User) error { return nil }

type fakeSettings struct {
	settings settingsdomain.PlatformSettings
}

func (f *fakeSettings) Get(ctx context.Context) (*settingsdomain.PlatformSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) Update(ctx context.Context, s *settingsdomain.PlatformSettings) error {
	return nil
}

type fakeTransfers struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTransfers) Transfer(ctx context.Context, pixKey string, amount int64, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "transfer-1", nil
}

type fixture struct {
	scheduler *Scheduler
	payouts   *fakePayoutRepo
	orders    *fakeOrders
	users     *fakeUsers
	settings  *fakeSettings
	transfers *fakeTransfers
}

func newFixture() *fixture {
	payouts := newFakePayoutRepo()
	orders := &fakeOrders{orders: map[uint]*orderdomain.Order{
		1: {ID: 1, BuyerID: 5, SellerID: 10, Amount: 1000, SellerAmount: 900,
			Status: orderdomain.StatusCompleted},
	}}
	users := &fakeUsers{users: map[uint]userdomain.User{
		10: {ID: 10, Username: "seller", PixKey: "seller@pix.example"},
	}}
	settings := &fakeSettings{settings: settingsdomain.PlatformSettings{
		FeePercentage:       10.0,
		AutoPayoutEnabled:   true,
		MinimumPayoutAmount: 500,
	}}
	transfers := &fakeTransfers{}

	return &fixture{
		scheduler: NewScheduler(payouts, orders, users, settings, transfers, nil),
		payouts:   payouts,
		orders:    orders,
		users:     users,
		settings:  settings,
		transfers: transfers,
	}
}

func completedOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID:           1,
		BuyerID:      5,
		SellerID:     10,
		Amount:       1000,
		SellerAmount: 900,
		Status:       orderdomain.StatusCompleted,
	}
}

func TestScheduleDispatchesWhenAutoEnabled(t *testing.T) {
	f := newFixture()

	if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout, err := f.payouts.FindByOrderID(context.Background(), 1)
	if err != nil {
		t.Fatalf("payout not created: %v", err)
	}
	if payout.Status != domain.StatusSent {
		t.Errorf("expected sent, got %s", payout.Status)
	}
	if payout.TransferID != "transfer-1" {
		t.Errorf("expected transfer id, got %q", payout.TransferID)
	}
	if f.orders.seller[1] != orderdomain.SellerPaymentSent {
		t.Errorf("expected order seller payment sent, got %q", f.orders.seller[1])
	}
}

func TestScheduleLeavesPendingWhenAutoDisabled(t *testing.T) {
	f := newFixture()
	f.settings.settings.AutoPayoutEnabled = false

	if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout, err := f.payouts.FindByOrderID(context.Background(), 1)
	if err != nil {
		t.Fatalf("payout not created: %v", err)
	}
	if payout.Status != domain.StatusPending {
		t.Errorf("expected pending, got %s", payout.Status)
	}
	if f.transfers.calls != 0 {
		t.Errorf("expected no transfer attempts, got %d", f.transfers.calls)
	}
}

func TestScheduleLeavesPendingBelowMinimum(t *testing.T) {
	f := newFixture()
	f.settings.settings.MinimumPayoutAmount = 5000

	if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout, _ := f.payouts.FindByOrderID(context.Background(), 1)
	if payout.Status != domain.StatusPending {
		t.Errorf("expected pending below minimum, got %s", payout.Status)
	}
	if f.transfers.calls != 0 {
		t.Errorf("expected no transfer attempts, got %d", f.transfers.calls)
	}
}

func TestScheduleIdempotentPerOrder(t *testing.T) {
	f := newFixture()

	for i := 0; i < 3; i++ {
		if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}

	if f.transfers.calls != 1 {
		t.Errorf("expected one transfer for repeated scheduling, got %d", f.transfers.calls)
	}
}

func TestScheduleSkipsZeroAmount(t *testing.T) {
	f := newFixture()
	order := completedOrder()
	order.SellerAmount = 0

	if err := f.scheduler.Schedule(context.Background(), order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.payouts.FindByOrderID(context.Background(), 1); !errors.Is(err, domain.ErrPayoutNotFound) {
		t.Error("expected no payout for zero seller amount")
	}
}

func TestDispatchFailureMarksPayoutFailed(t *testing.T) {
	f := newFixture()
	f.transfers.err = errors.New("provider down")

	if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout, _ := f.payouts.FindByOrderID(context.Background(), 1)
	if payout.Status != domain.StatusFailed {
		t.Errorf("expected failed payout, got %s", payout.Status)
	}
	// The order's completion is never affected by payout failures.
	order, _ := f.orders.FindByID(context.Background(), 1)
	if order.Status != orderdomain.StatusCompleted {
		t.Errorf("order must stay completed, got %s", order.Status)
	}
}

func TestScheduleMissingPixKeyLeavesPending(t *testing.T) {
	f := newFixture()
	seller := f.users.users[10]
	seller.PixKey = ""
	f.users.users[10] = seller

	if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout, _ := f.payouts.FindByOrderID(context.Background(), 1)
	if payout.Status != domain.StatusPending {
		t.Errorf("expected pending without pix key, got %s", payout.Status)
	}
	if f.transfers.calls != 0 {
		t.Errorf("expected no transfer attempts, got %d", f.transfers.calls)
	}
}

func TestRetryFailedPayout(t *testing.T) {
	f := newFixture()
	f.transfers.err = errors.New("provider down")
	if err := f.scheduler.Schedule(context.Background(), completedOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout, _ := f.payouts.FindByOrderID(context.Background(), 1)
	if payout.Status != domain.StatusFailed {
		t.Fatalf("setup: expected failed payout, got %s", payout.Status)
	}

	f.transfers.err = nil
	retried, err := f.scheduler.Retry(context.Background(), payout.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != domain.StatusSent {
		t.Errorf("expected sent after retry, got %s", retried.Status)
	}

	// A sent payout cannot be retried again.
	if _, err := f.scheduler.Retry(context.Background(), payout.ID); err == nil {
		t.Error("expected error retrying a sent payout")
	}
}
