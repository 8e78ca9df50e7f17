package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/infrastructure/payment"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/repo"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/security"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type checkerFixture struct {
	store   *repo.MemoryRepo
	gateway *payment.FakeGateway
	svc     service.OrderService
	checker *StatusChecker
}

func newFixture(t *testing.T, delay time.Duration) *checkerFixture {
	t.Helper()
	store := repo.NewMemoryRepo()
	gateway := payment.NewFakeGateway()
	signer := security.NewSigner("test-private-key")

	svc := service.NewOrderService(store, signer, discardLogger())
	checker := NewStatusChecker(store, gateway, signer, svc, delay, discardLogger())
	svc.AttachScheduler(checker)
	t.Cleanup(checker.Close)

	return &checkerFixture{store: store, gateway: gateway, svc: svc, checker: checker}
}

func (f *checkerFixture) createLinkedOrder(t *testing.T, sdkOrderID int64) *domain.Order {
	t.Helper()
	ctx := context.Background()
	items := []domain.CartItem{{Product: json.RawMessage(`{"id":1}`), Quantity: 1}}
	order, err := f.svc.Create(ctx, "user-1", items, 100)
	require.NoError(t, err)
	require.NoError(t, f.svc.Link(ctx, order.ID, sdkOrderID, "vn.zalo.demo"))
	return order
}

func paymentStatus(t *testing.T, store *repo.MemoryRepo, id int) domain.PaymentStatus {
	t.Helper()
	order, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order.Info.PaymentStatus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestStatusChecker_ResolvesSuccess(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.gateway.SetResult(555, domain.ResultCodeSuccess)

	order := f.createLinkedOrder(t, 555)

	waitFor(t, func() bool {
		return paymentStatus(t, f.store, order.ID) == domain.PaymentSuccess
	})
}

func TestStatusChecker_ResolvesFailure(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.gateway.SetResult(555, 3)

	order := f.createLinkedOrder(t, 555)

	waitFor(t, func() bool {
		return paymentStatus(t, f.store, order.ID) == domain.PaymentFailed
	})
}

func TestStatusChecker_NoResultLeavesPending(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	// không script gì: gateway trả 0 (chưa có kết quả)

	order := f.createLinkedOrder(t, 555)

	waitFor(t, func() bool { return f.gateway.QueryCount() > 0 })
	assert.Equal(t, domain.PaymentPending, paymentStatus(t, f.store, order.ID))
}

func TestStatusChecker_CanceledTimerDoesNotFire(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	f.gateway.SetResult(555, domain.ResultCodeSuccess)

	order := f.createLinkedOrder(t, 555)
	f.checker.Cancel(order.ID)

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, f.gateway.QueryCount())
	assert.Equal(t, domain.PaymentPending, paymentStatus(t, f.store, order.ID))
}

func TestStatusChecker_SkipsOrderResolvedByCallback(t *testing.T) {
	// timer vẫn nổ (ví dụ Cancel tới muộn) nhưng đơn đã terminal: guard
	// phải bỏ qua, không hỏi gateway nữa
	f := newFixture(t, 50*time.Millisecond)
	order := f.createLinkedOrder(t, 555)

	require.NoError(t, f.svc.CompletePayment(context.Background(), order.ID, true))
	// arm lại thủ công để mô phỏng timer nổ sau khi đơn đã chốt
	f.checker.Schedule(order.ID, 555, "vn.zalo.demo")

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, f.gateway.QueryCount())
	assert.Equal(t, domain.PaymentSuccess, paymentStatus(t, f.store, order.ID))
}

func TestStatusChecker_GatewayErrorLeavesPending(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.gateway.Fail(errors.New("connection timeout"))

	order := f.createLinkedOrder(t, 555)

	waitFor(t, func() bool { return f.gateway.QueryCount() > 0 })
	assert.Equal(t, domain.PaymentPending, paymentStatus(t, f.store, order.ID))
}

func TestStatusChecker_Rearm(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()
	gateway := payment.NewFakeGateway()
	signer := security.NewSigner("test-private-key")

	// store đã có sẵn một đơn liên kết còn pending, như sau một lần restart
	sdkID := int64(555)
	order := &domain.Order{
		ID:         1,
		ZaloUserID: "user-1",
		MiniAppID:  "vn.zalo.demo",
		Info: domain.OrderInfo{
			ID:            1,
			CreatedAt:     time.Now().Add(-time.Hour),
			Status:        domain.OrderPending,
			PaymentStatus: domain.PaymentPending,
		},
	}
	order.CheckoutSdkOrderID = &sdkID
	require.NoError(t, store.Insert(ctx, order))

	gateway.SetResult(555, domain.ResultCodeSuccess)

	svc := service.NewOrderService(store, signer, discardLogger())
	checker := NewStatusChecker(store, gateway, signer, svc, 20*time.Minute, discardLogger())
	svc.AttachScheduler(checker)
	t.Cleanup(checker.Close)

	n, err := checker.Rearm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// đã quá hạn chờ nên check được arm lại ở mức tối thiểu 1s
	waitFor(t, func() bool {
		return paymentStatus(t, store, 1) == domain.PaymentSuccess
	})
}

func TestStatusChecker_RearmCountsDelayFromLinkTime(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()
	gateway := payment.NewFakeGateway()
	signer := security.NewSigner("test-private-key")

	// đơn tạo từ lâu nhưng vừa mới liên kết ngay trước khi restart: đồng hồ
	// chờ phải tính từ lúc liên kết, không phải lúc tạo đơn
	sdkID := int64(555)
	linkedAt := time.Now()
	order := &domain.Order{
		ZaloUserID: "user-1",
		MiniAppID:  "vn.zalo.demo",
		LinkedAt:   &linkedAt,
		Info: domain.OrderInfo{
			CreatedAt:     time.Now().Add(-time.Hour),
			Status:        domain.OrderPending,
			PaymentStatus: domain.PaymentPending,
		},
	}
	order.CheckoutSdkOrderID = &sdkID
	require.NoError(t, store.Insert(ctx, order))

	gateway.SetResult(555, domain.ResultCodeSuccess)

	svc := service.NewOrderService(store, signer, discardLogger())
	checker := NewStatusChecker(store, gateway, signer, svc, 2*time.Second, discardLogger())
	svc.AttachScheduler(checker)
	t.Cleanup(checker.Close)

	n, err := checker.Rearm(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// trước hạn chờ tính từ linkedAt thì chưa được hỏi gateway
	time.Sleep(1200 * time.Millisecond)
	assert.Zero(t, gateway.QueryCount())
	assert.Equal(t, domain.PaymentPending, paymentStatus(t, store, order.ID))

	waitFor(t, func() bool {
		return paymentStatus(t, store, order.ID) == domain.PaymentSuccess
	})
}

func TestStatusChecker_ScheduleAfterCloseIsNoop(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	f.checker.Close()
	f.checker.Schedule(1, 555, "vn.zalo.demo")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.gateway.QueryCount())
}
