package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/infrastructure/payment"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/repo"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/security"
)

var checkFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "payment_status_check_failures_total",
	Help: "Deferred payment status checks that errored",
})

// Completer chốt kết quả thanh toán cho một đơn hàng. Phía sau là order
// service, nơi duy nhất được mutate đơn hàng.
type Completer interface {
	CompletePayment(ctx context.Context, orderID int, success bool) error
}

// StatusChecker giữ mỗi đơn đã liên kết một timer one-shot: hết hạn chờ mà
// chưa có callback thì tự hỏi cổng thanh toán. Timer bị hủy ngay khi đơn
// chốt kết quả, và mọi lỗi trong lúc check chỉ được log chứ không làm process
// chết như bản gốc.
type StatusChecker struct {
	repo      repo.OrderRepo
	gateway   payment.Gateway
	signer    *security.Signer
	completer Completer
	delay     time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	timers map[int]*time.Timer
	closed bool
}

func NewStatusChecker(
	orderRepo repo.OrderRepo,
	gateway payment.Gateway,
	signer *security.Signer,
	completer Completer,
	delay time.Duration,
	log *slog.Logger,
) *StatusChecker {
	return &StatusChecker{
		repo:      orderRepo,
		gateway:   gateway,
		signer:    signer,
		completer: completer,
		delay:     delay,
		log:       log,
		timers:    make(map[int]*time.Timer),
	}
}

// Schedule arm deferred check cho một đơn vừa liên kết. Đơn đã có timer thì
// timer cũ bị thay.
func (sc *StatusChecker) Schedule(orderID int, checkoutSdkOrderID int64, appID string) {
	sc.schedule(orderID, checkoutSdkOrderID, appID, sc.delay)
}

func (sc *StatusChecker) schedule(orderID int, checkoutSdkOrderID int64, appID string, after time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	if t, ok := sc.timers[orderID]; ok {
		t.Stop()
	}
	sc.timers[orderID] = time.AfterFunc(after, func() {
		sc.check(orderID, checkoutSdkOrderID, appID)
	})
	sc.log.Info("status check armed", "order_id", orderID, "after", after.String())
}

// Cancel hủy deferred check của một đơn đã chốt kết quả.
func (sc *StatusChecker) Cancel(orderID int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if t, ok := sc.timers[orderID]; ok {
		t.Stop()
		delete(sc.timers, orderID)
	}
}

// Rearm quét các đơn đã liên kết mà còn pending và arm lại timer cho chúng.
// Gọi một lần lúc khởi động: bản gốc mất hết timer khi restart, các đơn đó
// sẽ treo pending mãi.
func (sc *StatusChecker) Rearm(ctx context.Context) (int, error) {
	orders, err := sc.repo.FindPendingLinked(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range orders {
		o := orders[i]
		if o.MiniAppID == "" {
			sc.log.Warn("cannot rearm status check: no miniAppId", "order_id", o.ID)
			continue
		}
		// đồng hồ chờ tính từ lúc liên kết; các bản ghi cũ chưa có
		// linkedAt thì lùi về lúc tạo đơn
		since := o.Info.CreatedAt
		if o.LinkedAt != nil {
			since = *o.LinkedAt
		}
		remaining := sc.delay - time.Since(since)
		if remaining < time.Second {
			remaining = time.Second
		}
		sc.schedule(o.ID, *o.CheckoutSdkOrderID, o.MiniAppID, remaining)
		n++
	}
	return n, nil
}

// Close dừng toàn bộ timer. Checker không dùng lại được sau khi Close.
func (sc *StatusChecker) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.closed = true
	for id, t := range sc.timers {
		t.Stop()
		delete(sc.timers, id)
	}
}

func (sc *StatusChecker) check(orderID int, checkoutSdkOrderID int64, appID string) {
	sc.mu.Lock()
	delete(sc.timers, orderID)
	sc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := sc.log.With("order_id", orderID, "checkout_sdk_order_id", checkoutSdkOrderID)

	order, err := sc.repo.FindByID(ctx, orderID)
	if err != nil {
		checkFailures.Inc()
		log.Error("status check: find order failed", "error", err)
		return
	}
	if order == nil || order.Info.PaymentStatus.Terminal() {
		// callback đã chốt trước khi timer nổ, không làm gì thêm
		return
	}

	mac := sc.signer.SignStatusQuery(appID, checkoutSdkOrderID)
	code, err := sc.gateway.QueryStatus(ctx, appID, checkoutSdkOrderID, mac)
	if err != nil {
		checkFailures.Inc()
		log.Error("status check: gateway query failed", "error", err)
		return
	}
	if code == domain.ResultCodeProcessing {
		log.Info("status check: transaction still has no result")
		return
	}

	if err := sc.completer.CompletePayment(ctx, orderID, code == domain.ResultCodeSuccess); err != nil {
		checkFailures.Inc()
		log.Error("status check: complete payment failed", "error", err)
		return
	}
	log.Info("status check resolved payment", "return_code", code)
}
