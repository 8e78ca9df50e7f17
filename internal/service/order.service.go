package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/repo"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/security"
)

var paymentOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_outcomes_total",
		Help: "Terminal payment transitions by outcome",
	},
	[]string{"outcome"},
)

// StatusScheduler là deferred status checker nhìn từ service: arm một lần
// khi liên kết đơn, hủy khi đơn đã chốt kết quả.
type StatusScheduler interface {
	Schedule(orderID int, checkoutSdkOrderID int64, appID string)
	Cancel(orderID int)
}

// CallbackResult là body trả cho cổng thanh toán, luôn đi kèm HTTP 200.
type CallbackResult struct {
	ReturnCode    int    `json:"returnCode"`
	ReturnMessage string `json:"returnMessage"`
}

type OrderService interface {
	Create(ctx context.Context, zaloUserID string, items []domain.CartItem, total float64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.OrderInfo, error)
	Link(ctx context.Context, orderID int, checkoutSdkOrderID int64, miniAppID string) error
	ResolveCallback(ctx context.Context, data map[string]json.RawMessage, overallMac string) CallbackResult
	// CompletePayment chốt trạng thái thanh toán. Đơn đã terminal thì là
	// no-op, bất kể actor nào gọi.
	CompletePayment(ctx context.Context, orderID int, success bool) error
}

type orderService struct {
	repo      repo.OrderRepo
	signer    *security.Signer
	scheduler StatusScheduler
	log       *slog.Logger
}

func NewOrderService(orderRepo repo.OrderRepo, signer *security.Signer, log *slog.Logger) *orderService {
	return &orderService{
		repo:   orderRepo,
		signer: signer,
		log:    log,
	}
}

// AttachScheduler nối service với deferred status checker. Gọi một lần lúc
// khởi động, trước khi nhận request.
func (s *orderService) AttachScheduler(sched StatusScheduler) {
	s.scheduler = sched
}

func (s *orderService) Create(ctx context.Context, zaloUserID string, items []domain.CartItem, total float64) (*domain.Order, error) {
	now := time.Now()
	order := &domain.Order{
		ZaloUserID: zaloUserID,
		Info: domain.OrderInfo{
			Items: items,
			Total: total,
			Delivery: domain.Delivery{
				Type:      "pickup",
				StationID: 1,
			},
			Note:          "",
			CreatedAt:     now,
			ReceivedAt:    now,
			Status:        domain.OrderPending,
			PaymentStatus: domain.PaymentPending,
		},
	}
	// id do store cấp ngay trong critical section của Insert
	if err := s.repo.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	s.log.Info("order created", "order_id", order.ID, "zalo_user_id", zaloUserID, "total", total)
	return order, nil
}

func (s *orderService) List(ctx context.Context) ([]domain.OrderInfo, error) {
	orders, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	// mới nhất lên đầu
	infos := make([]domain.OrderInfo, 0, len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		infos = append(infos, orders[i].Info)
	}
	return infos, nil
}

func (s *orderService) Link(ctx context.Context, orderID int, checkoutSdkOrderID int64, miniAppID string) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find order %d: %w", orderID, err)
	}
	if order == nil {
		return repo.ErrOrderNotFound
	}

	now := time.Now()
	order.CheckoutSdkOrderID = &checkoutSdkOrderID
	order.MiniAppID = miniAppID
	order.LinkedAt = &now
	if err := s.repo.Update(ctx, order); err != nil {
		return fmt.Errorf("update order %d: %w", orderID, err)
	}

	if s.scheduler != nil {
		s.scheduler.Schedule(orderID, checkoutSdkOrderID, miniAppID)
	}
	s.log.Info("order linked", "order_id", orderID, "checkout_sdk_order_id", checkoutSdkOrderID)
	return nil
}

func (s *orderService) ResolveCallback(ctx context.Context, data map[string]json.RawMessage, overallMac string) CallbackResult {
	if !s.signer.Verify(data, overallMac) {
		s.log.Warn("callback rejected: mac mismatch")
		return CallbackResult{ReturnCode: 0, ReturnMessage: "Chữ ký không hợp lệ!"}
	}

	orderID, err := decodeExtradata(data["extradata"])
	if err != nil {
		s.log.Warn("callback rejected: bad extradata", "error", err)
		return CallbackResult{ReturnCode: 0, ReturnMessage: "Dữ liệu extradata không hợp lệ!"}
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		s.log.Error("callback: find order failed", "order_id", orderID, "error", err)
		return CallbackResult{ReturnCode: 0, ReturnMessage: "Không xử lý được đơn hàng!"}
	}
	if order == nil {
		return CallbackResult{ReturnCode: 0, ReturnMessage: "Không tìm thấy đơn hàng!"}
	}

	var resultCode int
	if raw, ok := data["resultCode"]; ok {
		if err := json.Unmarshal(raw, &resultCode); err != nil {
			s.log.Warn("callback: bad resultCode", "error", err)
			return CallbackResult{ReturnCode: 0, ReturnMessage: "Dữ liệu resultCode không hợp lệ!"}
		}
	}

	if err := s.CompletePayment(ctx, orderID, resultCode == domain.ResultCodeSuccess); err != nil {
		s.log.Error("callback: complete payment failed", "order_id", orderID, "error", err)
		return CallbackResult{ReturnCode: 0, ReturnMessage: "Không cập nhật được đơn hàng!"}
	}
	return CallbackResult{ReturnCode: 1, ReturnMessage: "Thành công"}
}

func (s *orderService) CompletePayment(ctx context.Context, orderID int, success bool) error {
	status := domain.PaymentFailed
	if success {
		status = domain.PaymentSuccess
	}

	// compare-and-swap trong critical section của store: callback và
	// deferred check có chạy đua thì cũng chỉ một bên ghi được
	applied, err := s.repo.SetPaymentStatusIfPending(ctx, orderID, status)
	if err != nil {
		return fmt.Errorf("resolve order %d: %w", orderID, err)
	}
	if !applied {
		// đã chốt rồi, actor đến sau không được ghi đè
		return nil
	}

	if s.scheduler != nil {
		s.scheduler.Cancel(orderID)
	}
	paymentOutcomes.WithLabelValues(string(status)).Inc()
	s.log.Info("payment resolved", "order_id", orderID, "payment_status", status)
	return nil
}

type extradata struct {
	MyOrderID int `json:"myOrderId"`
}

// decodeExtradata lấy lại id đơn hàng nội bộ từ field extradata của
// callback: một chuỗi JSON có thể đã bị URL-encode.
func decodeExtradata(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("extradata missing")
	}
	var blob string
	if err := json.Unmarshal(raw, &blob); err != nil {
		return 0, fmt.Errorf("extradata is not a string: %w", err)
	}
	if unescaped, err := url.QueryUnescape(blob); err == nil {
		blob = unescaped
	}
	var extra extradata
	if err := json.Unmarshal([]byte(blob), &extra); err != nil {
		return 0, fmt.Errorf("parse extradata: %w", err)
	}
	if extra.MyOrderID == 0 {
		return 0, fmt.Errorf("extradata has no myOrderId")
	}
	return extra.MyOrderID, nil
}
