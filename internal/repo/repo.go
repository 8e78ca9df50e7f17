package repo

import (
	"context"
	"errors"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepo là nơi giữ bền vững duy nhất của các đơn hàng. Mọi mutation đều
// flush toàn bộ trạng thái (file store ghi lại cả document, Postgres ghi
// từng dòng).
type OrderRepo interface {
	// All trả về toàn bộ đơn hàng theo thứ tự tạo.
	All(ctx context.Context) ([]domain.Order, error)
	// FindByID trả về (nil, nil) khi không có đơn hàng tương ứng.
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	// Insert cấp id kế tiếp (count + 1) ngay trong critical section của
	// store rồi ghi order.ID và order.Info.ID trước khi lưu: hai request
	// tạo đơn chạy song song không bao giờ nhận cùng một id.
	Insert(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	// SetPaymentStatusIfPending là compare-and-swap cho kết quả thanh toán:
	// chỉ ghi khi đơn còn pending, trả về false khi đã terminal. Đơn không
	// tồn tại trả về ErrOrderNotFound.
	SetPaymentStatusIfPending(ctx context.Context, id int, status domain.PaymentStatus) (bool, error)
	Count(ctx context.Context) (int, error)
	// FindPendingLinked trả về các đơn đã liên kết với cổng thanh toán
	// nhưng chưa có kết quả, để worker re-arm deferred check sau restart.
	FindPendingLinked(ctx context.Context) ([]domain.Order, error)
}
