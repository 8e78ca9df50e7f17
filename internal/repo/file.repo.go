package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
)

// document là schema của file JSON, tương thích với db.json của bản lowdb:
// { "orders": [...] }.
type document struct {
	Orders []domain.Order `json:"orders"`
}

// FileRepo giữ toàn bộ đơn hàng trong bộ nhớ và ghi lại cả document xuống
// file trên mỗi mutation. Bản gốc chạy trên event loop đơn luồng nên không
// cần khóa; ở đây các handler chạy song song nên mutex là bắt buộc.
type FileRepo struct {
	mu     sync.Mutex
	path   string
	orders []domain.Order
}

// NewFileRepo đọc file một lần lúc khởi động. File chưa tồn tại thì bắt đầu
// với danh sách rỗng.
func NewFileRepo(path string) (*FileRepo, error) {
	r := &FileRepo{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	r.orders = doc.Orders
	return r, nil
}

func (r *FileRepo) All(ctx context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

func (r *FileRepo) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			order := r.orders[i]
			return &order, nil
		}
	}
	return nil, nil // not found
}

func (r *FileRepo) Insert(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order.ID = len(r.orders) + 1
	order.Info.ID = order.ID
	r.orders = append(r.orders, *order)
	return r.flush()
}

func (r *FileRepo) Update(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == order.ID {
			r.orders[i] = *order
			return r.flush()
		}
	}
	return ErrOrderNotFound
}

func (r *FileRepo) SetPaymentStatusIfPending(ctx context.Context, id int, status domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			if r.orders[i].Info.PaymentStatus.Terminal() {
				return false, nil
			}
			r.orders[i].Info.PaymentStatus = status
			return true, r.flush()
		}
	}
	return false, ErrOrderNotFound
}

func (r *FileRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders), nil
}

func (r *FileRepo) FindPendingLinked(ctx context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for i := range r.orders {
		o := r.orders[i]
		if o.Linked() && !o.Info.PaymentStatus.Terminal() {
			out = append(out, o)
		}
	}
	return out, nil
}

// flush serialize lại cả collection và ghi đè file. Caller phải đang giữ mu.
func (r *FileRepo) flush() error {
	doc := document{Orders: r.orders}
	if doc.Orders == nil {
		doc.Orders = []domain.Order{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}
