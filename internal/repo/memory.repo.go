package repo

import (
	"context"
	"sync"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
)

// MemoryRepo là store trong bộ nhớ cho test và cho lệnh mô phỏng, không ghi
// gì xuống đĩa.
type MemoryRepo struct {
	mu     sync.Mutex
	orders []domain.Order
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) All(ctx context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			order := r.orders[i]
			return &order, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order.ID = len(r.orders) + 1
	order.Info.ID = order.ID
	r.orders = append(r.orders, *order)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == order.ID {
			r.orders[i] = *order
			return nil
		}
	}
	return ErrOrderNotFound
}

func (r *MemoryRepo) SetPaymentStatusIfPending(ctx context.Context, id int, status domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			if r.orders[i].Info.PaymentStatus.Terminal() {
				return false, nil
			}
			r.orders[i].Info.PaymentStatus = status
			return true, nil
		}
	}
	return false, ErrOrderNotFound
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders), nil
}

func (r *MemoryRepo) FindPendingLinked(ctx context.Context) ([]domain.Order, error) {
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
