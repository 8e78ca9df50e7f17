package payment

import (
	"context"
	"sync"
)

// FakeGateway đóng vai cổng thanh toán trong test và trong lệnh mô phỏng:
// trạng thái từng giao dịch được script sẵn theo checkoutSdkOrderId.
type FakeGateway struct {
	mu      sync.RWMutex
	results map[int64]int
	err     error

	// Queries ghi lại các lần bị hỏi trạng thái, theo thứ tự gọi.
	Queries []int64
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{results: make(map[int64]int)}
}

// SetResult script returnCode cho một giao dịch.
func (g *FakeGateway) SetResult(checkoutSdkOrderID int64, returnCode int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[checkoutSdkOrderID] = returnCode
}

// Fail làm mọi truy vấn sau đó trả về err (giả lập lỗi mạng).
func (g *FakeGateway) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// QueryCount đếm số lần gateway bị hỏi trạng thái.
func (g *FakeGateway) QueryCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.Queries)
}

func (g *FakeGateway) QueryStatus(ctx context.Context, appID string, checkoutSdkOrderID int64, mac string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Queries = append(g.Queries, checkoutSdkOrderID)
	if g.err != nil {
		return 0, g.err
	}
	// chưa script thì coi như giao dịch chưa có kết quả
	return g.results[checkoutSdkOrderID], nil
}
