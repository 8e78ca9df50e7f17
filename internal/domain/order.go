package domain

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
)

// CartItem là một dòng trong giỏ hàng. Product giữ nguyên dạng JSON vì backend
// tin dữ liệu từ client, không đối chiếu lại với catalog.
type CartItem struct {
	Product  json.RawMessage `json:"product"`
	Quantity int             `json:"quantity"`
}

type Delivery struct {
	Type      string `json:"type"`
	StationID int    `json:"stationId"`
}

// OrderInfo là phần dữ liệu trả về cho client qua GET /orders.
type OrderInfo struct {
	ID            int           `json:"id"`
	Items         []CartItem    `json:"items"`
	Total         float64       `json:"total"`
	Delivery      Delivery      `json:"delivery"`
	Note          string        `json:"note"`
	CreatedAt     time.Time     `json:"createdAt"`
	ReceivedAt    time.Time     `json:"receivedAt"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

type Order struct {
	ID         int    `json:"id"`
	ZaloUserID string `json:"zaloUserId"`
	// CheckoutSdkOrderID được gán một lần duy nhất khi liên kết đơn hàng
	// với phía cổng thanh toán.
	CheckoutSdkOrderID *int64 `json:"checkoutSdkOrderId,omitempty"`
	// MiniAppID lưu từ request /link để ký lại truy vấn trạng thái sau khi
	// process khởi động lại.
	MiniAppID string `json:"miniAppId,omitempty"`
	// LinkedAt đánh dấu thời điểm liên kết: đồng hồ chờ của deferred status
	// check tính từ đây, không phải từ lúc tạo đơn.
	LinkedAt *time.Time `json:"linkedAt,omitempty"`
	Info     OrderInfo  `json:"info"`
}

// Linked báo đơn hàng đã gắn với một đơn phía cổng thanh toán hay chưa.
func (o *Order) Linked() bool {
	return o.CheckoutSdkOrderID != nil
}
