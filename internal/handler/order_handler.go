package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/logging"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/repo"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/security"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/service"
)

type OrderHandler struct {
	svc    service.OrderService
	signer *security.Signer
	store  repo.OrderRepo
}

func NewOrderHandler(svc service.OrderService, signer *security.Signer, store repo.OrderRepo) *OrderHandler {
	return &OrderHandler{svc: svc, signer: signer, store: store}
}

func (h *OrderHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Đây là backend cho CheckoutSDK Tutorial!",
	})
}

// Healthz chạm vào store thật sự đang phục vụ request: file store hỏng hay
// Postgres rớt kết nối thì báo 503 thay vì ok tĩnh.
func (h *OrderHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if _, err := h.store.Count(ctx); err != nil {
		logging.From(c).Error("health check: store unreachable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	infos, err := h.svc.List(c.Request.Context())
	if err != nil {
		logging.From(c).Error("list orders failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Không đọc được danh sách đơn hàng!"})
		return
	}
	c.JSON(http.StatusOK, infos)
}

type CreateOrderRequest struct {
	ZaloUserID string            `json:"zaloUserId" binding:"required"`
	Items      []domain.CartItem `json:"items" binding:"required,min=1"`
	Total      float64           `json:"total"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dữ liệu đơn hàng không hợp lệ!"})
		return
	}

	order, err := h.svc.Create(c.Request.Context(), req.ZaloUserID, req.Items, req.Total)
	if err != nil {
		logging.From(c).Error("create order failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Không tạo được đơn hàng!"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Đã tạo đơn hàng thành công!",
		"orderId": order.ID,
	})
}

// MacRequest là đúng bộ field mà SDK đưa vào MAC của request thanh toán.
// Giữ raw JSON để chuỗi canonical khớp từng byte với client.
type MacRequest struct {
	Amount    json.RawMessage `json:"amount" binding:"required"`
	Desc      json.RawMessage `json:"desc" binding:"required"`
	Item      json.RawMessage `json:"item" binding:"required"`
	Extradata json.RawMessage `json:"extradata" binding:"required"`
	Method    json.RawMessage `json:"method" binding:"required"`
}

func (h *OrderHandler) CreateMac(c *gin.Context) {
	var req MacRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Thiếu tham số tạo MAC!"})
		return
	}
	mac := h.signer.Sign(map[string]json.RawMessage{
		"amount":    req.Amount,
		"desc":      req.Desc,
		"item":      req.Item,
		"extradata": req.Extradata,
		"method":    req.Method,
	})
	c.JSON(http.StatusOK, gin.H{"mac": mac})
}

type LinkOrderRequest struct {
	OrderID            int    `json:"orderId" binding:"required"`
	CheckoutSdkOrderID int64  `json:"checkoutSdkOrderId" binding:"required"`
	MiniAppID          string `json:"miniAppId" binding:"required"`
}

func (h *OrderHandler) LinkOrder(c *gin.Context) {
	var req LinkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dữ liệu liên kết không hợp lệ!"})
		return
	}

	err := h.svc.Link(c.Request.Context(), req.OrderID, req.CheckoutSdkOrderID, req.MiniAppID)
	if errors.Is(err, repo.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Không tìm thấy đơn hàng!"})
		return
	}
	if err != nil {
		logging.From(c).Error("link order failed", "order_id", req.OrderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Không liên kết được đơn hàng!"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã liên kết đơn hàng thành công!"})
}

type CallbackRequest struct {
	Data       map[string]json.RawMessage `json:"data"`
	OverallMac string                     `json:"overallMac"`
}

// Callback là webhook phía cổng thanh toán gọi vào. Mọi nhánh, kể cả body
// hỏng, đều trả HTTP 200 với returnCode trong body: provider chỉ chấp nhận
// status 200.
func (h *OrderHandler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 || req.OverallMac == "" {
		c.JSON(http.StatusOK, service.CallbackResult{ReturnCode: 0, ReturnMessage: "Dữ liệu callback không hợp lệ!"})
		return
	}
	result := h.svc.ResolveCallback(c.Request.Context(), req.Data, req.OverallMac)
	c.JSON(http.StatusOK, result)
}
