package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Gateway là phía cổng thanh toán nhìn từ backend: chỉ có một thao tác là
// hỏi trạng thái của một đơn đã tạo qua Checkout SDK.
type Gateway interface {
	// QueryStatus trả về returnCode của giao dịch: 1 thành công, khác 0 là
	// thất bại, 0 nghĩa là chưa có kết quả.
	QueryStatus(ctx context.Context, appID string, checkoutSdkOrderID int64, mac string) (int, error)
}

type statusRequest struct {
	AppID   string `json:"appId"`
	OrderID int64  `json:"orderId"`
	Mac     string `json:"mac"`
}

type statusResponse struct {
	ReturnCode    int    `json:"returnCode"`
	ReturnMessage string `json:"returnMessage"`
}

type zaloGateway struct {
	endpoint string
	client   *http.Client
}

// NewZaloGateway tạo client gọi API get-status thật. Timeout cứng để một
// lần truy vấn treo không giữ goroutine của deferred check mãi.
func NewZaloGateway(endpoint string) Gateway {
	return &zaloGateway{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *zaloGateway) QueryStatus(ctx context.Context, appID string, checkoutSdkOrderID int64, mac string) (int, error) {
	body, err := json.Marshal(statusRequest{AppID: appID, OrderID: checkoutSdkOrderID, Mac: mac})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("query status: unexpected status %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode status response: %w", err)
	}
	return out.ReturnCode, nil
}
