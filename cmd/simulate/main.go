package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/infrastructure/payment"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/logging"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/repo"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/security"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/service"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/worker"
)

// Mô phỏng vòng đời thanh toán không cần cổng thật: đơn lẻ chốt qua deferred
// status check với gateway giả, đơn chẵn chốt qua callback có ký MAC.
func main() {
	ctx := context.Background()
	log := logging.Init("simulate", "")

	signer := security.NewSigner("sim-private-key")
	orderRepo := repo.NewMemoryRepo()
	gateway := payment.NewFakeGateway()

	svc := service.NewOrderService(orderRepo, signer, log)
	checker := worker.NewStatusChecker(orderRepo, gateway, signer, svc, 300*time.Millisecond, log)
	svc.AttachScheduler(checker)
	defer checker.Close()

	fmt.Println("--- STARTING SIMULATION (10 ORDERS) ---")
	for i := 1; i <= 10; i++ {
		item := json.RawMessage(`{"product":{"id":1,"name":"Cà phê sữa đá","price":35000},"quantity":2}`)
		order, err := svc.Create(ctx, "sim-user", []domain.CartItem{{Product: item, Quantity: 2}}, 70000)
		if err != nil {
			fmt.Printf("[%d] Create Failed: %v\n", i, err)
			continue
		}

		sdkOrderID := int64(9000 + i)
		if err := svc.Link(ctx, order.ID, sdkOrderID, "sim-app"); err != nil {
			fmt.Printf("[%d] Link Failed: %v\n", i, err)
			continue
		}

		fmt.Printf("[%d] Processing Order %d ... ", i, order.ID)
		if i%2 == 0 {
			// chốt qua callback: đơn chia hết cho 4 thì thất bại
			resultCode := domain.ResultCodeSuccess
			if i%4 == 0 {
				resultCode = 2
			}
			data := callbackData(order.ID, sdkOrderID, resultCode)
			result := svc.ResolveCallback(ctx, data, signer.Sign(data))
			fmt.Printf("callback -> returnCode=%d\n", result.ReturnCode)
		} else {
			// chốt qua deferred check: script sẵn kết quả trên gateway giả
			gateway.SetResult(sdkOrderID, domain.ResultCodeSuccess)
			fmt.Printf("waiting for deferred check\n")
		}
	}

	// chờ các deferred check nổ
	time.Sleep(time.Second)

	fmt.Println("---------------------------------------------------")
	orders, _ := orderRepo.All(ctx)
	for _, o := range orders {
		fmt.Printf("    -> Order %d: paymentStatus=%s\n", o.ID, o.Info.PaymentStatus)
	}
}

func callbackData(orderID int, sdkOrderID int64, resultCode int) map[string]json.RawMessage {
	extra := url.QueryEscape(fmt.Sprintf(`{"myOrderId":%d}`, orderID))
	quoted, _ := json.Marshal(extra)
	return map[string]json.RawMessage{
		"appId":      json.RawMessage(`"sim-app"`),
		"orderId":    json.RawMessage(fmt.Sprintf("%d", sdkOrderID)),
		"method":     json.RawMessage(`"ZALOPAY_SANDBOX"`),
		"resultCode": json.RawMessage(fmt.Sprintf("%d", resultCode)),
		"extradata":  json.RawMessage(quoted),
	}
}
