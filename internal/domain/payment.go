package domain

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal báo trạng thái thanh toán đã chốt hay chưa. Một khi terminal thì
// không actor nào (callback hay deferred check) được ghi đè nữa.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Mã kết quả giao dịch phía cổng thanh toán: 1 là thành công, các mã khác 0
// là thất bại, 0 nghĩa là chưa có kết quả.
const (
	ResultCodeProcessing = 0
	ResultCodeSuccess    = 1
)

// StatusFromResultCode ánh xạ mã kết quả sang trạng thái thanh toán. Chỉ gọi
// khi code khác 0.
func StatusFromResultCode(code int) PaymentStatus {
	if code == ResultCodeSuccess {
		return PaymentSuccess
	}
	return PaymentFailed
}
