package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Signer tính message authentication code cho các request/callback của
// Checkout SDK bằng HMAC-SHA256 với khóa bí mật chia sẻ.
type Signer struct {
	key string
}

func NewSigner(privateKey string) *Signer {
	return &Signer{key: privateKey}
}

// Sign ghép các field theo thứ tự key tăng dần thành chuỗi
// "k1=v1&k2=v2&..." rồi băm HMAC-SHA256, trả về hex chữ thường.
//
// Cách render value phải khớp từng byte với phía verifier của SDK:
// string render không có dấu nháy, object/array render nguyên dạng JSON
// (giữ thứ tự key gốc của payload, chỉ nén whitespace), số và bool render
// đúng như chúng xuất hiện trong JSON.
func (s *Signer) Sign(params map[string]json.RawMessage) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(canonicalValue(params[k]))
	}
	return s.hexDigest(buf.Bytes())
}

// SignStatusQuery ký truy vấn trạng thái giao dịch theo đúng quy ước riêng
// của API get-status: chuỗi không sort và chứa cả private key bên trong
// phần được ký. Không được "sửa" cho giống scheme sort-key ở trên, verifier
// phía cổng thanh toán chỉ chấp nhận đúng dạng này.
func (s *Signer) SignStatusQuery(appID string, checkoutSdkOrderID int64) string {
	data := fmt.Sprintf("appId=%s&orderId=%d&privateKey=%s", appID, checkoutSdkOrderID, s.key)
	return s.hexDigest([]byte(data))
}

// Verify so khớp MAC client gửi lên với MAC tính lại từ params.
func (s *Signer) Verify(params map[string]json.RawMessage, claimedMac string) bool {
	expected := s.Sign(params)
	return hmac.Equal([]byte(expected), []byte(claimedMac))
}

func (s *Signer) hexDigest(data []byte) string {
	mac := hmac.New(sha256.New, []byte(s.key))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func canonicalValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return string(trimmed)
		}
		return str
	case '{', '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return string(trimmed)
		}
		return compact.String()
	default:
		// số, bool, null: giữ nguyên dạng xuất hiện trong JSON
		return string(trimmed)
	}
}
