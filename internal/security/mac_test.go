package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-private-key"

func hmacHex(t *testing.T, key, data string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func checkoutParams() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"amount":    json.RawMessage(`100`),
		"desc":      json.RawMessage(`"Thanh toán cho đơn hàng #1"`),
		"item":      json.RawMessage(`[{"id":1,"amount":100}]`),
		"extradata": json.RawMessage(`"{\"myOrderId\":1}"`),
		"method":    json.RawMessage(`"ZALOPAY_SANDBOX"`),
	}
}

func TestSign_CanonicalString(t *testing.T) {
	signer := NewSigner(testKey)

	// key sort tăng dần, string không còn dấu nháy, array giữ nguyên JSON
	expected := hmacHex(t, testKey,
		`amount=100`+
			`&desc=Thanh toán cho đơn hàng #1`+
			`&extradata={"myOrderId":1}`+
			`&item=[{"id":1,"amount":100}]`+
			`&method=ZALOPAY_SANDBOX`)

	assert.Equal(t, expected, signer.Sign(checkoutParams()))
}

func TestSign_Deterministic(t *testing.T) {
	signer := NewSigner(testKey)
	first := signer.Sign(checkoutParams())
	second := signer.Sign(checkoutParams())
	assert.Equal(t, first, second)
}

func TestSign_IndependentOfFieldOrderInJSON(t *testing.T) {
	signer := NewSigner(testKey)

	var a, b map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"amount":100,"desc":"x","item":[1],"extradata":"e","method":"m"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"method":"m","extradata":"e","item":[1],"desc":"x","amount":100}`), &b))

	assert.Equal(t, signer.Sign(a), signer.Sign(b))
}

func TestSign_ValueChangeChangesDigest(t *testing.T) {
	signer := NewSigner(testKey)

	base := signer.Sign(checkoutParams())

	changed := checkoutParams()
	changed["amount"] = json.RawMessage(`101`)
	assert.NotEqual(t, base, signer.Sign(changed))
}

func TestSign_CompactsObjectWhitespace(t *testing.T) {
	signer := NewSigner(testKey)

	spaced := map[string]json.RawMessage{
		"item": json.RawMessage(`[ { "id": 1, "amount": 100 } ]`),
	}
	compact := map[string]json.RawMessage{
		"item": json.RawMessage(`[{"id":1,"amount":100}]`),
	}
	assert.Equal(t, signer.Sign(compact), signer.Sign(spaced))
}

func TestSign_PreservesObjectKeyOrder(t *testing.T) {
	signer := NewSigner(testKey)

	// thứ tự key bên trong object là của payload gốc, không được sort lại
	expected := hmacHex(t, testKey, `method={"id":"ZALOPAY_SANDBOX","isCustom":false}`)
	got := signer.Sign(map[string]json.RawMessage{
		"method": json.RawMessage(`{"id":"ZALOPAY_SANDBOX","isCustom":false}`),
	})
	assert.Equal(t, expected, got)
}

func TestSignStatusQuery_LiteralScheme(t *testing.T) {
	signer := NewSigner(testKey)

	// scheme riêng của API get-status: không sort, private key nằm trong
	// chuỗi được ký
	expected := hmacHex(t, testKey, "appId=vn.zalo.demo&orderId=42&privateKey="+testKey)
	assert.Equal(t, expected, signer.SignStatusQuery("vn.zalo.demo", 42))
}

func TestVerify(t *testing.T) {
	signer := NewSigner(testKey)
	params := checkoutParams()
	mac := signer.Sign(params)

	assert.True(t, signer.Verify(params, mac))
	assert.False(t, signer.Verify(params, "deadbeef"))
	assert.False(t, signer.Verify(params, ""), "empty mac must not verify")

	// so sánh là case-sensitive
	upper := make([]byte, len(mac))
	for i := 0; i < len(mac); i++ {
		c := mac[i]
		if c >= 'a' && c <= 'f' {
			c = c - 'a' + 'A'
		}
		upper[i] = c
	}
	assert.False(t, signer.Verify(params, string(upper)))
}

func TestVerify_DifferentKeyFails(t *testing.T) {
	params := checkoutParams()
	mac := NewSigner(testKey).Sign(params)
	assert.False(t, NewSigner("other-key").Verify(params, mac))
}
