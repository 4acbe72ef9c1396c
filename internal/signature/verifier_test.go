package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(body, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func TestVerify_ValidHex(t *testing.T) {
	body := []byte(`{"id":"m1","sender":"+123","body":"hello"}`)
	secret := []byte("topsecret")

	sig := hex.EncodeToString(sign(body, secret))
	assert.True(t, Verify(body, sig, secret))
}

func TestVerify_ValidBase64(t *testing.T) {
	body := []byte("payload bytes")
	secret := []byte("topsecret")

	sig := base64.StdEncoding.EncodeToString(sign(body, secret))
	assert.True(t, Verify(body, sig, secret))
}

func TestVerify_ValidWithPrefix(t *testing.T) {
	body := []byte("payload")
	secret := []byte("topsecret")

	sig := "sha256=" + hex.EncodeToString(sign(body, secret))
	assert.True(t, Verify(body, sig, secret))
}

func TestVerify_WrongSecret(t *testing.T) {
	body := []byte("payload")

	sig := hex.EncodeToString(sign(body, []byte("secret-a")))
	assert.False(t, Verify(body, sig, []byte("secret-b")))
}

func TestVerify_TamperedBody(t *testing.T) {
	secret := []byte("topsecret")

	sig := hex.EncodeToString(sign([]byte("original"), secret))
	assert.False(t, Verify([]byte("tampered"), sig, secret))
}

func TestVerify_UndecodableHeader(t *testing.T) {
	body := []byte("payload")
	secret := []byte("topsecret")

	tests := []struct {
		name   string
		header string
	}{
		{name: "empty", header: ""},
		{name: "whitespace", header: "   "},
		{name: "prefix only", header: "sha256="},
		{name: "garbage", header: "!!not-a-signature!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(body, tt.header, secret))
		})
	}
}

func TestVerify_TruncatedSignature(t *testing.T) {
	body := []byte("payload")
	secret := []byte("topsecret")

	full := hex.EncodeToString(sign(body, secret))
	assert.False(t, Verify(body, full[:32], secret))
}

func TestVerifier_BoundSecret(t *testing.T) {
	body := []byte("payload")
	secret := []byte("topsecret")

	v := NewVerifier(secret)
	assert.True(t, v.Verify(body, hex.EncodeToString(sign(body, secret))))
	assert.False(t, v.Verify(body, hex.EncodeToString(sign(body, []byte("other")))))
}
