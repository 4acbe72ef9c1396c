package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Verify reports whether signatureHeader is a valid HMAC-SHA256 of rawBody
// under secret. The header may carry the digest hex- or base64-encoded, with
// an optional "sha256=" prefix.
//
// The comparison is constant-time. A header that fails to decode is a plain
// verification failure; a dummy compare still runs so the timing profile does
// not distinguish undecodable headers from mismatching ones.
func Verify(rawBody []byte, signatureHeader string, secret []byte) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	provided, ok := decodeHeader(signatureHeader)
	if !ok {
		hmac.Equal(expected, expected)
		return false
	}

	return hmac.Equal(provided, expected)
}

func decodeHeader(header string) ([]byte, bool) {
	s := strings.TrimSpace(header)
	s = strings.TrimPrefix(s, "sha256=")
	if s == "" {
		return nil, false
	}

	if b, err := hex.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}

// Verifier binds Verify to a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(rawBody []byte, signatureHeader string) bool {
	return Verify(rawBody, signatureHeader, v.secret)
}
