package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
)

// VerifyYooKassaSignature checks the webhook Authorization header against
// base64(HMAC-SHA256(raw body, secret)). An optional "Bearer " prefix on the
// header is tolerated. Comparison is constant time.
func VerifyYooKassaSignature(secret string, rawBody []byte, authHeader string) bool {
	if secret == "" || authHeader == "" {
		return false
	}
	sig := strings.TrimPrefix(authHeader, "Bearer ")

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}

// HeleketSign derives the provider signature for a notification body:
// md5(base64(canonical JSON of body without "sign") + api key), hex encoded.
// Canonical form is keys sorted with compact separators, HTML characters
// left literal and non-ASCII escaped as lowercase \uXXXX sequences.
func HeleketSign(body map[string]interface{}, apiKey string) (string, error) {
	clean := make(map[string]interface{}, len(body))
	for k, v := range body {
		if k == "sign" {
			continue
		}
		clean[k] = v
	}
	canonical, err := canonicalJSON(clean)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(canonical)
	sum := md5.Sum([]byte(encoded + apiKey))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON marshals v without HTML escaping, then rewrites every rune
// above 0x7e as a \uXXXX escape so the output is pure ASCII. json.Marshal
// alone would turn & < > into & style escapes and pass multibyte runes
// through raw, neither of which matches the signed form.
func canonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	compact := bytes.TrimRight(buf.Bytes(), "\n")

	out := make([]byte, 0, len(compact))
	for _, r := range string(compact) {
		switch {
		case r <= 0x7e:
			out = append(out, byte(r))
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			out = append(out, fmt.Sprintf(`\u%04x\u%04x`, r1, r2)...)
		default:
			out = append(out, fmt.Sprintf(`\u%04x`, r)...)
		}
	}
	return out, nil
}

// VerifyHeleketSignature compares the body-derived signature with the "sign"
// field in constant time.
func VerifyHeleketSignature(body map[string]interface{}, apiKey, sign string) bool {
	if apiKey == "" || sign == "" {
		return false
	}
	expected, err := HeleketSign(body, apiKey)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) == 1
}
