package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Header signature dari provider: "ts=<epoch-ms>,v1=<hex-hmac>".
type Signature struct {
	TS string
	V1 string
}

func ParseSignature(header string) (Signature, bool) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "ts="):
			sig.TS = strings.TrimPrefix(part, "ts=")
		case strings.HasPrefix(part, "v1="):
			sig.V1 = strings.TrimPrefix(part, "v1=")
		}
	}
	return sig, sig.TS != "" && sig.V1 != ""
}

// VerifySignature: HMAC-SHA256 atas manifest resmi provider,
// "id:<dataId>;request-id:<requestId>;ts:<ts>;", dibandingkan constant-time.
// Mismatch apa pun -> tolak, jangan proses lebih lanjut.
func VerifySignature(dataID, requestID, header, secret string) bool {
	sig, ok := ParseSignature(header)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig.V1)
	if err != nil {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, sig.TS)
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	mac.Write([]byte(manifest))
	want := mac.Sum(nil)

	return hmac.Equal(got, want)
}
