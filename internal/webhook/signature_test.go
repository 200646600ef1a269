package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedHeader(t *testing.T, dataID, requestID, ts, secret string) string {
	t.Helper()
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseSignature(t *testing.T) {
	sig, ok := ParseSignature("ts=1704908010,v1=abcdef01")
	require.True(t, ok)
	assert.Equal(t, "1704908010", sig.TS)
	assert.Equal(t, "abcdef01", sig.V1)

	// spasi setelah koma tetap valid
	sig, ok = ParseSignature("ts=1704908010, v1=abcdef01")
	require.True(t, ok)
	assert.Equal(t, "abcdef01", sig.V1)

	_, ok = ParseSignature("v1=abcdef01")
	assert.False(t, ok)

	_, ok = ParseSignature("")
	assert.False(t, ok)
}

func TestVerifySignature(t *testing.T) {
	const (
		dataID    = "12345678901"
		requestID = "req-abc-123"
		secret    = "super-secret"
	)
	header := signedHeader(t, dataID, requestID, "1704908010", secret)

	assert.True(t, VerifySignature(dataID, requestID, header, secret))

	// secret dengan whitespace di config tetap cocok
	assert.True(t, VerifySignature(dataID, requestID, header, "  "+secret+"\n"))

	t.Run("tampered data id", func(t *testing.T) {
		assert.False(t, VerifySignature("99999999999", requestID, header, secret))
	})
	t.Run("tampered request id", func(t *testing.T) {
		assert.False(t, VerifySignature(dataID, "req-other", header, secret))
	})
	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, VerifySignature(dataID, requestID, header, "guessed"))
	})
	t.Run("garbage hex", func(t *testing.T) {
		assert.False(t, VerifySignature(dataID, requestID, "ts=1,v1=zzzz", secret))
	})
	t.Run("missing components", func(t *testing.T) {
		assert.False(t, VerifySignature(dataID, requestID, "ts=1704908010", secret))
	})
}
