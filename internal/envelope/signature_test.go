package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		timestamp string
		nonce     string
	}{
		{name: "simple", token: "tok", timestamp: "1700000000", nonce: "42"},
		{name: "empty nonce", token: "tok", timestamp: "1700000000", nonce: ""},
		{name: "unicode token", token: "令牌", timestamp: "1", nonce: "n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Signature(tt.token, tt.timestamp, tt.nonce)
			assert.True(t, VerifySignature(tt.token, sig, tt.timestamp, tt.nonce))
		})
	}
}

func TestVerifySignatureMutation(t *testing.T) {
	sig := Signature("tok", "1700000000", "42")
	require.Len(t, sig, 40)

	// Flipping any single hex character must break verification.
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		assert.False(t, VerifySignature("tok", string(mutated), "1700000000", "42"), "mutation at %d", i)
	}
}

func TestSignatureSortsInputs(t *testing.T) {
	// SHA1 over the sorted concatenation: argument order beyond the
	// token slot must not matter once sorted values collide.
	assert.Equal(t, Signature("b", "a", "c"), Signature("c", "a", "b"))
}

func TestMsgSignatureRoundTrip(t *testing.T) {
	sig := MsgSignature("tok", "1700000000", "42", "ZW5jcnlwdGVk")
	assert.True(t, VerifyMsgSignature("tok", "1700000000", "42", "ZW5jcnlwdGVk", sig))
	assert.False(t, VerifyMsgSignature("tok", "1700000000", "42", "dGFtcGVyZWQ=", sig))
}
