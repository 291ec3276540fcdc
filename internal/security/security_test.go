package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	plain := "super-secret-telegram-token"
	encoded := Encode(plain)
	assert.NotEqual(t, plain, encoded)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, plain, decoded)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("not-valid-base64!!!")
	assert.Error(t, err)
}

func TestEncodeEmpty(t *testing.T) {
	encoded := Encode("")
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "", decoded)
}
