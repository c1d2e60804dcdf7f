package qrcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePNG(t *testing.T) {
	enc := NewEncoder()

	png, err := enc.EncodePNG("https://certs.example.com/validate/PREN1ABCDE2345")
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestEncodePNGEmptyPayload(t *testing.T) {
	enc := NewEncoder()

	_, err := enc.EncodePNG("")
	assert.Error(t, err)
}

func TestEncodeDataURI(t *testing.T) {
	enc := NewEncoder()

	uri, err := enc.EncodeDataURI("https://certs.example.com/validate/PREN1ABCDE2345")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	assert.Greater(t, len(uri), len("data:image/png;base64,"))
}
