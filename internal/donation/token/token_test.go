package token

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestGenerate(t *testing.T) {
	svc := New()
	seen := make(map[string]struct{})
	for range 100 {
		tok, err := svc.Generate()
		require.NoError(t, err)
		assert.Regexp(t, hexToken, tok)
		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestGenerateSurfacesEntropyFailure(t *testing.T) {
	svc := New(WithRandom(bytes.NewReader([]byte{1, 2, 3})))
	_, err := svc.Generate()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	svc := New()
	tok, err := svc.Generate()
	require.NoError(t, err)

	assert.True(t, svc.Validate(tok, tok))
	assert.False(t, svc.Validate(tok, tok[:63]+"x"))
	assert.False(t, svc.Validate(tok, ""))
	assert.False(t, svc.Validate("", ""))
}
