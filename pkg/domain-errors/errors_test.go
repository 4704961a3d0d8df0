package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := New(CodeNotFound, "donation not found")
	wrapped := fmt.Errorf("lookup: %w", base)

	assert.True(t, HasCode(base, CodeNotFound))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestWrapKeepsCauseAndInnerCodes(t *testing.T) {
	cause := errors.New("smtp: 421 service not available")
	inner := Wrap(cause, CodeDependencyFailure, "notification dispatch failed")
	outer := Wrap(inner, CodeInternal, "request failed")

	assert.ErrorIs(t, outer, cause)
	assert.True(t, HasCode(outer, CodeDependencyFailure))
	assert.Equal(t, CodeInternal, CodeOf(outer))
	assert.Equal(t, "request failed", MessageOf(outer))
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
}
