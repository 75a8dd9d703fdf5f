// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetsRetryable(t *testing.T) {
	conflict := New(KindConflict, "bed already held")
	assert.True(t, conflict.IsRetryable())

	validation := New(KindValidation, "missing caller name")
	assert.False(t, validation.IsRetryable())
}

func TestErrorStringIncludesField(t *testing.T) {
	err := Validation("language", "unsupported language code")
	assert.Contains(t, err.Error(), "field=language")
}

func TestIsMatchesOnKind(t *testing.T) {
	a := New(KindNoCapacity, "no beds available")
	b := New(KindNoCapacity, "different message, same kind")
	assert.True(t, a.Is(b))

	c := New(KindNotFound, "reservation not found")
	assert.False(t, a.Is(c))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:  http.StatusBadRequest,
		KindNotFound:    http.StatusNotFound,
		KindConflict:    http.StatusConflict,
		KindExpired:     http.StatusGone,
		KindNoCapacity:  http.StatusServiceUnavailable,
		KindTimeout:     http.StatusGatewayTimeout,
		KindUnavailable: http.StatusServiceUnavailable,
		KindInternal:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind=%s", kind)
	}
}

func TestAsWrapsUnknownErrors(t *testing.T) {
	raw := assert.AnError
	wrapped := As(raw)
	assert.Equal(t, KindInternal, wrapped.Kind)
	assert.ErrorIs(t, wrapped.Unwrap(), raw)
}

func TestAsPassesThroughShelterError(t *testing.T) {
	original := New(KindExpired, "reservation past deadline")
	assert.Same(t, original, As(original))
}
