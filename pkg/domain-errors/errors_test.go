package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("returns the code of a coded error", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("returns the outermost code of a wrapped chain", func(t *testing.T) {
		inner := New(CodeConflict, "conflict")
		outer := Wrap(inner, CodeInternal, "store failed")
		assert.Equal(t, CodeInternal, CodeOf(outer))
	})

	t.Run("uncoded errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeInvalidInput, "bad"))
		assert.Equal(t, CodeInvalidInput, CodeOf(err))
	})
}

func TestHasCode(t *testing.T) {
	t.Run("matches the direct code", func(t *testing.T) {
		err := New(CodeEscalationDenied, "denied")
		assert.True(t, HasCode(err, CodeEscalationDenied))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches a code deeper in the chain", func(t *testing.T) {
		inner := New(CodeCodeAlreadyRedeemed, "redeemed")
		outer := Wrap(inner, CodeInternal, "redemption failed")
		assert.True(t, HasCode(outer, CodeCodeAlreadyRedeemed))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("nil and uncoded errors match nothing", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "store failed")
	assert.True(t, errors.Is(err, cause))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeUnauthenticated:     http.StatusUnauthorized,
		CodeAuthorizationDenied: http.StatusForbidden,
		CodeEscalationDenied:    http.StatusForbidden,
		CodeNotFound:            http.StatusNotFound,
		CodeConflict:            http.StatusConflict,
		CodeCodeAlreadyRedeemed: http.StatusConflict,
		CodeCodeInactive:        http.StatusGone,
		CodeInvalidInput:        http.StatusBadRequest,
		CodeInternal:            http.StatusInternalServerError,
		Code("unknown"):         http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
