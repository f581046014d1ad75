package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "no such certificate")
		if !HasCode(err, CodeNotFound) {
			t.Fatalf("expected CodeNotFound to match")
		}
		if HasCode(err, CodeConflict) {
			t.Fatalf("did not expect CodeConflict to match")
		}
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		inner := New(CodeUnavailable, "extraction service unreachable")
		outer := fmt.Errorf("submit: %w", inner)
		if !HasCode(outer, CodeUnavailable) {
			t.Fatalf("expected code to survive fmt.Errorf wrapping")
		}
	})

	t.Run("matches outermost code first", func(t *testing.T) {
		inner := New(CodeNotFound, "record missing")
		outer := Wrap(inner, CodeInternal, "lookup failed")
		if !HasCode(outer, CodeInternal) {
			t.Fatalf("expected outer code to match")
		}
		if !HasCode(outer, CodeNotFound) {
			t.Fatalf("expected inner code to remain reachable")
		}
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		if HasCode(errors.New("boom"), CodeInternal) {
			t.Fatalf("plain error should not match any code")
		}
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "extraction gateway")
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeInvalidInput:       http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeUnavailable:        http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
		CodeInvariantViolation: http.StatusBadRequest,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
