package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewErrorAliasReasons(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code int
		want string
	}{
		{code: ErrAliasTaken, want: "alias taken"},
		{code: ErrAliasTooLong, want: "alias too long"},
		{code: ErrAliasEmpty, want: "alias empty"},
		{code: ErrAliasInvalid, want: "alias invalid"},
		{code: ErrAliasExpected, want: "alias request expected"},
		{code: ErrServerFull, want: "server is full"},
	}

	for _, test := range tests {
		if got := Reason(test.code); got != test.want {
			t.Errorf("Reason(%d): got %q, want %q", test.code, got, test.want)
		}
	}
}

func TestNewErrorDefaultsAndFormatting(t *testing.T) {
	t.Parallel()

	invalid := NewError(ErrInvalidParams)
	if invalid.Status != http.StatusBadRequest {
		t.Errorf("default status: got %d, want %d", invalid.Status, http.StatusBadRequest)
	}

	notFound := NewError(ErrUserNotFound, "bob")
	if notFound.Message != `No connected user with alias "bob".` {
		t.Errorf("formatted message: got %q", notFound.Message)
	}
	if notFound.Status != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", notFound.Status, http.StatusNotFound)
	}

	unknown := NewError(999999)
	if unknown.Code != ErrUnknown {
		t.Errorf("unknown code fallback: got %d, want %d", unknown.Code, ErrUnknown)
	}
}

func TestCustomErrorIs(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("negotiate: %w", NewError(ErrAliasTaken))

	if !errors.Is(wrapped, NewError(ErrAliasTaken)) {
		t.Error("errors.Is should match the same code through wrapping")
	}
	if errors.Is(wrapped, NewError(ErrAliasTooLong)) {
		t.Error("errors.Is should not match a different code")
	}
}
