package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeInvalidInput, "missing field %q", "nodes")
	want := `INVALID_INPUT: missing field "nodes"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeStorage, cause, "persist flowchart.mmd")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause with errors.Is")
	}
	if got := err.Error(); got != "STORAGE_ERROR: persist flowchart.mmd: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(ErrCodeQuotaExceeded, "artifact limit reached")

	if !Is(err, ErrCodeQuotaExceeded) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeSubscriptionInactive) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeQuotaExceeded) {
		t.Error("Is should not match non-structured errors")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := New(ErrCodeQuotaExceeded, "limit")
	outer := fmt.Errorf("generate: %w", inner)

	if !Is(outer, ErrCodeQuotaExceeded) {
		t.Error("Is should unwrap fmt.Errorf chains")
	}
	if GetCode(outer) != ErrCodeQuotaExceeded {
		t.Errorf("GetCode = %q, want QUOTA_EXCEEDED", GetCode(outer))
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", New(ErrCodeInvalidInput, "no nodes"), "no nodes"},
		{"quota", New(ErrCodeQuotaExceeded, "plan limit reached"), "plan limit reached"},
		{"render hides internals", New(ErrCodeRender, "nil schema in endpoint 3"), "artifact generation failed"},
		{"internal hides internals", New(ErrCodeInternal, "corrupt state"), "artifact generation failed"},
		{"plain error", stderrors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
