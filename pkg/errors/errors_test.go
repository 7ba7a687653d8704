package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeServiceNotFound, "service %s not found", "auth/clerk")

	if got := GetCode(err); got != ErrCodeServiceNotFound {
		t.Errorf("GetCode = %q, want %q", got, ErrCodeServiceNotFound)
	}
	if !strings.Contains(err.Error(), "auth/clerk") {
		t.Errorf("Error() = %q, want it to mention the service", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeCatalog, cause, "fetch catalog")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause via errors.Is")
	}
	if got := GetCode(err); got != ErrCodeCatalog {
		t.Errorf("GetCode = %q, want %q", got, ErrCodeCatalog)
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeMissingDependency, "missing")

	if !Is(err, ErrCodeMissingDependency) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeConflict) {
		t.Error("Is should not match a different code")
	}
	if Is(nil, ErrCodeConflict) {
		t.Error("Is(nil) should be false")
	}
	if Is(stderrors.New("plain"), ErrCodeConflict) {
		t.Error("Is should not match plain errors")
	}
}

func TestWrapCodeWinsOverCause(t *testing.T) {
	inner := New(ErrCodeServiceNotFound, "not found")
	outer := Wrap(ErrCodeMissingDependency, inner, "dependency lookup")

	if got := GetCode(outer); got != ErrCodeMissingDependency {
		t.Errorf("GetCode = %q, want outer code %q", got, ErrCodeMissingDependency)
	}
	if !Is(outer, ErrCodeServiceNotFound) {
		t.Error("Is should still find the inner code through the chain")
	}
}

func TestGetCodePlainError(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode of plain error = %q, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeConflict, "auth/clerk conflicts with auth/lucia")
	if msg := UserMessage(err); !strings.Contains(msg, "conflicts") {
		t.Errorf("UserMessage = %q, want the conflict message", msg)
	}
	if msg := UserMessage(stderrors.New("boom")); msg == "" {
		t.Error("UserMessage of plain error should not be empty")
	}
}
