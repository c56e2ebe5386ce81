// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrMissingDataSource, ErrMissingDataSource) {
		t.Error("same error should match")
	}
	if errors.Is(ErrMissingDataSource, ErrNoData) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrInvalidRiskInputs, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrInvalidRiskInputs.Code {
		t.Error("code not preserved")
	}
}

func TestWrapError_MatchesThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("loading EURUSD: %w", WrapError(ErrMissingDataSource, errors.New("file not found")))
	if !errors.Is(err, ErrMissingDataSource) {
		t.Error("wrapped error should match by code")
	}
}
