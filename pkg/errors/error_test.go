package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	t.Parallel()

	err := New(TaskNotFound)
	if err.Code != TaskNotFound {
		t.Fatalf("unexpected code %d", err.Code)
	}
	if err.Message != TaskNotFound.Message() {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("connection refused")
	err := Wrapf(cause, SandboxUnavailable, "ping daemon")
	if GetCode(err) != SandboxUnavailable {
		t.Fatalf("unexpected code %d", GetCode(err))
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped error must unwrap to its cause")
	}
}

func TestGetCodeOnForeignError(t *testing.T) {
	t.Parallel()

	if code := GetCode(stderrors.New("plain")); code != InternalServerError {
		t.Fatalf("unexpected code %d", code)
	}
	if code := GetCode(nil); code != Success {
		t.Fatalf("unexpected code for nil %d", code)
	}
}

func TestValidationErrorDetails(t *testing.T) {
	t.Parallel()

	err := ValidationError("task_id", "required")
	if err.Code != ValidationFailed {
		t.Fatalf("unexpected code %d", err.Code)
	}
	if err.Details["field"] != "task_id" || err.Details["reason"] != "required" {
		t.Fatalf("unexpected details %+v", err.Details)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code ErrorCode
		want int
	}{
		{Success, http.StatusOK},
		{TaskNotFound, http.StatusNotFound},
		{SubmissionNotFound, http.StatusNotFound},
		{JudgeQueueFull, http.StatusTooManyRequests},
		{SandboxUnavailable, http.StatusServiceUnavailable},
		{LanguageNotSupported, http.StatusBadRequest},
		{CodeTooLarge, http.StatusBadRequest},
		{ValidationFailed, http.StatusBadRequest},
		{ExecutionFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %d: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}
