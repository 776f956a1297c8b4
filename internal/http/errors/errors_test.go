package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrTokenInvalid.WithDetail("token is malformed"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "TOKEN_INVALID" || body["detail"] != "token is malformed" {
		t.Fatalf("unexpected body: %v", body)
	}
	if ErrTokenInvalid.Detail != "" {
		t.Fatal("WithDetail mutated the predefined error")
	}
}

func TestWriteError_GenericIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, stderrors.New("db exploded"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["code"] != "INTERNAL_SERVER_ERROR" {
		t.Fatalf("code = %q", body["code"])
	}
	if _, ok := body["detail"]; ok {
		t.Fatal("cause must not leak into the response")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := ErrIssuanceFailed.WithCause(cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
}
