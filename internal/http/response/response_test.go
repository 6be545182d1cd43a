package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
)

type decoded struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Details []FieldError `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

func TestValidationErrorListsFields(t *testing.T) {
	type body struct {
		Action string `validate:"required,oneof=block_users dismiss"`
	}
	err := validator.New().Struct(body{Action: "ban"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()
	ValidationError(rr, req, err)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var got decoded
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Success || got.Error == nil || got.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if len(got.Error.Details) != 1 || got.Error.Details[0].Field != "action" || got.Error.Details[0].Rule != "oneof" {
		t.Fatalf("unexpected details: %+v", got.Error.Details)
	}
	if got.Meta.RequestID != "rid-1" {
		t.Fatalf("expected request id from header, got %q", got.Meta.RequestID)
	}
}

func TestValidationErrorPlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	ValidationError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("limit must be a number"))
	var got decoded
	_ = json.NewDecoder(rr.Body).Decode(&got)
	if rr.Code != http.StatusBadRequest || got.Error.Message != "limit must be a number" || got.Meta.RequestID != "req-unknown" {
		t.Fatalf("unexpected response %d %+v", rr.Code, got)
	}
}
