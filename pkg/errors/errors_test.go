package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
		{code: CodeCouponNotFound, status: http.StatusNotFound},
		{code: CodeCouponIneligible, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeQuantityLimitExceeded, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeEmptyCartCheckout, status: http.StatusUnprocessableEntity},
		{code: CodeCartLocked, status: http.StatusConflict, detailsOK: true},
		{code: CodePaymentCancelled, status: http.StatusPaymentRequired},
		{code: CodePaymentFailed, status: http.StatusPaymentRequired, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndHasCodeFollowWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeCouponNotFound, "coupon not found"))
	if got := As(err); got == nil || got.Code() != CodeCouponNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if !HasCode(err, CodeCouponNotFound) {
		t.Fatalf("expected HasCode to match")
	}
	if HasCode(err, CodeCouponIneligible) {
		t.Fatalf("expected HasCode to reject other codes")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestNewfAndStatusOf(t *testing.T) {
	err := Newf(CodeQuantityLimitExceeded, "max %d per item", 5)
	if err.Message() != "max 5 per item" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if got := StatusOf(fmt.Errorf("add item: %w", err)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
	if got := StatusOf(stdErrors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("untyped errors should map to 500, got %d", got)
	}
	if HasCode(nil, "") {
		t.Fatalf("nil error must not match any code")
	}
}
