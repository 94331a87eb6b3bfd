package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataTable(t *testing.T) {
	tests := map[Code]Metadata{
		CodeValidation:   {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodePrecondition: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "precondition failed", DetailsAllowed: true},
		CodeUnauthorized: {HTTPStatus: http.StatusUnauthorized, PublicMessage: "sign in required"},
		CodeNotFound:     {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeIdempotency:  {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeRateLimit:    {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
		CodeDependency:   {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
	}
	for code, want := range tests {
		if got := MetadataFor(code); got != want {
			t.Fatalf("%s: expected %+v, got %+v", code, want, got)
		}
	}
	if MetadataFor("NOT_A_CODE") != MetadataFor(CodeInternal) {
		t.Fatal("unknown codes should fall back to internal metadata")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "clear cart")

	if got := err.Error(); got != "DEPENDENCY_ERROR: clear cart: connection reset" {
		t.Fatalf("unexpected message %q", got)
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if got := New(CodeValidation, "quantity out of range").Error(); got != "VALIDATION_ERROR: quantity out of range" {
		t.Fatalf("unexpected message %q", got)
	}
	if Wrap(CodeDependency, nil, "noop").Unwrap() != nil {
		t.Fatal("expected nil cause")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodePrecondition, "cart over limit")
	if err.Details() != nil {
		t.Fatalf("expected no details, got %v", err.Details())
	}

	err.WithDetails(map[string]any{"max": 5})
	details, ok := err.Details().(map[string]any)
	if !ok || details["max"] != 5 {
		t.Fatalf("unexpected details %v", err.Details())
	}

	var nilErr *Error
	if nilErr.WithDetails("x") != nil {
		t.Fatal("WithDetails on nil must stay nil")
	}
	if nilErr.Code() != CodeInternal {
		t.Fatalf("expected internal code on nil, got %s", nilErr.Code())
	}
}

func TestEnsure(t *testing.T) {
	typed := New(CodeNotFound, "line not found")

	if got := CodeOf(Ensure(CodeDependency, fmt.Errorf("outer: %w", typed), "load")); got != CodeNotFound {
		t.Fatalf("expected existing code to win, got %s", got)
	}
	if got := CodeOf(Ensure(CodeDependency, stdErrors.New("boom"), "load")); got != CodeDependency {
		t.Fatalf("expected fallback code, got %s", got)
	}
	if err := Ensure(CodeDependency, nil, "load"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAsAndCodeOf(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeForbidden, "no entry"))

	typed := As(err)
	if typed == nil || typed.Message() != "no entry" {
		t.Fatalf("unexpected typed error %v", typed)
	}
	if !IsCode(err, CodeForbidden) || IsCode(err, CodeConflict) {
		t.Fatal("IsCode mismatch")
	}
	if As(nil) != nil {
		t.Fatal("As(nil) must be nil")
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("expected internal for plain errors, got %s", got)
	}
}
