package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "not authorized"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodePayment, status: http.StatusPaymentRequired, publicMsg: "payment failed", detailsOK: true},
		{code: CodeGateway, status: http.StatusBadGateway, publicMsg: "payment service configuration error"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
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
	base := New(CodeValidation, "no order items")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "no order items" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "items"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("duplicate key")
	wrapped := Wrap(CodeConflict, cause, "order exists")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestIsCodeWalksChain(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(CodeNotFound, "order not found"))
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("expected wrapped not found to be detected")
	}
	if IsCode(err, CodeConflict) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(nil, CodeNotFound) {
		t.Fatalf("nil error should not match")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeInternal, stdErrors.New("inner"), "persist order"))
	dump := Dump(err)
	if dump.PG != nil {
		t.Fatalf("expected no postgres detail")
	}
	if dump.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected three chain entries, got %d", len(dump.Chain))
	}
	if Dump(nil).Message != "" {
		t.Fatalf("expected empty dump for nil")
	}
}

func TestDumpReadsPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_payment_id", TableName: "orders"}
	dump := Dump(Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "order exists"))
	if dump.PG == nil || dump.PG.Constraint != "idx_orders_payment_id" {
		t.Fatalf("expected postgres detail, got %+v", dump.PG)
	}
	fields := dump.Fields()
	if fields["pg_code"] != "23505" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestShowMessageHidesInternalText(t *testing.T) {
	if MetadataFor(CodeInternal).ShowMessage || MetadataFor(CodeGateway).ShowMessage {
		t.Fatalf("server-side codes must not expose their message")
	}
	if !MetadataFor(CodeNotFound).ShowMessage {
		t.Fatalf("not found should expose its message")
	}
}
