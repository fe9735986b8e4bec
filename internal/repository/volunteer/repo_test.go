package volunteer

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/enturk/intelligence/internal/domain"
)

func TestMapStoreError_UndefinedTable(t *testing.T) {
	err := mapStoreError("query nearest", &pgconn.PgError{Code: "42P01", TableName: "volunteer_vectors"})

	if !errors.Is(err, domain.ErrSchemaNotReady) {
		t.Fatalf("expected ErrSchemaNotReady, got %v", err)
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		t.Error("schema-missing must never be reported as store-unavailable")
	}
}

func TestMapStoreError_OtherPgErrorStaysInternal(t *testing.T) {
	err := mapStoreError("query nearest", &pgconn.PgError{Code: "42703"}) // undefined column

	if errors.Is(err, domain.ErrSchemaNotReady) || errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("unexpected taxonomy mapping for server-side error: %v", err)
	}
}

func TestMapStoreError_Timeout(t *testing.T) {
	err := mapStoreError("query nearest", context.DeadlineExceeded)

	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMapStoreError_Connectivity(t *testing.T) {
	err := mapStoreError("query nearest", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))

	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrSchemaNotReady) {
		t.Error("connectivity failure must never be reported as schema-missing")
	}
}
