package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"palisade/internal/domain"
	"palisade/internal/infra/memstore"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestAuditRecorderStampsServerSideFields(t *testing.T) {
	store := memstore.NewAuditStore()
	now := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	rec := NewAuditRecorder(store, fixedClock(now), "palisade", 0)

	ctx := domain.WithTenant(context.Background(), "acme")
	ctx = domain.WithPrincipal(ctx, domain.Principal{Username: "ada", Authenticated: true})
	ctx = domain.WithCorrelationID(ctx, "corr-42")

	entry, err := rec.Record(ctx, domain.AuditEntry{
		// Caller-supplied identity and timestamp must be ignored or
		// defaulted, never trusted.
		ID:        "caller-chosen",
		Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		EventType: domain.AuditEventProductCreated,
		Action:    "create",
		Result:    domain.AuditResultSuccess,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID == "caller-chosen" || entry.ID == "" {
		t.Fatalf("expected generated id, got %q", entry.ID)
	}
	if !entry.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v, want clock value %v", entry.Timestamp, now)
	}
	if entry.Username != "ada" {
		t.Fatalf("username = %q, want ada from context", entry.Username)
	}
	if entry.TenantID != "acme" {
		t.Fatalf("tenant = %q, want acme from context", entry.TenantID)
	}
	if entry.ServiceName != "palisade" {
		t.Fatalf("service = %q, want recorder default", entry.ServiceName)
	}
	if entry.CorrelationID != "corr-42" {
		t.Fatalf("correlation = %q, want corr-42", entry.CorrelationID)
	}

	stored := store.Entries()
	if len(stored) != 1 || stored[0].ID != entry.ID {
		t.Fatalf("entry not appended: %+v", stored)
	}
}

func TestAuditRecorderPayloadTruncation(t *testing.T) {
	const limit = 64
	cases := []struct {
		name          string
		payload       string
		wantLen       int
		wantTruncated bool
	}{
		{"under limit", strings.Repeat("a", limit-1), limit - 1, false},
		{"exactly at limit", strings.Repeat("a", limit), limit, false},
		{"over limit", strings.Repeat("a", limit+1), limit, true},
		{"far over limit", strings.Repeat("a", limit*10), limit, true},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memstore.NewAuditStore()
			rec := NewAuditRecorder(store, nil, "palisade", limit)
			entry, err := rec.Record(context.Background(), domain.AuditEntry{
				EventType: domain.AuditEventProductCreated,
				Action:    "create",
				Payload:   tc.payload,
				Result:    domain.AuditResultSuccess,
			})
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			if len(entry.Payload) != tc.wantLen {
				t.Fatalf("payload len = %d, want %d", len(entry.Payload), tc.wantLen)
			}
			if entry.PayloadTruncated != tc.wantTruncated {
				t.Fatalf("truncated = %v, want %v", entry.PayloadTruncated, tc.wantTruncated)
			}
		})
	}
}

func TestAuditRecorderRejectsMalformedEntries(t *testing.T) {
	cases := []struct {
		name  string
		entry domain.AuditEntry
	}{
		{"missing event type", domain.AuditEntry{Action: "create", Result: domain.AuditResultSuccess}},
		{"missing action", domain.AuditEntry{EventType: domain.AuditEventProductCreated, Result: domain.AuditResultSuccess}},
		{"bogus result", domain.AuditEntry{EventType: domain.AuditEventProductCreated, Action: "create", Result: "MAYBE"}},
		{"error message on success", domain.AuditEntry{EventType: domain.AuditEventProductCreated, Action: "create", Result: domain.AuditResultSuccess, ErrorMessage: "boom"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memstore.NewAuditStore()
			rec := NewAuditRecorder(store, nil, "palisade", 0)
			if _, err := rec.Record(context.Background(), tc.entry); err == nil {
				t.Fatal("expected validation error")
			}
			if got := store.Entries(); len(got) != 0 {
				t.Fatalf("nothing may be appended on validation failure, got %d entries", len(got))
			}
		})
	}
}

func TestAuditRecorderFailurePath(t *testing.T) {
	store := memstore.NewAuditStore()
	rec := NewAuditRecorder(store, nil, "palisade", 0)

	entry, err := rec.RecordFailure(context.Background(), domain.AuditEventAccessDenied, "product", "p-1", "delete", nil, errors.New("missing role"))
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if entry.Result != domain.AuditResultFailure {
		t.Fatalf("result = %s", entry.Result)
	}
	if entry.ErrorMessage != "missing role" {
		t.Fatalf("error message = %q", entry.ErrorMessage)
	}

	entry, err = rec.RecordFailure(context.Background(), domain.AuditEventAccessDenied, "product", "p-1", "delete", nil, nil)
	if err != nil {
		t.Fatalf("record failure with nil cause: %v", err)
	}
	if entry.ErrorMessage != "unknown error" {
		t.Fatalf("nil cause message = %q", entry.ErrorMessage)
	}
}

func TestAuditRecorderPropagatesStoreErrors(t *testing.T) {
	rec := NewAuditRecorder(failingAuditStore{}, nil, "palisade", 0)
	_, err := rec.RecordSuccess(context.Background(), domain.AuditEventProductCreated, "product", "p-1", "create", nil)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, domain.AuditEntry) error {
	return domain.ErrStoreUnavailable
}

func (failingAuditStore) List(context.Context, domain.AuditFilter, domain.Page) ([]domain.AuditEntry, int64, error) {
	return nil, 0, domain.ErrStoreUnavailable
}

func (failingAuditStore) Ping(context.Context) error {
	return domain.ErrStoreUnavailable
}
