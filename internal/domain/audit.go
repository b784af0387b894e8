package domain

import "time"

type AuditEventType string

const (
	AuditEventProductCreated AuditEventType = "product_created"
	AuditEventProductUpdated AuditEventType = "product_updated"
	AuditEventProductDeleted AuditEventType = "product_deleted"
	AuditEventAccessDenied   AuditEventType = "access_denied"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "SUCCESS"
	AuditResultFailure AuditResult = "FAILURE"
)

// AuditEntry records one auditable action and its outcome. Entries are
// immutable once appended; the store exposes no update or delete path.
type AuditEntry struct {
	ID            string
	Timestamp     time.Time
	EventType     AuditEventType
	AggregateType string
	AggregateID   string
	Username      string
	TenantID      string
	ServiceName   string
	Action        string
	Payload       string
	Result        AuditResult
	ErrorMessage  string
	ClientIP      string
	CorrelationID string

	// PayloadTruncated is true iff the stored payload is strictly shorter
	// than the original serialized form.
	PayloadTruncated bool
}

// AuditFilter narrows an audit query. Zero values mean "no constraint".
type AuditFilter struct {
	TenantID      string
	AggregateType string
	AggregateID   string
	Username      string
	From          time.Time
	To            time.Time
}

// Page is a pagination request as received from the caller, before
// clamping.
type Page struct {
	Number int
	Size   int
	Sort   string
}

// AuditPage is one page of audit entries plus the total match count.
type AuditPage struct {
	Entries []AuditEntry
	Total   int64
	Number  int
	Size    int
}
