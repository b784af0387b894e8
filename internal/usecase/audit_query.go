package usecase

import (
	"context"
	"math"

	"palisade/internal/domain"
)

const (
	DefaultAuditPageSize = 20
	MaxAuditPageSize     = 100
	DefaultAuditSort     = "timestamp"
)

// Sort fields the query accepts; anything else falls back to the default.
var allowedAuditSorts = map[string]struct{}{
	"timestamp":      {},
	"event_type":     {},
	"username":       {},
	"aggregate_type": {},
}

// AuditQuery is the read side of the audit trail. Results are tenant
// scoped like every other read: callers see their own tenant's entries,
// the system tenant sees everything, and an unset tenant sees nothing.
type AuditQuery struct {
	Store AuditStore
}

func NewAuditQuery(store AuditStore) *AuditQuery {
	return &AuditQuery{Store: store}
}

func (q *AuditQuery) List(ctx context.Context, filter domain.AuditFilter, page domain.Page) (domain.AuditPage, error) {
	if q == nil || q.Store == nil {
		return domain.AuditPage{}, domain.ErrStoreUnavailable
	}
	page = ClampPage(page)
	if !domain.IsSystemTenant(ctx) {
		tenantID, ok := domain.TenantFrom(ctx)
		if !ok {
			return domain.AuditPage{
				Entries: []domain.AuditEntry{},
				Number:  page.Number,
				Size:    page.Size,
			}, nil
		}
		filter.TenantID = tenantID
	}
	entries, total, err := q.Store.List(ctx, filter, page)
	if err != nil {
		return domain.AuditPage{}, err
	}
	return domain.AuditPage{
		Entries: entries,
		Total:   total,
		Number:  page.Number,
		Size:    page.Size,
	}, nil
}

// ClampPage normalizes pagination input: page number is forced into
// [0, maxAuditOffset/size] so the row offset can never overflow, size is
// forced into [1,100] with a default when absent, and unknown sort fields
// fall back to the timestamp ordering.
func ClampPage(page domain.Page) domain.Page {
	if page.Number < 0 {
		page.Number = 0
	}
	if page.Size <= 0 {
		page.Size = DefaultAuditPageSize
	}
	if page.Size > MaxAuditPageSize {
		page.Size = MaxAuditPageSize
	}
	if page.Number > maxAuditOffset/page.Size {
		page.Number = maxAuditOffset / page.Size
	}
	if _, ok := allowedAuditSorts[page.Sort]; !ok {
		page.Sort = DefaultAuditSort
	}
	return page
}

// maxAuditOffset bounds Number*Size. Any page beyond it is past the end of
// every real trail, so clamping there only changes the echoed page number.
const maxAuditOffset = math.MaxInt32
