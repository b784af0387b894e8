package usecase

import (
	"context"
	"time"

	"palisade/internal/domain"
)

type Clock func() time.Time

// ProductStore is the raw storage port for tenant-partitioned products.
// Scoped methods take an explicit tenant id; the unscoped variants exist
// only for the system tenant path. Nothing outside the tenant guard should
// call this interface.
type ProductStore interface {
	Insert(ctx context.Context, p domain.Product) error
	GetByID(ctx context.Context, tenantID, id string) (domain.Product, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Product, error)
	GetByIDUnscoped(ctx context.Context, id string) (domain.Product, error)
	ListUnscoped(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, tenantID string, p domain.Product) error
	Delete(ctx context.Context, tenantID, id string) error
}

// AuditStore is the append-only storage port for audit entries. There is
// deliberately no update or delete method.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]domain.AuditEntry, int64, error)
	Ping(ctx context.Context) error
}
