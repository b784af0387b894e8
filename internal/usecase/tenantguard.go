package usecase

import (
	"context"

	"palisade/internal/domain"
)

// ProductGuard is the tenant isolation boundary for product access. Every
// read and write goes through it; it derives the tenant predicate from the
// request context and composes it with the caller's operation before
// dispatching to the store.
//
// Rules: the system tenant bypasses filtering entirely; an unset tenant is
// deny-by-default (reads see nothing, writes are refused) rather than
// unrestricted. The predicate is re-derived on every call, so nothing
// sticks across requests that reuse a pooled connection or worker.
type ProductGuard struct {
	store ProductStore
}

func NewProductGuard(store ProductStore) *ProductGuard {
	return &ProductGuard{store: store}
}

// Create binds the context tenant onto the product before insert. Under
// the system tenant the product must already carry an explicit tenant.
func (g *ProductGuard) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if domain.IsSystemTenant(ctx) {
		if p.TenantID == "" || p.TenantID == domain.SystemTenant {
			return domain.Product{}, domain.ErrNoTenant
		}
		return p, g.store.Insert(ctx, p)
	}
	tenantID, ok := domain.TenantFrom(ctx)
	if !ok {
		return domain.Product{}, domain.ErrNoTenant
	}
	p.TenantID = tenantID
	return p, g.store.Insert(ctx, p)
}

func (g *ProductGuard) Get(ctx context.Context, id string) (domain.Product, error) {
	if domain.IsSystemTenant(ctx) {
		return g.store.GetByIDUnscoped(ctx, id)
	}
	tenantID, ok := domain.TenantFrom(ctx)
	if !ok {
		// Deny-by-default: an unset tenant matches no rows.
		return domain.Product{}, domain.ErrNotFound
	}
	return g.store.GetByID(ctx, tenantID, id)
}

func (g *ProductGuard) List(ctx context.Context) ([]domain.Product, error) {
	if domain.IsSystemTenant(ctx) {
		return g.store.ListUnscoped(ctx)
	}
	tenantID, ok := domain.TenantFrom(ctx)
	if !ok {
		return []domain.Product{}, nil
	}
	return g.store.ListByTenant(ctx, tenantID)
}

func (g *ProductGuard) Update(ctx context.Context, p domain.Product) error {
	tenantID, err := g.writeTenant(ctx, p)
	if err != nil {
		return err
	}
	p.TenantID = tenantID
	return g.store.Update(ctx, tenantID, p)
}

func (g *ProductGuard) Delete(ctx context.Context, id string) error {
	if domain.IsSystemTenant(ctx) {
		p, err := g.store.GetByIDUnscoped(ctx, id)
		if err != nil {
			return err
		}
		return g.store.Delete(ctx, p.TenantID, id)
	}
	tenantID, ok := domain.TenantFrom(ctx)
	if !ok {
		return domain.ErrNotFound
	}
	return g.store.Delete(ctx, tenantID, id)
}

func (g *ProductGuard) writeTenant(ctx context.Context, p domain.Product) (string, error) {
	if domain.IsSystemTenant(ctx) {
		if p.TenantID == "" || p.TenantID == domain.SystemTenant {
			return "", domain.ErrNoTenant
		}
		return p.TenantID, nil
	}
	tenantID, ok := domain.TenantFrom(ctx)
	if !ok {
		return "", domain.ErrNoTenant
	}
	return tenantID, nil
}
