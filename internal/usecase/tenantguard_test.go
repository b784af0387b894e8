package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"palisade/internal/domain"
	"palisade/internal/infra/memstore"

	"github.com/google/uuid"
)

func seedGuard(t *testing.T) (*ProductGuard, *memstore.ProductStore, map[string]domain.Product) {
	t.Helper()
	store := memstore.NewProductStore()
	guard := NewProductGuard(store)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seeded := map[string]domain.Product{}
	for i, tenant := range []string{"acme", "acme", "globex"} {
		p := domain.Product{
			ID:        uuid.NewString(),
			TenantID:  tenant,
			Name:      "item",
			SKU:       "SKU",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), p); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
		seeded[tenant+"/"+p.ID] = p
	}
	return guard, store, seeded
}

func tenantCtx(tenant string) context.Context {
	return domain.WithTenant(context.Background(), tenant)
}

func TestProductGuardListScopesByTenant(t *testing.T) {
	guard, _, _ := seedGuard(t)

	acme, err := guard.List(tenantCtx("acme"))
	if err != nil {
		t.Fatalf("list acme: %v", err)
	}
	if len(acme) != 2 {
		t.Fatalf("expected 2 acme products, got %d", len(acme))
	}
	for _, p := range acme {
		if p.TenantID != "acme" {
			t.Fatalf("foreign tenant row leaked: %+v", p)
		}
	}

	globex, err := guard.List(tenantCtx("globex"))
	if err != nil {
		t.Fatalf("list globex: %v", err)
	}
	if len(globex) != 1 {
		t.Fatalf("expected 1 globex product, got %d", len(globex))
	}
}

func TestProductGuardUnsetTenantDeniesByDefault(t *testing.T) {
	guard, _, seeded := seedGuard(t)
	ctx := context.Background()

	list, err := guard.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("unset tenant must see zero rows, got %d", len(list))
	}

	for key := range seeded {
		p := seeded[key]
		if _, err := guard.Get(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("unset tenant get: expected ErrNotFound, got %v", err)
		}
		break
	}

	if _, err := guard.Create(ctx, domain.Product{ID: uuid.NewString(), Name: "x", SKU: "X"}); !errors.Is(err, domain.ErrNoTenant) {
		t.Fatalf("unset tenant create: expected ErrNoTenant, got %v", err)
	}
	if err := guard.Update(ctx, domain.Product{ID: uuid.NewString(), Name: "x"}); !errors.Is(err, domain.ErrNoTenant) {
		t.Fatalf("unset tenant update: expected ErrNoTenant, got %v", err)
	}
	if err := guard.Delete(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unset tenant delete: expected ErrNotFound, got %v", err)
	}
}

func TestProductGuardCrossTenantIsInvisible(t *testing.T) {
	guard, _, seeded := seedGuard(t)

	var globexID string
	for _, p := range seeded {
		if p.TenantID == "globex" {
			globexID = p.ID
		}
	}

	if _, err := guard.Get(tenantCtx("acme"), globexID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant get must be indistinguishable from absent, got %v", err)
	}
	if err := guard.Update(tenantCtx("acme"), domain.Product{ID: globexID, Name: "stolen"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant update: expected ErrNotFound, got %v", err)
	}
	if err := guard.Delete(tenantCtx("acme"), globexID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant delete: expected ErrNotFound, got %v", err)
	}

	// The row is untouched for its owner.
	if _, err := guard.Get(tenantCtx("globex"), globexID); err != nil {
		t.Fatalf("owner get after failed cross-tenant writes: %v", err)
	}
}

func TestProductGuardCreateBindsContextTenant(t *testing.T) {
	store := memstore.NewProductStore()
	guard := NewProductGuard(store)

	// A spoofed tenant on the payload is overwritten by the context tenant.
	created, err := guard.Create(tenantCtx("acme"), domain.Product{
		ID:       uuid.NewString(),
		TenantID: "globex",
		Name:     "widget",
		SKU:      "W-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TenantID != "acme" {
		t.Fatalf("expected context tenant to win, got %q", created.TenantID)
	}

	got, err := store.GetByID(context.Background(), "acme", created.ID)
	if err != nil {
		t.Fatalf("stored row not visible to acme: %v", err)
	}
	if got.TenantID != "acme" {
		t.Fatalf("stored tenant = %q, want acme", got.TenantID)
	}
}

func TestProductGuardSystemTenantSeesEverything(t *testing.T) {
	guard, _, seeded := seedGuard(t)
	ctx := tenantCtx(domain.SystemTenant)

	all, err := guard.List(ctx)
	if err != nil {
		t.Fatalf("system list: %v", err)
	}
	if len(all) != len(seeded) {
		t.Fatalf("system tenant should see all %d rows, got %d", len(seeded), len(all))
	}

	for _, p := range seeded {
		got, err := guard.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("system get %s: %v", p.ID, err)
		}
		if got.TenantID != p.TenantID {
			t.Fatalf("system get returned wrong row: %+v", got)
		}
	}
}

func TestProductGuardSystemWritesNeedExplicitTenant(t *testing.T) {
	store := memstore.NewProductStore()
	guard := NewProductGuard(store)
	ctx := tenantCtx(domain.SystemTenant)

	if _, err := guard.Create(ctx, domain.Product{ID: uuid.NewString(), Name: "x", SKU: "X"}); !errors.Is(err, domain.ErrNoTenant) {
		t.Fatalf("system create without tenant: expected ErrNoTenant, got %v", err)
	}
	if _, err := guard.Create(ctx, domain.Product{ID: uuid.NewString(), TenantID: domain.SystemTenant, Name: "x", SKU: "X"}); !errors.Is(err, domain.ErrNoTenant) {
		t.Fatalf("system-owned rows are not a thing: expected ErrNoTenant, got %v", err)
	}

	created, err := guard.Create(ctx, domain.Product{ID: uuid.NewString(), TenantID: "acme", Name: "x", SKU: "X"})
	if err != nil {
		t.Fatalf("system create for acme: %v", err)
	}
	if created.TenantID != "acme" {
		t.Fatalf("created tenant = %q, want acme", created.TenantID)
	}

	// System delete resolves the owning tenant from the row itself.
	if err := guard.Delete(ctx, created.ID); err != nil {
		t.Fatalf("system delete: %v", err)
	}
	if _, err := store.GetByIDUnscoped(context.Background(), created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}
}
