// Package memstore provides in-memory store implementations used in
// no-db mode and in tests. Both honor the same contracts as the gorm
// repositories, including the audit store's append-only discipline.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"palisade/internal/domain"
)

type ProductStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]domain.Product)}
}

func (s *ProductStore) Insert(ctx context.Context, p domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, tenantID, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || p.TenantID != tenantID {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *ProductStore) ListByTenant(ctx context.Context, tenantID string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (s *ProductStore) GetByIDUnscoped(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *ProductStore) ListUnscoped(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sortProducts(out)
	return out, nil
}

func (s *ProductStore) Update(ctx context.Context, tenantID string, p domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok || existing.TenantID != tenantID {
		return domain.ErrNotFound
	}
	p.TenantID = existing.TenantID
	s.products[p.ID] = p
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, tenantID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[id]
	if !ok || existing.TenantID != tenantID {
		return domain.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func sortProducts(products []domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
}

type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) List(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]domain.AuditEntry, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.AuditEntry, 0)
	for _, e := range s.entries {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}
	sortEntries(matched, page.Sort)

	total := int64(len(matched))
	start := page.Number * page.Size
	if start >= len(matched) {
		return []domain.AuditEntry{}, total, nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]domain.AuditEntry, end-start)
	copy(out, matched[start:end])
	return out, total, nil
}

func (s *AuditStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Entries returns a copy of everything appended so far. Test helper.
func (s *AuditStore) Entries() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func matches(e domain.AuditEntry, f domain.AuditFilter) bool {
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	if f.AggregateType != "" && e.AggregateType != f.AggregateType {
		return false
	}
	if f.AggregateID != "" && e.AggregateID != f.AggregateID {
		return false
	}
	if f.Username != "" && e.Username != f.Username {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

func sortEntries(entries []domain.AuditEntry, field string) {
	sort.SliceStable(entries, func(i, j int) bool {
		switch field {
		case "event_type":
			return entries[i].EventType < entries[j].EventType
		case "username":
			return strings.ToLower(entries[i].Username) < strings.ToLower(entries[j].Username)
		case "aggregate_type":
			return entries[i].AggregateType < entries[j].AggregateType
		default:
			// Newest first, matching the SQL repository.
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
	})
}
