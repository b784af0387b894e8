package domain

import "time"

// Product is a tenant-partitioned aggregate. TenantID is bound at creation
// time; reads are additionally filtered by the tenant guard.
type Product struct {
	ID          string
	TenantID    string
	Name        string
	SKU         string
	Description string
	PriceCents  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
