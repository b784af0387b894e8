package db

import "time"

type ProductModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	TenantID    string    `gorm:"type:text;index;not null"`
	Name        string    `gorm:"not null"`
	SKU         string    `gorm:"column:sku;index;not null"`
	Description string    `gorm:""`
	PriceCents  int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (ProductModel) TableName() string {
	return "products"
}

type AuditEntryModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Timestamp     time.Time `gorm:"column:timestamp;index;not null"`
	EventType     string    `gorm:"column:event_type;index;not null"`
	AggregateType *string   `gorm:"index:idx_audit_aggregate"`
	AggregateID   *string   `gorm:"index:idx_audit_aggregate"`
	Username      string    `gorm:"index;not null"`
	TenantID      string    `gorm:"type:text;index;not null"`
	ServiceName   string    `gorm:"not null"`
	Action        string    `gorm:"not null"`
	// Payload is text, not jsonb: a truncated snapshot need not stay
	// valid JSON.
	Payload          string `gorm:"type:text"`
	Result           string `gorm:"not null"`
	ErrorMessage     *string
	ClientIP         string
	CorrelationID    string `gorm:"index"`
	PayloadTruncated bool   `gorm:"not null"`
}

func (AuditEntryModel) TableName() string {
	return "audit_entries"
}
