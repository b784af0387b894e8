package db

import (
	"context"
	"errors"
	"time"

	"palisade/internal/domain"

	"gorm.io/gorm"
)

// AuditEntryRepository is append-only by construction: there is no update
// or delete path, and List never locks rows.
type AuditEntryRepository struct {
	db *gorm.DB
}

func NewAuditEntryRepository(db *gorm.DB) *AuditEntryRepository {
	return &AuditEntryRepository{db: db}
}

func (r *AuditEntryRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if entry.ID == "" {
		return errors.New("audit entry id is required")
	}
	if entry.Timestamp.IsZero() {
		return errors.New("audit entry timestamp is required")
	}
	model := auditModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AuditEntryRepository) List(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]domain.AuditEntry, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&AuditEntryModel{})
	query = applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []AuditEntryModel
	err := query.
		Order(orderClause(page.Sort)).
		Limit(page.Size).
		Offset(page.Number * page.Size).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.AuditEntry, 0, len(models))
	for _, model := range models {
		out = append(out, auditEntryFromModel(model))
	}
	return out, total, nil
}

func (r *AuditEntryRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errDBUnavailable
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func applyFilter(query *gorm.DB, filter domain.AuditFilter) *gorm.DB {
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.AggregateType != "" {
		query = query.Where("aggregate_type = ?", filter.AggregateType)
	}
	if filter.AggregateID != "" {
		query = query.Where("aggregate_id = ?", filter.AggregateID)
	}
	if filter.Username != "" {
		query = query.Where("username = ?", filter.Username)
	}
	if !filter.From.IsZero() {
		query = query.Where("timestamp >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("timestamp <= ?", filter.To.UTC())
	}
	return query
}

// orderClause maps an already-clamped sort field to SQL. The field came
// through the query layer's allowlist, never straight from the caller.
func orderClause(sort string) string {
	switch sort {
	case "event_type":
		return "event_type ASC, timestamp DESC"
	case "username":
		return "username ASC, timestamp DESC"
	case "aggregate_type":
		return "aggregate_type ASC, timestamp DESC"
	default:
		return "timestamp DESC"
	}
}

func auditModelFromDomain(entry domain.AuditEntry) AuditEntryModel {
	return AuditEntryModel{
		ID:               entry.ID,
		Timestamp:        entry.Timestamp.UTC().Truncate(time.Microsecond),
		EventType:        string(entry.EventType),
		AggregateType:    stringPtrIfNotEmpty(entry.AggregateType),
		AggregateID:      stringPtrIfNotEmpty(entry.AggregateID),
		Username:         entry.Username,
		TenantID:         entry.TenantID,
		ServiceName:      entry.ServiceName,
		Action:           entry.Action,
		Payload:          entry.Payload,
		Result:           string(entry.Result),
		ErrorMessage:     stringPtrIfNotEmpty(entry.ErrorMessage),
		ClientIP:         entry.ClientIP,
		CorrelationID:    entry.CorrelationID,
		PayloadTruncated: entry.PayloadTruncated,
	}
}

func auditEntryFromModel(model AuditEntryModel) domain.AuditEntry {
	return domain.AuditEntry{
		ID:               model.ID,
		Timestamp:        model.Timestamp.UTC(),
		EventType:        domain.AuditEventType(model.EventType),
		AggregateType:    stringValue(model.AggregateType),
		AggregateID:      stringValue(model.AggregateID),
		Username:         model.Username,
		TenantID:         model.TenantID,
		ServiceName:      model.ServiceName,
		Action:           model.Action,
		Payload:          model.Payload,
		Result:           domain.AuditResult(model.Result),
		ErrorMessage:     stringValue(model.ErrorMessage),
		ClientIP:         model.ClientIP,
		CorrelationID:    model.CorrelationID,
		PayloadTruncated: model.PayloadTruncated,
	}
}

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
