package usecase

import (
	"encoding/json"
	"errors"
	"time"

	"context"

	"palisade/internal/domain"

	"github.com/google/uuid"
)

const DefaultAuditMaxPayloadBytes = 4096

// AuditRecorder appends one immutable entry per significant action,
// success or failure alike. Persistence failures are returned to the
// caller: a missing audit trail is a reportable fault, never a silent one.
type AuditRecorder struct {
	Store           AuditStore
	Clock           Clock
	ServiceName     string
	MaxPayloadBytes int
}

func NewAuditRecorder(store AuditStore, clock Clock, serviceName string, maxPayloadBytes int) *AuditRecorder {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultAuditMaxPayloadBytes
	}
	return &AuditRecorder{
		Store:           store,
		Clock:           clock,
		ServiceName:     serviceName,
		MaxPayloadBytes: maxPayloadBytes,
	}
}

// Record validates, stamps, truncates, and appends the entry. The
// timestamp is always taken from the recorder's clock; a caller-supplied
// value is discarded. Actor and tenant fields default from the request
// context when unset.
func (r *AuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if r == nil || r.Store == nil {
		return domain.AuditEntry{}, errors.New("audit store required")
	}
	if entry.EventType == "" || entry.Action == "" {
		return domain.AuditEntry{}, errors.New("audit entry missing required fields")
	}
	if entry.Result != domain.AuditResultSuccess && entry.Result != domain.AuditResultFailure {
		return domain.AuditEntry{}, errors.New("audit entry result must be SUCCESS or FAILURE")
	}
	if entry.Result == domain.AuditResultSuccess && entry.ErrorMessage != "" {
		return domain.AuditEntry{}, errors.New("error message only valid on FAILURE")
	}

	entry.ID = uuid.NewString()
	entry.Timestamp = r.now().UTC()
	if entry.Username == "" {
		entry.Username = domain.PrincipalFrom(ctx).Username
	}
	if entry.TenantID == "" {
		entry.TenantID, _ = domain.TenantFrom(ctx)
	}
	if entry.ServiceName == "" {
		entry.ServiceName = r.ServiceName
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = domain.CorrelationIDFrom(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = domain.ClientIPFrom(ctx)
	}

	entry.PayloadTruncated = false
	if len(entry.Payload) > r.MaxPayloadBytes {
		entry.Payload = entry.Payload[:r.MaxPayloadBytes]
		entry.PayloadTruncated = true
	}

	if err := r.Store.Append(ctx, entry); err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

// RecordSuccess serializes the payload and appends a SUCCESS entry.
func (r *AuditRecorder) RecordSuccess(ctx context.Context, eventType domain.AuditEventType, aggregateType, aggregateID, action string, payload any) (domain.AuditEntry, error) {
	return r.Record(ctx, domain.AuditEntry{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Action:        action,
		Payload:       serializePayload(payload),
		Result:        domain.AuditResultSuccess,
	})
}

// RecordFailure serializes the payload and appends a FAILURE entry with
// the cause's message.
func (r *AuditRecorder) RecordFailure(ctx context.Context, eventType domain.AuditEventType, aggregateType, aggregateID, action string, payload any, cause error) (domain.AuditEntry, error) {
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	return r.Record(ctx, domain.AuditEntry{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Action:        action,
		Payload:       serializePayload(payload),
		Result:        domain.AuditResultFailure,
		ErrorMessage:  message,
	})
}

func (r *AuditRecorder) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func serializePayload(payload any) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload.(string); ok {
		return s
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(out)
}
