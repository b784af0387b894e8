package usecase

import (
	"context"
	"fmt"
	"time"

	"palisade/internal/domain"
	"palisade/internal/infra/auth/rbac"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const productAggregate = "product"

// ProductService is the business flow over the tenant guard: authorize,
// act through the guard, then append one audit entry for the outcome.
// Reads are open to any authenticated role; writes need MANAGER (admins
// always qualify).
type ProductService struct {
	Guard *ProductGuard
	Authz *rbac.Authorizer
	Audit *AuditRecorder
	Clock Clock
	Log   *zap.Logger
}

func NewProductService(guard *ProductGuard, authz *rbac.Authorizer, audit *AuditRecorder, clock Clock, log *zap.Logger) *ProductService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductService{Guard: guard, Authz: authz, Audit: audit, Clock: clock, Log: log}
}

type CreateProductCommand struct {
	Name        string
	SKU         string
	Description string
	PriceCents  int64

	// TenantID names the owning tenant when the caller is the system
	// tenant; tenant-scoped callers have it overridden by their own
	// tenant, so they cannot plant rows elsewhere.
	TenantID string
}

func (c CreateProductCommand) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidCommand)
	}
	if c.SKU == "" {
		return fmt.Errorf("%w: sku is required", domain.ErrInvalidCommand)
	}
	return nil
}

type UpdateProductCommand struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
}

func (c UpdateProductCommand) validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidCommand)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidCommand)
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, cmd CreateProductCommand) (domain.Product, error) {
	p := domain.PrincipalFrom(ctx)
	if err := s.Authz.Require(ctx, p, "product:create", rbac.RoleManager); err != nil {
		s.auditFailure(ctx, domain.AuditEventAccessDenied, "", "create", nil, err)
		return domain.Product{}, err
	}
	if err := cmd.validate(); err != nil {
		s.auditFailure(ctx, domain.AuditEventProductCreated, "", "create", cmd, err)
		return domain.Product{}, err
	}
	now := s.Clock().UTC()
	product := domain.Product{
		ID:          uuid.NewString(),
		TenantID:    cmd.TenantID,
		Name:        cmd.Name,
		SKU:         cmd.SKU,
		Description: cmd.Description,
		PriceCents:  cmd.PriceCents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	product, err := s.Guard.Create(ctx, product)
	if err != nil {
		s.auditFailure(ctx, domain.AuditEventProductCreated, product.ID, "create", cmd, err)
		return domain.Product{}, err
	}
	s.auditSuccess(ctx, domain.AuditEventProductCreated, product.ID, "create", product)
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	p := domain.PrincipalFrom(ctx)
	if err := s.Authz.Require(ctx, p, "product:read", rbac.RoleUser, rbac.RoleManager); err != nil {
		return domain.Product{}, err
	}
	return s.Guard.Get(ctx, id)
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	p := domain.PrincipalFrom(ctx)
	if err := s.Authz.Require(ctx, p, "product:read", rbac.RoleUser, rbac.RoleManager); err != nil {
		return nil, err
	}
	return s.Guard.List(ctx)
}

func (s *ProductService) Update(ctx context.Context, cmd UpdateProductCommand) (domain.Product, error) {
	p := domain.PrincipalFrom(ctx)
	if err := s.Authz.Require(ctx, p, "product:update", rbac.RoleManager); err != nil {
		s.auditFailure(ctx, domain.AuditEventAccessDenied, cmd.ID, "update", nil, err)
		return domain.Product{}, err
	}
	if err := cmd.validate(); err != nil {
		s.auditFailure(ctx, domain.AuditEventProductUpdated, cmd.ID, "update", cmd, err)
		return domain.Product{}, err
	}
	existing, err := s.Guard.Get(ctx, cmd.ID)
	if err != nil {
		s.auditFailure(ctx, domain.AuditEventProductUpdated, cmd.ID, "update", cmd, err)
		return domain.Product{}, err
	}
	existing.Name = cmd.Name
	existing.Description = cmd.Description
	existing.PriceCents = cmd.PriceCents
	existing.UpdatedAt = s.Clock().UTC()
	if err := s.Guard.Update(ctx, existing); err != nil {
		s.auditFailure(ctx, domain.AuditEventProductUpdated, cmd.ID, "update", cmd, err)
		return domain.Product{}, err
	}
	s.auditSuccess(ctx, domain.AuditEventProductUpdated, existing.ID, "update", existing)
	return existing, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	p := domain.PrincipalFrom(ctx)
	if err := s.Authz.Require(ctx, p, "product:delete", rbac.RoleManager); err != nil {
		s.auditFailure(ctx, domain.AuditEventAccessDenied, id, "delete", nil, err)
		return err
	}
	if err := s.Guard.Delete(ctx, id); err != nil {
		s.auditFailure(ctx, domain.AuditEventProductDeleted, id, "delete", nil, err)
		return err
	}
	s.auditSuccess(ctx, domain.AuditEventProductDeleted, id, "delete", map[string]any{"id": id})
	return nil
}

func (s *ProductService) auditSuccess(ctx context.Context, eventType domain.AuditEventType, aggregateID, action string, payload any) {
	if s.Audit == nil {
		return
	}
	if _, err := s.Audit.RecordSuccess(ctx, eventType, productAggregate, aggregateID, action, payload); err != nil {
		s.Log.Error("audit append failed",
			zap.String("event_type", string(eventType)),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err))
	}
}

func (s *ProductService) auditFailure(ctx context.Context, eventType domain.AuditEventType, aggregateID, action string, payload any, cause error) {
	if s.Audit == nil {
		return
	}
	if _, err := s.Audit.RecordFailure(ctx, eventType, productAggregate, aggregateID, action, payload, cause); err != nil {
		s.Log.Error("audit append failed",
			zap.String("event_type", string(eventType)),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err))
	}
}
