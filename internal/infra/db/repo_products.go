package db

import (
	"context"

	"palisade/internal/domain"

	"gorm.io/gorm"
)

// ProductRepository implements the raw product store over postgres. The
// tenant equality predicate is part of every scoped query; only the
// Unscoped variants omit it, and only the tenant guard calls those.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Insert(ctx context.Context, p domain.Product) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := productModelFromDomain(p)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, tenantID, id string) (domain.Product, error) {
	if r.db == nil {
		return domain.Product{}, errDBUnavailable
	}
	var model ProductModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if notFound(err) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, err
	}
	return productFromModel(model), nil
}

func (r *ProductRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Product, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ProductModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return productsFromModels(models), nil
}

func (r *ProductRepository) GetByIDUnscoped(ctx context.Context, id string) (domain.Product, error) {
	if r.db == nil {
		return domain.Product{}, errDBUnavailable
	}
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if notFound(err) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, err
	}
	return productFromModel(model), nil
}

func (r *ProductRepository) ListUnscoped(ctx context.Context) ([]domain.Product, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ProductModel
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	return productsFromModels(models), nil
}

func (r *ProductRepository) Update(ctx context.Context, tenantID string, p domain.Product) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := productModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, p.ID).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"price_cents": model.PriceCents,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&ProductModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func productModelFromDomain(p domain.Product) ProductModel {
	return ProductModel{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func productFromModel(model ProductModel) domain.Product {
	return domain.Product{
		ID:          model.ID,
		TenantID:    model.TenantID,
		Name:        model.Name,
		SKU:         model.SKU,
		Description: model.Description,
		PriceCents:  model.PriceCents,
		CreatedAt:   model.CreatedAt.UTC(),
		UpdatedAt:   model.UpdatedAt.UTC(),
	}
}

func productsFromModels(models []ProductModel) []domain.Product {
	out := make([]domain.Product, 0, len(models))
	for _, model := range models {
		out = append(out, productFromModel(model))
	}
	return out
}
