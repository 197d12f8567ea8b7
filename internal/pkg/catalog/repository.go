package catalog

import (
	"time"

	"github.com/mercatosoft/catalogsync/app/models"
	"gorm.io/gorm"
)

// PlanWithProduct is an active pricing plan joined with the product fields
// the storefront needs alongside it.
type PlanWithProduct struct {
	models.PricingPlan
	ProductName  string            `json:"product_name"`
	LinksToImage models.StringList `json:"links_to_image" gorm:"type:json"`
}

// Repository provides DB operations used by the catalog service.
type Repository interface {
	GetProduct(id uint) (*models.Product, error)
	GetProductStripeID(productID uint) (string, error)
	SetProductStripeID(productID uint, stripeProductID string) error
	SetPlanStripeID(planID uint, stripePriceID string) error

	CreateProduct(p *models.Product) error
	SaveProduct(p *models.Product) error
	DeleteProductCascade(productID uint) error
	ListPlanStripeIDs(productID uint) ([]string, error)
	ListActivePlans() ([]PlanWithProduct, error)

	CreateSyncEvent(ev *models.CatalogSyncEvent) error
	MarkSyncEventProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a catalog repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetProduct(id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetProductStripeID(productID uint) (string, error) {
	var p models.Product
	err := r.db.Select("stripe_product_id").First(&p, productID).Error
	if err != nil {
		return "", err
	}
	return p.StripeProductID, nil
}

func (r *gormRepository) SetProductStripeID(productID uint, stripeProductID string) error {
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stripe_product_id", stripeProductID).Error
}

func (r *gormRepository) SetPlanStripeID(planID uint, stripePriceID string) error {
	return r.db.Model(&models.PricingPlan{}).
		Where("id = ?", planID).
		Update("stripe_price_id", stripePriceID).Error
}

func (r *gormRepository) CreateProduct(p *models.Product) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) SaveProduct(p *models.Product) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) DeleteProductCascade(productID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.PricingPlan{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, productID).Error
	})
}

func (r *gormRepository) ListPlanStripeIDs(productID uint) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.PricingPlan{}).
		Where("product_id = ? AND stripe_price_id IS NOT NULL AND stripe_price_id <> ''", productID).
		Pluck("stripe_price_id", &ids).Error
	return ids, err
}

func (r *gormRepository) ListActivePlans() ([]PlanWithProduct, error) {
	var plans []PlanWithProduct
	err := r.db.Model(&models.PricingPlan{}).
		Select("pricing_plans.*, products.product_name AS product_name, products.links_to_image AS links_to_image").
		Joins("JOIN products ON products.id = pricing_plans.product_id").
		Where("pricing_plans.is_active = ?", true).
		Find(&plans).Error
	return plans, err
}

func (r *gormRepository) CreateSyncEvent(ev *models.CatalogSyncEvent) error {
	return r.db.Create(ev).Error
}

func (r *gormRepository) MarkSyncEventProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.CatalogSyncEvent{}).Where("id = ?", id).Updates(updates).Error
}
