package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PlanTypeRecurring = "recurring"
	PlanTypeOneTime   = "one_time"
)

const (
	PlanIntervalDay   = "day"
	PlanIntervalWeek  = "week"
	PlanIntervalMonth = "month"
	PlanIntervalYear  = "year"
)

// PricingPlan is a purchasable price attached to a Product. Price and
// currency are immutable on the remote side: changing either means a new
// remote price is created and the old one deactivated, so StripePriceID is
// rewritten over the row's lifetime while ID stays stable.
type PricingPlan struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	ProductID              uint      `gorm:"not null;index" json:"product_id" validate:"required"`
	Price                  int64     `gorm:"not null" json:"price" validate:"required,gt=0"`
	Currency               string    `gorm:"type:varchar(3);not null" json:"currency" validate:"required,len=3"`
	IsActive               bool      `gorm:"default:true" json:"is_active"`
	Type                   string    `gorm:"type:varchar(16);not null;default:'one_time'" json:"type" validate:"oneof=recurring one_time"`
	RecurringInterval      string    `gorm:"type:varchar(8);default:null" json:"recurring_interval,omitempty"`
	RecurringIntervalCount int64     `gorm:"default:null" json:"recurring_interval_count,omitempty"`
	Attrs                  AttrMap   `gorm:"type:json" json:"attrs"`
	StripePriceID          string    `gorm:"type:varchar(191);default:null;index" json:"stripe_price_id,omitempty"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *PricingPlan) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
