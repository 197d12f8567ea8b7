package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Product is the local side of the remote billing catalog. A product is
// considered synced once StripeProductID is set; until then it has no
// remote counterpart.
type Product struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	ProductName        string     `gorm:"type:varchar(255);not null" json:"product_name" validate:"required,min=1,max=255"`
	IsDisplayed        bool       `gorm:"default:true" json:"is_displayed"`
	ProductDescription string     `gorm:"type:text" json:"product_description"`
	LinksToImage       StringList `gorm:"type:json" json:"links_to_image"`
	Attrs              AttrMap    `gorm:"type:json" json:"attrs"`
	StripeProductID    string     `gorm:"type:varchar(191);default:null;index" json:"stripe_product_id,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsSynced reports whether the product has a remote billing counterpart.
func (p *Product) IsSynced() bool {
	return p.StripeProductID != ""
}
