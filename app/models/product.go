package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Field length limits enforced during CSV normalization and validation.
const (
	ProductSKUMaxLength  = 255
	ProductNameMaxLength = 1024
)

// Product represents a catalog item. Uniqueness is enforced on SKUCI, the
// case-folded form of the user-facing SKU.
type Product struct {
	ID          uint64           `gorm:"primaryKey" json:"id"`
	SKU         string           `gorm:"type:varchar(255);not null" json:"sku" validate:"required,min=1,max=255"`
	SKUCI       string           `gorm:"column:sku_ci;type:varchar(255);uniqueIndex;not null" json:"sku_ci"`
	Name        string           `gorm:"type:varchar(1024);not null" json:"name" validate:"required,min=1,max=1024"`
	Description string           `gorm:"type:text" json:"description"`
	Price       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Active      bool             `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// SetSKU assigns the display SKU and recomputes the canonical sku_ci.
func (p *Product) SetSKU(sku string) {
	p.SKU = sku
	p.SKUCI = CanonicalSKU(sku)
}

func (p *Product) Validate() error {
	v := validator.New()
	if err := v.Struct(p); err != nil {
		return err
	}
	if p.Price != nil && p.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// BeforeSave keeps sku_ci consistent with the display SKU on direct writes.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.SKU != "" {
		p.SKUCI = CanonicalSKU(p.SKU)
	}
	return nil
}

// CanonicalSKU derives the canonical key used for uniqueness matching.
func CanonicalSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
