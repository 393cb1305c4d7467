package repository

import (
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product in the database
func (r *productRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// GetByID retrieves a product by its ID
func (r *productRepository) GetByID(id uint64) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetBySKUCI retrieves a product by its canonical SKU
func (r *productRepository) GetBySKUCI(skuCI string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("sku_ci = ?", skuCI).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Update updates an existing product in the database
func (r *productRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// Delete deletes a product by its ID
func (r *productRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Product{}, id).Error
}

// List retrieves products with pagination and filtering
func (r *productRepository) List(params ProductListParams) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})

	if params.SKU != "" {
		query = query.Where("sku_ci LIKE ?", models.CanonicalSKU(params.SKU)+"%")
	}
	if params.Query != "" {
		term := "%" + params.Query + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", term, term)
	}
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.PageSize
	var products []models.Product
	err := query.Order("created_at DESC").Offset(offset).Limit(params.PageSize).Find(&products).Error
	return products, total, err
}

// Count returns the total number of products
func (r *productRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Product{}).Count(&count).Error
	return count, err
}

// DeleteAll removes every product from the catalog
func (r *productRepository) DeleteAll() error {
	return r.db.Where("1 = 1").Delete(&models.Product{}).Error
}
