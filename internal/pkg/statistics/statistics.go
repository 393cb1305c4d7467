package statistics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/internal/pkg/cache"
	"github.com/skuforge/skuforge/internal/pkg/database"
)

const (
	CacheKeyProductsTotal = "statistics:products:total"
	CacheExpiration       = 5 * time.Minute
)

// GetTotalProducts returns the product count from the cache, falling back to
// the database and refreshing the cache entry on a miss.
func GetTotalProducts() int64 {
	if val, err := cache.Get(CacheKeyProductsTotal); err == nil {
		if count, ok := parseCachedCount(val); ok {
			return count
		}
	}

	var count int64
	if err := database.GetDB().Model(&models.Product{}).Count(&count).Error; err != nil {
		log.Errorf("[Statistics] Failed to count products: %v", err)
		return 0
	}

	if err := cache.Set(CacheKeyProductsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Errorf("[Statistics] Failed to cache product count: %v", err)
	}
	return count
}

// InvalidateTotalProducts drops the cached count after writes that change it,
// such as imports, product CRUD and bulk deletes.
func InvalidateTotalProducts() {
	if err := cache.Delete(CacheKeyProductsTotal); err != nil {
		log.Errorf("[Statistics] Failed to invalidate product count: %v", err)
	}
}

func parseCachedCount(val string) (int64, bool) {
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil || count < 0 {
		return 0, false
	}
	return count, true
}
