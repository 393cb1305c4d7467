package importer

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skuforge/skuforge/app/models"
)

// dedupeRows collapses a batch by canonical SKU, keeping the last occurrence
// of every duplicate (last-write-wins within a batch). First-seen order is
// preserved.
func dedupeRows(batch []Row) []Row {
	seen := make(map[string]int, len(batch))
	deduped := make([]Row, 0, len(batch))
	for _, row := range batch {
		if i, ok := seen[row.SKUCI]; ok {
			deduped[i] = row
			continue
		}
		seen[row.SKUCI] = len(deduped)
		deduped = append(deduped, row)
	}
	return deduped
}

// UpsertBatch writes a whole batch as one atomic insert-or-update keyed by
// sku_ci and reports how many rows were inserts vs. updates.
//
// The insert/update split is a best-effort snapshot taken just before the
// write; under concurrent imports touching overlapping keys the counts can
// drift. That race is accepted, the write itself stays atomic.
func UpsertBatch(db *gorm.DB, batch []Row) (inserted int, updated int, err error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}

	deduped := dedupeRows(batch)

	keys := make([]string, len(deduped))
	for i, row := range deduped {
		keys[i] = row.SKUCI
	}

	var existing []string
	if err := db.Model(&models.Product{}).Where("sku_ci IN ?", keys).Pluck("sku_ci", &existing).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count existing products: %w", err)
	}
	updated = len(existing)
	inserted = len(deduped) - updated

	products := make([]models.Product, len(deduped))
	for i, row := range deduped {
		products[i] = models.Product{
			SKU:         row.SKU,
			SKUCI:       row.SKUCI,
			Name:        row.Name,
			Description: row.Description,
			Price:       row.Price,
			Active:      row.Active,
		}
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku_ci"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sku", "name", "description", "price", "active", "updated_at",
		}),
	}).Create(&products).Error
	if err != nil {
		return 0, 0, fmt.Errorf("batch upsert failed: %w", err)
	}

	return inserted, updated, nil
}
