package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/skuforge/app/models"
)

func mustRow(t *testing.T, sku, name, price string) Row {
	t.Helper()
	row := Row{SKU: sku, SKUCI: models.CanonicalSKU(sku), Name: name, Active: true}
	if price != "" {
		p, err := decimal.NewFromString(price)
		require.NoError(t, err)
		row.Price = &p
	}
	return row
}

func TestDedupeRowsKeepsLastOccurrence(t *testing.T) {
	batch := []Row{
		mustRow(t, "A1", "Widget", "9.99"),
		mustRow(t, "B2", "Gadget", ""),
		mustRow(t, "a1", "Widget v2", "10.99"),
	}

	deduped := dedupeRows(batch)
	require.Len(t, deduped, 2)
	assert.Equal(t, "a1", deduped[0].SKUCI)
	assert.Equal(t, "Widget v2", deduped[0].Name)
	assert.Equal(t, "10.99", deduped[0].Price.String())
	assert.Equal(t, "b2", deduped[1].SKUCI)
}

func TestUpsertBatchEmpty(t *testing.T) {
	inserted, updated, err := UpsertBatch(newTestDB(t), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Zero(t, updated)
}

func TestUpsertBatchDedupWithinBatch(t *testing.T) {
	db := newTestDB(t)

	inserted, updated, err := UpsertBatch(db, []Row{
		mustRow(t, "A1", "Widget", "9.99"),
		mustRow(t, "a1", "Widget v2", "10.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	var products []models.Product
	require.NoError(t, db.Find(&products).Error)
	require.Len(t, products, 1)
	assert.Equal(t, "a1", products[0].SKUCI)
	assert.Equal(t, "Widget v2", products[0].Name)
	require.NotNil(t, products[0].Price)
	assert.Equal(t, "10.99", products[0].Price.String())
}

func TestUpsertBatchCountsInsertsAndUpdates(t *testing.T) {
	db := newTestDB(t)

	inserted, updated, err := UpsertBatch(db, []Row{
		mustRow(t, "A1", "Widget", "9.99"),
		mustRow(t, "B2", "Gadget", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)

	inserted, updated, err = UpsertBatch(db, []Row{
		mustRow(t, "A1", "Widget mk2", "12.00"),
		mustRow(t, "C3", "Doohickey", "1.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, updated)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var a1 models.Product
	require.NoError(t, db.Where("sku_ci = ?", "a1").First(&a1).Error)
	assert.Equal(t, "Widget mk2", a1.Name)
}

// Importing the same rows twice must leave the record set unchanged and
// report zero inserts on the second pass.
func TestUpsertBatchIdempotentReimport(t *testing.T) {
	db := newTestDB(t)
	batch := []Row{
		mustRow(t, "A1", "Widget", "9.99"),
		mustRow(t, "B2", "Gadget", "5.00"),
	}

	inserted, _, err := UpsertBatch(db, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, updated, err := UpsertBatch(db, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 2, updated)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
