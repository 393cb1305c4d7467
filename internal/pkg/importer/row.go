package importer

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/skuforge/skuforge/app/models"
)

// Row is one normalized CSV line ready for upserting.
type Row struct {
	SKU         string
	SKUCI       string
	Name        string
	Description string
	Price       *decimal.Decimal
	Active      bool
}

// columns holds the resolved header positions of the recognized CSV columns.
// A value of -1 means the column is not present; any other header is ignored.
type columns struct {
	sku         int
	name        int
	description int
	price       int
}

func resolveColumns(header []string) columns {
	cols := columns{sku: -1, name: -1, description: -1, price: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "sku":
			cols.sku = i
		case "name":
			cols.name = i
		case "description":
			cols.description = i
		case "price":
			cols.price = i
		}
	}
	return cols
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// rowFromRecord normalizes one CSV record. The second return value is false
// when the row must be skipped (missing sku); skips are silent and not
// counted as errors.
func rowFromRecord(cols columns, record []string) (Row, bool) {
	sku := cleanString(field(record, cols.sku), models.ProductSKUMaxLength)
	if sku == "" {
		return Row{}, false
	}

	name := cleanString(field(record, cols.name), models.ProductNameMaxLength)
	if name == "" {
		name = sku
	}

	return Row{
		SKU:         sku,
		SKUCI:       models.CanonicalSKU(sku),
		Name:        name,
		Description: cleanString(field(record, cols.description), 0),
		Price:       parsePrice(field(record, cols.price)),
		Active:      true,
	}, true
}

// cleanString trims whitespace and truncates to maxLength characters
// (0 = unbounded). Truncation counts runes, never splitting a multi-byte
// character into invalid UTF-8.
func cleanString(value string, maxLength int) string {
	result := strings.TrimSpace(value)
	if maxLength > 0 && utf8.RuneCountInString(result) > maxLength {
		runes := []rune(result)
		result = string(runes[:maxLength])
	}
	return result
}

// parsePrice is deliberately permissive: anything that does not parse as a
// non-negative decimal is stored as absent, never rejects the row.
func parsePrice(value string) *decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	price, err := decimal.NewFromString(value)
	if err != nil || price.IsNegative() {
		return nil
	}
	price = price.Round(2)
	return &price
}
