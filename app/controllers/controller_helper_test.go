package controllers

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/internal/pkg/env"
	"github.com/skuforge/skuforge/internal/pkg/progress"
)

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm sentinel", gorm.ErrDuplicatedKey, true},
		{"mysql duplicate entry", errors.New("Error 1062 (23000): Duplicate entry 'a1' for key 'sku_ci'"), true},
		{"sqlite unique", errors.New("UNIQUE constraint failed: products.sku_ci"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateKeyError(tt.err))
		})
	}
}

func TestProductEventPayload(t *testing.T) {
	price := decimal.NewFromFloat(19.99)
	product := &models.Product{ID: 7, Name: "Widget", Active: true, Price: &price}
	product.SetSKU("A1")

	payload := productEventPayload(product)
	assert.Equal(t, uint64(7), payload["id"])
	assert.Equal(t, "A1", payload["sku"])
	assert.Equal(t, "19.99", payload["price"])

	product.Price = nil
	payload = productEventPayload(product)
	_, hasPrice := payload["price"]
	assert.False(t, hasPrice)
}

func TestWriteSSEEventFraming(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.True(t, writeSSEEvent(w, progress.Connected("job-1")))

	out := buf.String()
	assert.True(t, bytes.HasPrefix([]byte(out), []byte("data: ")))
	assert.Contains(t, out, `"status":"connected"`)
	assert.Contains(t, out, `"job_id":"job-1"`)
	assert.True(t, bytes.HasSuffix([]byte(out), []byte("\n\n")))
}

func TestStatsErrorMessageHidesDetailOutsideDev(t *testing.T) {
	prev := env.Env
	t.Cleanup(func() { env.Env = prev })

	env.Env = map[string]string{"APP_ENV": "prod"}
	assert.Equal(t, "Failed to read queue state", statsErrorMessage(errors.New("dial tcp 127.0.0.1:6379: connection refused")))

	env.Env = map[string]string{"APP_ENV": "dev"}
	assert.Contains(t, statsErrorMessage(errors.New("dial tcp 127.0.0.1:6379: connection refused")), "connection refused")
}

func TestAllowedCSVContentTypes(t *testing.T) {
	assert.True(t, allowedCSVContentTypes["text/csv"])
	assert.True(t, allowedCSVContentTypes["application/vnd.ms-excel"])
	assert.False(t, allowedCSVContentTypes["application/json"])
}
