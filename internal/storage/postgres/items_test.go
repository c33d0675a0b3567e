package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cart-pricing/internal/domain/order"
)

func TestEncodeItems(t *testing.T) {
	items := []order.Item{
		{ProductID: "laptop", Quantity: 1, UnitPrice: decimal.RequireFromString("1000.00")},
		{ProductID: "coffee", Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
	}

	data := encodeItems(items)
	assert.JSONEq(t, `[
		{"productId":"laptop","quantity":1,"unitPrice":"1000"},
		{"productId":"coffee","quantity":3,"unitPrice":"19.99"}
	]`, string(data))

	got, err := decodeItems(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range items {
		assert.Equal(t, items[i].ProductID, got[i].ProductID)
		assert.Equal(t, items[i].Quantity, got[i].Quantity)
		assert.True(t, items[i].UnitPrice.Equal(got[i].UnitPrice))
	}
}

func TestDecodeItems(t *testing.T) {
	got, err := decodeItems([]byte(`[{"productId":"a","quantity":2,"unitPrice":"0.10","extra":{"x":1}}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.RequireFromString("0.10").Equal(got[0].UnitPrice))

	empty, err := decodeItems([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeItems([]byte(`[{"productId":"a","unitPrice":"abc"}]`))
	require.Error(t, err)
}
