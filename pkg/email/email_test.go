package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "12.50 USD", FormatMoney(1250, "USD"))
	assert.Equal(t, "0.05 EUR", FormatMoney(5, "EUR"))
	assert.Equal(t, "100.00 TRY", FormatMoney(10000, "TRY"))
	assert.Equal(t, "-3.07 USD", FormatMoney(-307, "USD"))
}

func TestOrderTemplateEscapesProductNames(t *testing.T) {
	out, err := render(orderTmpl, map[string]any{
		"Heading": "Thanks",
		"Intro":   "Order ORD-1",
		"Lines": []map[string]any{
			{"Name": "<script>alert(1)</script>", "Quantity": 2, "Total": "10.00 USD"},
		},
		"Labels": map[string]string{"Subtotal": "Subtotal", "Tax": "Tax", "Shipping": "Shipping", "Total": "Total"},
		"Link":   "https://shop.example/orders",
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.True(t, strings.Contains(out, "&lt;script&gt;"))
	assert.Contains(t, out, "10.00 USD")
}
