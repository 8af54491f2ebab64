package i18n

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadEmbedded(t *testing.T) {
	t.Helper()
	sub, err := fs.Sub(EmbeddedLocales, "locales")
	require.NoError(t, err)
	require.NoError(t, Load(sub))
}

func TestLocalizerFallbacks(t *testing.T) {
	loadEmbedded(t)

	tr := NewLocalizer("tr")
	assert.Equal(t, "Yolda", tr.T("shipment.status.in_transit"))
	assert.Equal(t, "missing.key", tr.T("missing.key"))

	de := NewLocalizer("de")
	assert.Equal(t, DefaultLanguage, de.Lang())
	assert.Equal(t, "In transit", de.T("shipment.status.in_transit"))
}

func TestTWithParams(t *testing.T) {
	loadEmbedded(t)

	got := NewLocalizer("en").TWithParams("email.orderConfirmation.subject", map[string]string{"order": "SF-42"})
	assert.Equal(t, "Order SF-42 confirmed", got)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "tr", DetectLanguage("tr-TR,tr;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", DetectLanguage("de-DE, en;q=0.5"))
	assert.Equal(t, "en", DetectLanguage(""))
}
