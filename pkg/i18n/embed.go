package i18n

import "embed"

// EmbeddedLocales, locales/*.json dosyalarını binary'ye gömer.
// Kullanım: fs.Sub(EmbeddedLocales, "locales").
//
//go:embed locales/*.json
var EmbeddedLocales embed.FS
