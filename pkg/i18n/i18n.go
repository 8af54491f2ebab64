// Package i18n, kullanıcıya giden metinler (email konuları, kargo durum
// etiketleri) için çoklu dil desteği sağlar.
//
// Dil sırası: kullanıcının kayıtlı tercihi, Accept-Language, varsayılan (en).
//
//	l := i18n.NewLocalizer("tr")
//	l.TWithParams("email.orderConfirmation.subject", map[string]string{"order": "SF-1A2B"})
package i18n

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/akinalp/storefront/pkg/logger"
)

// SupportedLanguages: desteklenen dil kodları.
var SupportedLanguages = []string{"en", "tr"}

const DefaultLanguage = "en"

// translations: map[lang]map[flatKey]text. Load sonrası sadece okunur.
var (
	translations map[string]map[string]string
	loadOnce     sync.Once
	loadErr      error
)

// Load, her desteklenen dil için <lang>.json dosyasını okur.
// Sadece ilk çağrı çalışır; sonraki çağrılar aynı sonucu döner.
func Load(localesFS fs.FS) error {
	loadOnce.Do(func() {
		loaded := make(map[string]map[string]string, len(SupportedLanguages))

		for _, lang := range SupportedLanguages {
			fileName := lang + ".json"

			data, err := fs.ReadFile(localesFS, fileName)
			if err != nil {
				loadErr = fmt.Errorf("failed to read translation file %s: %w", fileName, err)
				return
			}

			var nested map[string]any
			if err := json.Unmarshal(data, &nested); err != nil {
				loadErr = fmt.Errorf("failed to parse translation file %s: %w", fileName, err)
				return
			}

			flat := make(map[string]string)
			flattenMap("", nested, flat)
			loaded[lang] = flat

			logger.Debug().Str("lang", lang).Int("keys", len(flat)).Msg("[i18n] translations loaded")
		}

		translations = loaded
	})

	return loadErr
}

// Localizer, tek bir dil için çeviri yapar.
type Localizer struct {
	lang string
}

// NewLocalizer, desteklenmeyen dilde varsayılana düşer.
func NewLocalizer(lang string) *Localizer {
	if !isSupported(lang) {
		lang = DefaultLanguage
	}
	return &Localizer{lang: lang}
}

// Lang, localizer'ın efektif dil kodu.
func (l *Localizer) Lang() string { return l.lang }

// T, key'in çevirisini döner. Önce kendi dili, sonra İngilizce, son çare key'in kendisi.
func (l *Localizer) T(key string) string {
	if msg, ok := translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// TWithParams, {{param}} yer tutucularını doldurur.
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	for k, v := range params {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}

// DetectLanguage, Accept-Language header'ından ilk desteklenen dili seçer.
// "tr-TR,tr;q=0.9,en;q=0.8" → "tr"
func DetectLanguage(acceptLanguage string) string {
	for part := range strings.SplitSeq(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(part, ";")
		base, _, _ := strings.Cut(strings.TrimSpace(tag), "-")
		base = strings.ToLower(base)
		if isSupported(base) {
			return base
		}
	}
	return DefaultLanguage
}

func isSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, lang)
}

// flattenMap: {"email": {"subject": "x"}} → {"email.subject": "x"}
func flattenMap(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flattenMap(key, val, dst)
		}
	}
}
