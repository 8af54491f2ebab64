// Package static, storefront + admin dashboard build çıktısını binary'ye gömer.
//
// Build sırasında web/dist/ içeriği static/dist/ dizinine kopyalanır,
// ardından Go derleyicisi bu dosyaları binary'ye gömer.
//
// Development modunda dist/ içi boş olabilir (.gitkeep);
// bu durumda frontend dev server'dan servis edilir ve Handler 404 döner.
package static

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// FrontendFS, dist/ dizinindeki frontend build dosyalarını içerir.
// "all:" prefix'i .gitkeep gibi nokta ile başlayan dosyaları da dahil eder.
//
//go:embed all:dist
var FrontendFS embed.FS

// Handler, gömülü build'i SPA fallback ile servis eder.
//
// Var olan dosya doğrudan döner; bilinmeyen path'ler client-side router için
// index.html'e düşer. /api/ ve /ws asla fallback almaz.
func Handler() http.Handler {
	dist, err := fs.Sub(FrontendFS, "dist")
	if err != nil {
		return http.NotFoundHandler()
	}
	return SPA(dist)
}

// SPA, verilen dosya sisteminden index.html fallback'li handler üretir.
func SPA(root fs.FS) http.Handler {
	files := http.FileServerFS(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws" {
			http.NotFound(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" {
			if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		index, err := fs.ReadFile(root, "index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(index)
	})
}
