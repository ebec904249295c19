package http

import (
	"html/template"
	"io/fs"
	"net/http"
)

// ServeOverviewPage serves the overview dashboard.
func ServeOverviewPage(pages fs.FS) http.HandlerFunc {
	return servePage(pages, "overview.html")
}

// ServeEngagementPage serves the engagement dashboard.
func ServeEngagementPage(pages fs.FS) http.HandlerFunc {
	return servePage(pages, "engagement.html")
}

// servePage renders one page from the page filesystem. Pages parse per
// request, so a disk-backed filesystem picks up edits without a
// restart; the embedded production pages are small enough not to care.
func servePage(pages fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := template.ParseFS(pages, name)
		if err != nil {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		if err := tmpl.Execute(w, nil); err != nil {
			http.Error(w, "error rendering page", http.StatusInternalServerError)
		}
	}
}
