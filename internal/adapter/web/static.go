package web

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed static
var staticFS embed.FS

// mountStatic serves the embedded stylesheet and any future assets.
func mountStatic(r chi.Router) {
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))
}
