// Package web is the portal's HTML surface: login, the challan list and
// editor, the document preview, and the admin settings pages.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/adapter/ws"
	"github.com/automan-solutions/challandesk/internal/domain/session"
	"github.com/automan-solutions/challandesk/internal/middleware"
	"github.com/automan-solutions/challandesk/internal/preview"
	"github.com/automan-solutions/challandesk/internal/service"
	store "github.com/automan-solutions/challandesk/internal/session"
)

// Handlers bundles everything the web surface depends on.
type Handlers struct {
	Log      *slog.Logger
	Backend  *backend.Client
	Sessions *store.Store
	Guard    *middleware.Guard
	Lists    *service.ListService
	Forms    *service.FormService
	Renderer *preview.Renderer
	Preview  *ws.PreviewHandler

	CookieName   string
	SecureCookie bool
}

// NewRouter builds the portal's route tree.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(h.Log))

	mountStatic(r)

	// Public surface.
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/unauthorized", h.UnauthorizedPage)
	r.Post("/logout", h.Logout)

	toLogin := func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
	r.Get("/", toLogin)
	r.NotFound(toLogin)

	// Authenticated surface, both tenant roles.
	r.Route("/app", func(r chi.Router) {
		r.Use(h.Guard.Authenticate)
		r.Use(middleware.RequireRole(session.RoleAdmin, session.RoleStaff))

		r.Get("/dashboard", h.Dashboard)

		r.Get("/challans", h.ChallansPage)
		r.Post("/challans/reload", h.ChallansReload)
		r.Post("/challans/filter", h.ChallansFilter)
		r.Post("/challans/reset", h.ChallansReset)
		r.Post("/challans/select", h.ChallansSelect)
		r.Post("/challans/select-all", h.ChallansSelectAll)
		r.Post("/challans/bulk-delete", h.ChallansBulkDelete)
		r.Post("/challans/{id}/delete", h.ChallanDelete)
		r.Post("/challans/{id}/send-otp", h.ChallanSendOTP)
		r.Post("/challans/{id}/verify-otp", h.ChallanVerifyOTP)
		r.Post("/challans/{id}/resend-pdf", h.ChallanResendPDF)

		r.Get("/challan/new", h.ChallanNew)
		r.Post("/challan/new", h.ChallanSubmitNew)
		r.Get("/challan/{id}/edit", h.ChallanEdit)
		r.Post("/challan/{id}/edit", h.ChallanSubmitEdit)
		r.Post("/challan/preview", h.PreviewPartial)
		r.Get("/challan/preview/ws", h.PreviewSocket)

		// Admin-only configuration pages.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(session.RoleAdmin))
			r.Get("/settings", h.SettingsPage)
			r.Post("/settings", h.SettingsSave)
			r.Post("/settings/logo", h.LogoUpload)
			r.Get("/email-settings", h.EmailSettingsPage)
			r.Post("/email-settings", h.EmailSettingsSave)
			r.Get("/terms", h.TermsPage)
			r.Post("/terms", h.TermsSave)
		})
	})

	return r
}
