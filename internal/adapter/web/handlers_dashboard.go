package web

import (
	"net/http"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/middleware"
)

type dashboardContent struct {
	Stats backend.DashboardStats
	Error string
}

// Dashboard shows the tenant's challan counters. A failed stats fetch
// renders zeroed cards with a banner rather than an error page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	content := dashboardContent{}
	stats, err := h.Backend.Dashboard(r.Context(), sess.Token)
	if err != nil {
		h.Log.Warn("dashboard stats unavailable", "error", err)
		content.Error = "statistics are currently unavailable"
	} else {
		content.Stats = *stats
	}

	h.render(w, "dashboard", h.pageFor(r, "Dashboard", content))
}
