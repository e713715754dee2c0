package web

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/automan-solutions/challandesk/internal/domain/challan"
	"github.com/automan-solutions/challandesk/internal/domain/session"
	"github.com/automan-solutions/challandesk/internal/middleware"
	store "github.com/automan-solutions/challandesk/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages maps a page name to its parsed template set (layout + page).
var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{
		"login", "unauthorized", "dashboard", "challans",
		"challan_form", "settings", "email_settings", "terms",
	} {
		pages[name] = template.Must(template.ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
}

// pageData is the envelope every page template receives.
type pageData struct {
	Title   string
	User    *session.User
	Flash   string
	Error   string
	Content any
}

// render executes a page into the response. Render failures at this point
// are logged, not surfaced; headers are already out.
func (h *Handlers) render(w http.ResponseWriter, name string, data pageData) {
	tpl, ok := pages[name]
	if !ok {
		h.Log.Error("unknown page template", "page", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.ExecuteTemplate(w, "layout", data); err != nil {
		h.Log.Error("render failed", "page", name, "error", err)
	}
}

// pageFor builds the envelope for an authenticated page, consuming any
// pending flash message.
func (h *Handlers) pageFor(r *http.Request, title string, content any) pageData {
	data := pageData{Title: title, Content: content}
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		data.User = &sess.User
	}
	if sid := middleware.SessionIDFromContext(r.Context()); sid != "" {
		var flash string
		if found, _ := h.Sessions.Get(sid, store.KeyFlash, &flash); found {
			data.Flash = flash
			h.Sessions.Delete(sid, store.KeyFlash)
		}
	}
	return data
}

// setFlash stores a one-shot notice shown on the next rendered page.
func (h *Handlers) setFlash(sid, msg string) {
	if err := h.Sessions.Set(sid, store.KeyFlash, msg); err != nil {
		h.Log.Warn("flash not stored", "error", err)
	}
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// parseFilter reads the list filter form. Date inputs arrive in the HTML
// date format 2006-01-02.
func parseFilter(r *http.Request) challan.Filter {
	f := challan.Filter{Status: strings.TrimSpace(r.FormValue("status"))}
	if t, err := time.Parse("2006-01-02", r.FormValue("from_date")); err == nil {
		f.From = &t
	}
	if t, err := time.Parse("2006-01-02", r.FormValue("to_date")); err == nil {
		f.To = &t
	}
	return f
}

// parseChallanForm reads the challan editor fields from a parsed
// multipart form. Item rows arrive as parallel item_description and
// item_quantity fields.
func parseChallanForm(r *http.Request) challan.Form {
	f := challan.Form{
		CustomerName:    strings.TrimSpace(r.FormValue("customer_name")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		ContactNumber:   strings.TrimSpace(r.FormValue("contact_number")),
		City:            strings.TrimSpace(r.FormValue("city")),
		SerialNumber:    strings.TrimSpace(r.FormValue("serial_number")),
		Problem:         strings.TrimSpace(r.FormValue("problem")),
		DispatchThrough: strings.TrimSpace(r.FormValue("dispatch_through")),
		EmployeeID:      strings.TrimSpace(r.FormValue("employee_id")),
		Accessories:     []string{},
	}

	if r.Form != nil {
		if acc := r.Form["accessories"]; acc != nil {
			f.Accessories = acc
		}
	}
	f.SetWarranty(r.FormValue("warranty"))

	descs := r.Form["item_description"]
	qtys := r.Form["item_quantity"]
	for i, desc := range descs {
		qty := 1
		if i < len(qtys) {
			if n, err := strconv.Atoi(qtys[i]); err == nil && n > 0 {
				qty = n
			}
		}
		f.Items = append(f.Items, challan.Item{Description: strings.TrimSpace(desc), Quantity: qty})
	}
	if len(f.Items) == 0 {
		f.Items = []challan.Item{{Quantity: 1}}
	}
	return f
}
