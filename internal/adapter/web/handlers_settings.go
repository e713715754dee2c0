package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/automan-solutions/challandesk/internal/domain/branding"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
	"github.com/automan-solutions/challandesk/internal/middleware"
	"github.com/automan-solutions/challandesk/internal/preview"
	store "github.com/automan-solutions/challandesk/internal/session"
)

// maxLogoBytes bounds a logo upload.
const maxLogoBytes = 5 << 20

type settingsContent struct {
	Branding branding.Template
	Preview  template.HTML
	Error    string
}

// SettingsPage renders the branding form with a live document preview.
func (h *Handlers) SettingsPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	content := settingsContent{}
	settings, err := h.Backend.GetSettings(r.Context(), sess.Token)
	if err != nil {
		h.Log.Warn("settings fetch failed", "error", err)
		content.Error = "could not load settings, showing blanks"
	} else {
		content.Branding = settings.Branding
	}

	h.renderSettings(w, r, content)
}

func (h *Handlers) renderSettings(w http.ResponseWriter, r *http.Request, content settingsContent) {
	html, err := h.Renderer.Render(preview.Input{
		Template: content.Branding,
		Form:     challan.Form{},
		GivenBy:  h.givenBy(r),
	})
	if err != nil {
		h.Log.Error("settings preview failed", "error", err)
	} else {
		content.Preview = html
	}
	h.render(w, "settings", h.pageFor(r, "Settings", content))
}

// SettingsSave persists the branding form. The challan settings section
// is fetched first and passed through untouched.
func (h *Handlers) SettingsSave(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		h.renderSettings(w, r, settingsContent{Error: "submission was malformed"})
		return
	}
	tpl := parseBrandingForm(r)

	current, err := h.Backend.GetSettings(r.Context(), sess.Token)
	if err != nil {
		h.Log.Warn("settings refetch failed", "error", err)
		current = &branding.Settings{}
	} else {
		// Email stays backend-managed; the form cannot change it.
		tpl.CompanyEmail = current.Branding.CompanyEmail
	}
	current.Branding = tpl

	if err := h.Backend.PutSettings(r.Context(), sess.Token, *current); err != nil {
		h.Log.Warn("settings save failed", "error", err)
		h.renderSettings(w, r, settingsContent{
			Branding: tpl,
			Error:    "save failed, your changes are kept below",
		})
		return
	}

	// The session's design copy is now stale.
	h.Sessions.Delete(sid, store.KeyDesign)
	h.setFlash(sid, "settings saved")
	http.Redirect(w, r, "/app/settings", http.StatusSeeOther)
}

func parseBrandingForm(r *http.Request) branding.Template {
	return branding.Template{
		CompanyName:     strings.TrimSpace(r.FormValue("company_name")),
		Tagline:         strings.TrimSpace(r.FormValue("tagline")),
		CompanyAddress:  strings.TrimSpace(r.FormValue("company_address")),
		CompanyPhone:    strings.TrimSpace(r.FormValue("company_phone")),
		LogoURL:         strings.TrimSpace(r.FormValue("logo_url")),
		ThemeColor:      strings.TrimSpace(r.FormValue("theme_color")),
		FontFamily:      strings.TrimSpace(r.FormValue("font_family")),
		FooterNote:      strings.TrimSpace(r.FormValue("footer_note")),
		TermsConditions: r.FormValue("terms_conditions"),
		ShowAccessories: r.FormValue("show_accessories") != "",
	}
}

// LogoUpload forwards the logo file to the backend and stores the
// returned URL on the branding settings.
func (h *Handlers) LogoUpload(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		h.setFlash(sid, "logo upload was malformed")
		http.Redirect(w, r, "/app/settings", http.StatusSeeOther)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		h.setFlash(sid, "choose a logo file first")
		http.Redirect(w, r, "/app/settings", http.StatusSeeOther)
		return
	}
	defer func() { _ = file.Close() }()

	logoURL, err := h.Backend.UploadLogo(r.Context(), sess.Token, header.Filename, file)
	if err != nil {
		h.Log.Warn("logo upload failed", "error", err)
		h.setFlash(sid, "logo upload failed")
	} else {
		h.Log.Info("logo uploaded", "url", logoURL)
		h.Sessions.Delete(sid, store.KeyDesign)
		h.setFlash(sid, "logo updated")
	}
	http.Redirect(w, r, "/app/settings", http.StatusSeeOther)
}

type emailSettingsContent struct {
	Settings branding.EmailSettings
	Error    string
}

// EmailSettingsPage renders the SMTP configuration form.
func (h *Handlers) EmailSettingsPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	content := emailSettingsContent{}
	settings, err := h.Backend.GetEmailSettings(r.Context(), sess.Token)
	if err != nil {
		h.Log.Warn("email settings fetch failed", "error", err)
		content.Error = "could not load email settings"
	} else {
		content.Settings = *settings
	}
	h.render(w, "email_settings", h.pageFor(r, "Email settings", content))
}

// EmailSettingsSave stores the SMTP configuration.
func (h *Handlers) EmailSettingsSave(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/app/email-settings", http.StatusSeeOther)
		return
	}
	port, _ := strconv.Atoi(r.FormValue("smtp_port"))
	settings := branding.EmailSettings{
		SenderName:     strings.TrimSpace(r.FormValue("sender_name")),
		SenderEmail:    strings.TrimSpace(r.FormValue("sender_email")),
		SenderPassword: r.FormValue("sender_password"),
		SMTPServer:     strings.TrimSpace(r.FormValue("smtp_server")),
		SMTPPort:       port,
		UseTLS:         r.FormValue("use_tls") != "",
		UseSSL:         r.FormValue("use_ssl") != "",
	}

	if err := h.Backend.SaveEmailSettings(r.Context(), sess.Token, settings); err != nil {
		h.Log.Warn("email settings save failed", "error", err)
		h.render(w, "email_settings", h.pageFor(r, "Email settings", emailSettingsContent{
			Settings: settings,
			Error:    "save failed, your changes are kept below",
		}))
		return
	}
	h.setFlash(sid, "email settings saved")
	http.Redirect(w, r, "/app/email-settings", http.StatusSeeOther)
}

type termsContent struct {
	Terms      string
	Paragraphs []string
	Error      string
}

// TermsPage renders the terms editor with a paragraph preview.
func (h *Handlers) TermsPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	content := termsContent{}
	terms, err := h.Backend.GetTerms(r.Context(), sess.Token)
	if err != nil {
		h.Log.Warn("terms fetch failed", "error", err)
		content.Error = "could not load terms"
	} else {
		content.Terms = terms
		content.Paragraphs = branding.Template{TermsConditions: terms}.TermsParagraphs()
	}
	h.render(w, "terms", h.pageFor(r, "Terms & Conditions", content))
}

// TermsSave persists the terms text.
func (h *Handlers) TermsSave(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/app/terms", http.StatusSeeOther)
		return
	}
	terms := r.FormValue("terms_conditions")

	if err := h.Backend.PutTerms(r.Context(), sess.Token, terms); err != nil {
		h.Log.Warn("terms save failed", "error", err)
		h.render(w, "terms", h.pageFor(r, "Terms & Conditions", termsContent{
			Terms: terms,
			Error: "save failed, your changes are kept below",
		}))
		return
	}
	h.Sessions.Delete(sid, store.KeyDesign)
	h.setFlash(sid, "terms saved")
	http.Redirect(w, r, "/app/terms", http.StatusSeeOther)
}
