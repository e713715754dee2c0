// Package branding defines the per-tenant branding template used to render
// challan documents, and the settings blobs that carry it.
package branding

import "strings"

// TermsDelimiter separates terms-and-conditions paragraphs in the stored
// terms string. The backend and PDF pipeline share this literal.
const TermsDelimiter = "<br/>"

// Template is the tenant's document branding.
type Template struct {
	CompanyName     string `json:"company_name"`
	Tagline         string `json:"tagline"`
	CompanyAddress  string `json:"company_address"`
	CompanyPhone    string `json:"company_phone"`
	CompanyEmail    string `json:"company_email"` // read-only for the tenant
	LogoURL         string `json:"logo_url"`
	ThemeColor      string `json:"theme_color"`
	FontFamily      string `json:"font_family"`
	FooterNote      string `json:"footer_note"`
	TermsConditions string `json:"terms_conditions"`
	ShowAccessories bool   `json:"show_accessories"`
}

// TermsParagraphs splits the terms string into discrete paragraphs on the
// literal delimiter. An empty terms string yields no paragraphs.
func (t Template) TermsParagraphs() []string {
	if t.TermsConditions == "" {
		return nil
	}
	return strings.Split(t.TermsConditions, TermsDelimiter)
}

// Settings is the full tenant settings blob exchanged with the backend.
// The challan section exists for forward compatibility and is passed
// through untouched.
type Settings struct {
	Branding Template       `json:"branding"`
	Challan  map[string]any `json:"challan"`
}

// EmailSettings is the tenant's outbound SMTP configuration.
type EmailSettings struct {
	SenderName     string `json:"sender_name"`
	SenderEmail    string `json:"sender_email"`
	SenderPassword string `json:"sender_password"`
	SMTPServer     string `json:"smtp_server"`
	SMTPPort       int    `json:"smtp_port"`
	UseTLS         bool   `json:"use_tls"`
	UseSSL         bool   `json:"use_ssl"`
}
