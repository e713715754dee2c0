// Package preview renders the challan document preview: the same HTML
// that the form page, the settings live preview, and the websocket push
// all display. Rendering is a pure function of the branding template and
// the form contents.
package preview

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/automan-solutions/challandesk/internal/domain/branding"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
)

//go:embed document.html
var documentFS embed.FS

// Placeholder values shown for absent fields so the preview always looks
// like a finished document.
const (
	placeholderCompany  = "Company Name"
	placeholderChallan  = "CH-XXXXX"
	placeholderCustomer = "John Doe"
	placeholderEmail    = "example@email.com"
	placeholderContact  = "9999999999"
	placeholderCity     = "Nashik"
	placeholderSerial   = "SN-12345"
	placeholderProblem  = "Describe problem here..."
	placeholderDash     = "—"
	placeholderFooter   = "Thank you for choosing us!"
	placeholderGivenBy  = "Unknown"

	defaultThemeColor = "#114e9e"
	defaultFontFamily = "Arial, sans-serif"
)

// Input is everything a preview render depends on.
type Input struct {
	Template  branding.Template
	Form      challan.Form
	ChallanNo string
	Date      string // display format; empty means today
	GivenBy   string
}

// Renderer executes the embedded document template.
type Renderer struct {
	tpl *template.Template
	now func() time.Time
}

// NewRenderer parses the embedded document template.
func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("document.html").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(documentFS, "document.html")
	if err != nil {
		return nil, fmt.Errorf("parse document template: %w", err)
	}
	return &Renderer{tpl: tpl, now: time.Now}, nil
}

// viewData is the flat structure the template consumes. Every field is
// already resolved; the template holds no fallback logic beyond the
// optional header lines and the item table.
type viewData struct {
	CompanyName string
	Tagline     string
	Address     string
	Phone       string
	Email       string
	LogoURL     string
	ThemeColor  template.CSS
	FontFamily  template.CSS
	FooterNote  string

	ChallanNo    string
	Date         string
	CustomerName string
	CustEmail    string
	Contact      string
	City         string
	Serial       string
	Problem      string
	Accessories  string
	Warranty     string
	Dispatch     string
	GivenBy      string

	Items []challan.Item
	Terms []string
}

// Render produces the document HTML.
func (r *Renderer) Render(in Input) (template.HTML, error) {
	data := r.resolve(in)
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) resolve(in Input) viewData {
	t := in.Template
	f := in.Form

	date := in.Date
	if date == "" {
		date = r.now().Format("02/01/2006")
	}

	accessories := placeholderDash
	if len(f.Accessories) > 0 {
		accessories = strings.Join(f.Accessories, ", ")
	}

	items := make([]challan.Item, 0, len(f.Items))
	for _, it := range f.Items {
		if strings.TrimSpace(it.Description) != "" {
			items = append(items, it)
		}
	}

	return viewData{
		CompanyName: or(t.CompanyName, placeholderCompany),
		Tagline:     t.Tagline,
		Address:     t.CompanyAddress,
		Phone:       t.CompanyPhone,
		Email:       t.CompanyEmail,
		LogoURL:     t.LogoURL,
		ThemeColor:  safeCSS(t.ThemeColor, defaultThemeColor),
		FontFamily:  safeCSS(t.FontFamily, defaultFontFamily),
		FooterNote:  or(t.FooterNote, placeholderFooter),

		ChallanNo:    or(in.ChallanNo, placeholderChallan),
		Date:         date,
		CustomerName: or(f.CustomerName, placeholderCustomer),
		CustEmail:    or(f.Email, placeholderEmail),
		Contact:      or(f.ContactNumber, placeholderContact),
		City:         or(f.City, placeholderCity),
		Serial:       or(f.SerialNumber, placeholderSerial),
		Problem:      or(f.Problem, placeholderProblem),
		Accessories:  accessories,
		Warranty:     or(f.Warranty, placeholderDash),
		Dispatch:     or(f.DispatchThrough, placeholderDash),
		GivenBy:      or(in.GivenBy, placeholderGivenBy),

		Items: items,
		Terms: t.TermsParagraphs(),
	}
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// cssValue admits colors and font stacks; anything else falls back to the
// default so tenant input can never break out of a style attribute.
var cssValue = regexp.MustCompile(`^[a-zA-Z0-9#,()%. '"-]+$`)

func safeCSS(v, fallback string) template.CSS {
	v = strings.TrimSpace(v)
	if v == "" || !cssValue.MatchString(v) || strings.ContainsAny(v, `;{}<>`) {
		v = fallback
	}
	return template.CSS(v)
}
