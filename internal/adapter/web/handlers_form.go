package web

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/branding"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
	"github.com/automan-solutions/challandesk/internal/middleware"
	"github.com/automan-solutions/challandesk/internal/preview"
	store "github.com/automan-solutions/challandesk/internal/session"
)

// maxUploadBytes bounds a challan submission including images.
const maxUploadBytes = 32 << 20

type formContent struct {
	Form        challan.Form
	EditID      string
	GivenBy     string
	Accessories []string
	Warranties  []string
	Preview     template.HTML
	Saved       *challan.Challan
	Error       string
}

// sessionDesign returns the design cached in this session, if any.
func (h *Handlers) sessionDesign(sid string) *branding.Template {
	var tpl branding.Template
	if found, _ := h.Sessions.Get(sid, store.KeyDesign, &tpl); found {
		return &tpl
	}
	return nil
}

// initForm assembles the form view and refreshes the session design copy
// when a fresh one arrived.
func (h *Handlers) initForm(r *http.Request, editID string) (*formContent, branding.Template, error) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	view, err := h.Forms.Initialize(r.Context(), sess.Token, sess.Tenant.ID.String(), h.sessionDesign(sid), editID)
	if err != nil {
		return nil, branding.Template{}, err
	}
	if err := h.Sessions.Set(sid, store.KeyDesign, view.Design); err != nil {
		h.Log.Warn("design not cached in session", "error", err)
	}

	content := &formContent{
		Form:        view.Form,
		EditID:      editID,
		Accessories: challan.AccessoryCatalog,
		Warranties:  challan.WarrantyOptions,
	}
	return content, view.Design, nil
}

// renderFormPage renders the editor with a live preview of the current
// form state.
func (h *Handlers) renderFormPage(w http.ResponseWriter, r *http.Request, content *formContent, design branding.Template) {
	content.GivenBy = h.givenBy(r)
	html, err := h.Renderer.Render(preview.Input{
		Template:  design,
		Form:      content.Form,
		ChallanNo: content.EditID,
		GivenBy:   content.GivenBy,
	})
	if err != nil {
		h.Log.Error("form preview render failed", "error", err)
	} else {
		content.Preview = html
	}

	title := "New challan"
	if content.EditID != "" {
		title = "Edit challan " + content.EditID
	}
	h.render(w, "challan_form", h.pageFor(r, title, content))
}

func (h *Handlers) givenBy(r *http.Request) string {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		return sess.User.DisplayName()
	}
	return ""
}

// ChallanNew renders the empty intake form.
func (h *Handlers) ChallanNew(w http.ResponseWriter, r *http.Request) {
	content, design, err := h.initForm(r, "")
	if err != nil {
		h.formInitFailure(w, r, "", err)
		return
	}
	h.renderFormPage(w, r, content, design)
}

// ChallanEdit renders the form pre-filled from an existing record.
func (h *Handlers) ChallanEdit(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	content, design, err := h.initForm(r, id)
	if err != nil {
		h.formInitFailure(w, r, id, err)
		return
	}
	h.renderFormPage(w, r, content, design)
}

// formInitFailure routes initialization errors: a missing record goes
// back to the list with a flash, a missing template renders the form
// page with a banner and no preview.
func (h *Handlers) formInitFailure(w http.ResponseWriter, r *http.Request, editID string, err error) {
	sid := middleware.SessionIDFromContext(r.Context())
	h.Log.Warn("challan form init failed", "challan", editID, "error", err)

	if editID != "" && errors.Is(err, domain.ErrNotFound) {
		h.setFlash(sid, "challan "+editID+" was not found")
		http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
		return
	}

	banner := "could not open the challan form, please retry"
	if errors.Is(err, domain.ErrNoTemplate) {
		banner = "no document design is available yet; save your design in settings first"
	}
	content := &formContent{
		Form:        challan.NewForm(),
		EditID:      editID,
		GivenBy:     h.givenBy(r),
		Accessories: challan.AccessoryCatalog,
		Warranties:  challan.WarrantyOptions,
		Error:       banner,
	}
	h.render(w, "challan_form", h.pageFor(r, "New challan", content))
}

// ChallanSubmitNew creates a challan from the posted form.
func (h *Handlers) ChallanSubmitNew(w http.ResponseWriter, r *http.Request) {
	h.submitChallan(w, r, "")
}

// ChallanSubmitEdit updates an existing challan from the posted form.
func (h *Handlers) ChallanSubmitEdit(w http.ResponseWriter, r *http.Request) {
	h.submitChallan(w, r, urlParam(r, "id"))
}

// submitChallan parses the multipart submission, forwards it, and on
// success renders a confirmation that bounces back to the list. On
// failure the form re-renders populated with what the user typed.
func (h *Handlers) submitChallan(w http.ResponseWriter, r *http.Request, editID string) {
	sess := middleware.SessionFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.Log.Warn("challan form parse failed", "error", err)
		h.failedSubmit(w, r, challan.NewForm(), editID, "submission was malformed, please try again")
		return
	}
	form := parseChallanForm(r)

	// The add-row button posts the form back instead of submitting it.
	if r.FormValue("add_item") != "" {
		form.AddItem()
		sid := middleware.SessionIDFromContext(r.Context())
		content := &formContent{
			Form:        form,
			EditID:      editID,
			GivenBy:     h.givenBy(r),
			Accessories: challan.AccessoryCatalog,
			Warranties:  challan.WarrantyOptions,
		}
		if design := h.sessionDesign(sid); design != nil {
			h.renderFormPage(w, r, content, *design)
			return
		}
		h.render(w, "challan_form", h.pageFor(r, "New challan", content))
		return
	}

	var images []backend.Image
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				h.Log.Warn("image part unreadable", "file", fh.Filename, "error", err)
				continue
			}
			defer func() { _ = f.Close() }()
			images = append(images, backend.Image{Filename: fh.Filename, Content: f})
		}
	}

	saved, err := h.Forms.Submit(r.Context(), sess.Token, form, images, editID)
	if err != nil {
		h.Log.Warn("challan submit failed", "challan", editID, "error", err)
		h.failedSubmit(w, r, form, editID, "save failed, your entries are kept below")
		return
	}

	content := &formContent{
		Form:        form,
		EditID:      editID,
		Accessories: challan.AccessoryCatalog,
		Warranties:  challan.WarrantyOptions,
		Saved:       saved,
	}
	sid := middleware.SessionIDFromContext(r.Context())
	h.reloadAfterWrite(r, sid, sess.Token)
	h.render(w, "challan_form", h.pageFor(r, "Challan saved", content))
}

func (h *Handlers) failedSubmit(w http.ResponseWriter, r *http.Request, form challan.Form, editID, banner string) {
	content := &formContent{
		Form:        form,
		EditID:      editID,
		GivenBy:     h.givenBy(r),
		Accessories: challan.AccessoryCatalog,
		Warranties:  challan.WarrantyOptions,
		Error:       banner,
	}
	h.render(w, "challan_form", h.pageFor(r, "New challan", content))
}

// PreviewPartial re-renders the document preview for the posted form
// state and returns the bare fragment. The form page swaps it in place.
func (h *Handlers) PreviewPartial(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	design := h.sessionDesign(sid)
	if design == nil {
		http.Error(w, "no design available", http.StatusConflict)
		return
	}

	html, err := h.Renderer.Render(preview.Input{
		Template:  *design,
		Form:      parseChallanForm(r),
		ChallanNo: r.FormValue("challan_no"),
		GivenBy:   h.givenBy(r),
	})
	if err != nil {
		h.Log.Error("preview partial failed", "error", err)
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// PreviewSocket upgrades to the live preview websocket. The design is
// resolved once from the session at connect time.
func (h *Handlers) PreviewSocket(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	design := h.sessionDesign(sid)
	if design == nil {
		http.Error(w, "no design available", http.StatusConflict)
		return
	}
	h.Preview.Serve(w, r, *design)
}
