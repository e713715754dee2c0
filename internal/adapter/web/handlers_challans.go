package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
	"github.com/automan-solutions/challandesk/internal/middleware"
	"github.com/automan-solutions/challandesk/internal/service"
	store "github.com/automan-solutions/challandesk/internal/session"
)

type challanRow struct {
	challan.Challan
	Selected  bool
	PDFURL    string
	QRCodeURL string
}

type challansContent struct {
	Rows        []challanRow
	Total       int
	Visible     int
	Selected    int
	Status      string
	FromDate    string
	ToDate      string
	Error       string
	AllSelected bool
}

// loadListState reads this session's list state, fetching from the
// backend when nothing is loaded yet.
func (h *Handlers) loadListState(r *http.Request) (*service.ListState, string, error) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	var st service.ListState
	found, err := h.Sessions.Get(sid, store.KeyListState, &st)
	if err == nil && found && st.Loaded {
		return &st, sid, nil
	}

	fresh, err := h.Lists.Load(r.Context(), sess.Token)
	if err != nil {
		return nil, sid, err
	}
	h.saveListState(sid, fresh)
	return fresh, sid, nil
}

func (h *Handlers) saveListState(sid string, st *service.ListState) {
	if err := h.Sessions.Set(sid, store.KeyListState, st); err != nil {
		h.Log.Warn("list state not persisted", "error", err)
	}
}

func (h *Handlers) challansContent(st *service.ListState, banner string) challansContent {
	content := challansContent{
		Total:   len(st.Challans),
		Visible: len(st.Filtered),
		Status:  st.Filter.Status,
		Error:   banner,
	}
	if st.Filter.From != nil {
		content.FromDate = st.Filter.From.Format("2006-01-02")
	}
	if st.Filter.To != nil {
		content.ToDate = st.Filter.To.Format("2006-01-02")
	}

	allSelected := len(st.Filtered) > 0
	for _, c := range st.Filtered {
		selected := st.Selected[c.ChallanNo]
		if !selected {
			allSelected = false
		}
		if selected {
			content.Selected++
		}
		content.Rows = append(content.Rows, challanRow{
			Challan:   c,
			Selected:  selected,
			PDFURL:    h.Backend.AssetURL(c.PDFURL),
			QRCodeURL: h.Backend.AssetURL(c.QRCodeURL),
		})
	}
	content.AllSelected = allSelected
	return content
}

// ChallansPage renders the list from session state, loading on first
// visit. Transport failures render an empty list with a banner.
func (h *Handlers) ChallansPage(w http.ResponseWriter, r *http.Request) {
	st, _, err := h.loadListState(r)
	if err != nil {
		banner := "could not load challans, please retry"
		if errors.Is(err, domain.ErrGateway) {
			banner = "challan service is unavailable right now"
		}
		h.Log.Warn("challan list load failed", "error", err)
		empty := &service.ListState{Selected: map[string]bool{}}
		h.render(w, "challans", h.pageFor(r, "Challans", h.challansContent(empty, banner)))
		return
	}
	h.render(w, "challans", h.pageFor(r, "Challans", h.challansContent(st, "")))
}

// ChallansReload forces a fresh backend fetch, discarding filter and
// selection.
func (h *Handlers) ChallansReload(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	st, err := h.Lists.Load(r.Context(), sess.Token)
	if err != nil {
		h.Log.Warn("challan reload failed", "error", err)
		h.saveListState(sid, service.EmptyListState())
		h.setFlash(sid, "reload failed, challan list cleared")
	} else {
		h.saveListState(sid, st)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallansFilter applies the filter over the loaded collection. No
// backend round trip.
func (h *Handlers) ChallansFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
		return
	}
	st, sid, err := h.loadListState(r)
	if err != nil {
		http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
		return
	}
	h.Lists.ApplyFilter(st, parseFilter(r))
	h.saveListState(sid, st)
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallansReset clears the filter and selection.
func (h *Handlers) ChallansReset(w http.ResponseWriter, r *http.Request) {
	st, sid, err := h.loadListState(r)
	if err == nil {
		h.Lists.ResetFilter(st)
		h.saveListState(sid, st)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallansSelect toggles one row in the selection set.
func (h *Handlers) ChallansSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		if st, sid, err := h.loadListState(r); err == nil {
			h.Lists.ToggleSelect(st, r.FormValue("id"))
			h.saveListState(sid, st)
		}
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallansSelectAll toggles selection over the filtered view.
func (h *Handlers) ChallansSelectAll(w http.ResponseWriter, r *http.Request) {
	if st, sid, err := h.loadListState(r); err == nil {
		h.Lists.ToggleSelectAll(st)
		h.saveListState(sid, st)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallansBulkDelete deletes the selected challans and always reloads
// from the backend afterwards, whatever the per-item outcomes were.
func (h *Handlers) ChallansBulkDelete(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())

	st, _, err := h.loadListState(r)
	if err != nil {
		http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
		return
	}

	res, err := h.Lists.BulkDelete(r.Context(), sess, st.SelectedIDs())
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
			return
		}
		h.setFlash(sid, "bulk delete failed")
		http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
		return
	}

	switch {
	case res.Requested == 0:
		h.setFlash(sid, "no challans selected")
	case len(res.Failed) == 0:
		h.setFlash(sid, fmt.Sprintf("deleted %d challans", len(res.Succeeded)))
	default:
		h.setFlash(sid, fmt.Sprintf("deleted %d of %d challans, failed: %s",
			len(res.Succeeded), res.Requested, strings.Join(res.Failed, ", ")))
	}

	h.reloadAfterWrite(r, sid, sess.Token)
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// reloadAfterWrite refreshes the session list state from the backend.
// When the refresh fails the state is emptied rather than left stale;
// the banner from the write that triggered it is extended to say so.
func (h *Handlers) reloadAfterWrite(r *http.Request, sid, token string) {
	ctx := r.Context()
	st, err := h.Lists.Load(ctx, token)
	if err != nil {
		h.Log.Warn("post-write reload failed", "error", err)
		h.saveListState(sid, service.EmptyListState())
		var flash string
		if found, err := h.Sessions.Get(sid, store.KeyFlash, &flash); err == nil && found && flash != "" {
			h.setFlash(sid, flash+"; list could not be refreshed")
		} else {
			h.setFlash(sid, "challan list could not be refreshed")
		}
		return
	}
	h.saveListState(sid, st)
}

// ChallanDelete removes a single challan and reloads the list.
func (h *Handlers) ChallanDelete(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())
	id := urlParam(r, "id")

	if err := h.Lists.DeleteOne(r.Context(), sess, id); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
			return
		}
		h.Log.Warn("challan delete failed", "challan", id, "error", err)
		h.setFlash(sid, "delete failed")
	} else {
		h.setFlash(sid, "challan "+id+" deleted")
		h.reloadAfterWrite(r, sid, sess.Token)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallanSendOTP triggers delivery-OTP dispatch. The list is not
// reloaded; nothing changed yet.
func (h *Handlers) ChallanSendOTP(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())
	id := urlParam(r, "id")

	if err := h.Lists.SendOTP(r.Context(), sess.Token, id); err != nil {
		h.Log.Warn("send OTP failed", "challan", id, "error", err)
		h.setFlash(sid, "could not send OTP")
	} else {
		h.setFlash(sid, "OTP sent to customer for "+id)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallanVerifyOTP confirms delivery. On success the list reloads so the
// status flips to delivered.
func (h *Handlers) ChallanVerifyOTP(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())
	id := urlParam(r, "id")

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
		return
	}
	msg, err := h.Lists.VerifyOTP(r.Context(), sess.Token, id, r.FormValue("otp"))
	if err != nil {
		h.Log.Warn("verify OTP failed", "challan", id, "error", err)
		h.setFlash(sid, "OTP verification failed")
	} else {
		if msg == "" {
			msg = "challan " + id + " delivered"
		}
		h.setFlash(sid, msg)
		h.reloadAfterWrite(r, sid, sess.Token)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}

// ChallanResendPDF asks the backend to regenerate and re-send the PDF.
// The record itself is unchanged, so no reload.
func (h *Handlers) ChallanResendPDF(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sess := middleware.SessionFromContext(r.Context())
	id := urlParam(r, "id")

	if err := h.Lists.ResendPDF(r.Context(), sess.Token, id); err != nil {
		h.Log.Warn("resend PDF failed", "challan", id, "error", err)
		h.setFlash(sid, "could not resend PDF")
	} else {
		h.setFlash(sid, "PDF resent for "+id)
	}
	http.Redirect(w, r, "/app/challans", http.StatusSeeOther)
}
