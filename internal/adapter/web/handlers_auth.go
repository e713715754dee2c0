package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/session"
	"github.com/automan-solutions/challandesk/internal/middleware"
	store "github.com/automan-solutions/challandesk/internal/session"
)

type loginContent struct {
	Email string
}

// LoginPage renders the login form.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", pageData{Title: "Sign in", Content: loginContent{}})
}

// Login authenticates against the backend, creates the server session,
// and routes the browser by role: admins land on the dashboard, staff on
// the challan list.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login", pageData{Title: "Sign in", Error: "invalid form submission"})
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.render(w, "login", pageData{
			Title:   "Sign in",
			Error:   "email and password are required",
			Content: loginContent{Email: email},
		})
		return
	}

	res, err := h.Backend.Login(r.Context(), email, password)
	if err != nil {
		msg := "login failed, try again later"
		if errors.Is(err, domain.ErrUnauthenticated) {
			msg = "invalid email or password"
		}
		h.Log.Warn("login rejected", "error", err)
		h.render(w, "login", pageData{
			Title:   "Sign in",
			Error:   msg,
			Content: loginContent{Email: email},
		})
		return
	}

	sid := h.Sessions.Create()
	if err := h.Sessions.Set(sid, store.KeyToken, res.Token); err != nil {
		h.Log.Error("session write failed", "error", err)
		h.render(w, "login", pageData{Title: "Sign in", Error: "login failed, try again later"})
		return
	}
	_ = h.Sessions.Set(sid, store.KeyUser, res.User)
	_ = h.Sessions.Set(sid, store.KeyTenant, res.Tenant)

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/app/challans"
	if res.User.Role == session.RoleAdmin {
		target = "/app/dashboard"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout clears the server session and drops the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.CookieName); err == nil {
		h.Sessions.Clear(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// UnauthorizedPage tells an authenticated user the page is out of bounds
// for their role.
func (h *Handlers) UnauthorizedPage(w http.ResponseWriter, r *http.Request) {
	var user *session.User
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		user = &sess.User
	}
	h.render(w, "unauthorized", pageData{Title: "Unauthorized", User: user})
}
