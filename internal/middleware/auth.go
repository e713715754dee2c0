package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/automan-solutions/challandesk/internal/domain/session"
	store "github.com/automan-solutions/challandesk/internal/session"
)

// timeNow is swapped in tests.
var timeNow = time.Now

type sessionCtxKey struct{}
type sessionIDCtxKey struct{}

// Guard gates the authenticated portal surface. A request passes only
// when its session cookie maps to a live session whose bearer token has
// not expired; anything else clears the session and redirects to login.
type Guard struct {
	Store      *store.Store
	CookieName string
}

// Authenticate resolves the session cookie, verifies the token, and
// injects the session into the request context. Missing or expired
// credentials fail closed: the server session is cleared and the browser
// is sent to the login page.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(g.CookieName)
		if err != nil {
			redirectToLogin(w, r)
			return
		}
		sid := cookie.Value

		var sess session.Session
		if found, err := g.Store.Get(sid, store.KeyToken, &sess.Token); err != nil || !found {
			g.Store.Clear(sid)
			redirectToLogin(w, r)
			return
		}
		if session.IsTokenExpired(sess.Token, timeNow()) {
			g.Store.Clear(sid)
			redirectToLogin(w, r)
			return
		}
		if found, err := g.Store.Get(sid, store.KeyUser, &sess.User); err != nil || !found {
			g.Store.Clear(sid)
			redirectToLogin(w, r)
			return
		}
		// Tenant info is optional; some deployments omit it from login.
		_, _ = g.Store.Get(sid, store.KeyTenant, &sess.Tenant)

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, &sess)
		ctx = context.WithValue(ctx, sessionIDCtxKey{}, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a subtree to the given roles. Authenticated users of
// other roles are sent to the unauthorized page, not to login.
func RequireRole(roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				redirectToLogin(w, r)
				return
			}
			if !sess.Allowed(roles...) {
				http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the authenticated session, or nil outside
// the guarded surface.
func SessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return s
}

// SessionIDFromContext returns the opaque session ID for store access.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDCtxKey{}).(string)
	return id
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
