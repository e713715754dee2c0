package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/adapter/templatecache"
	"github.com/automan-solutions/challandesk/internal/adapter/ws"
	"github.com/automan-solutions/challandesk/internal/config"
	"github.com/automan-solutions/challandesk/internal/middleware"
	"github.com/automan-solutions/challandesk/internal/preview"
	"github.com/automan-solutions/challandesk/internal/service"
	store "github.com/automan-solutions/challandesk/internal/session"
)

// fakeAPI is a minimal stand-in for the remote tenant API.
type fakeAPI struct {
	role        string
	challans    string          // JSON body for GET /challans
	failDeletes map[string]bool // IDs whose DELETE returns 500

	mu       sync.Mutex
	deletes  []string
	failList bool
}

func (f *fakeAPI) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

func (f *fakeAPI) setFailList(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList = fail
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		w.Header().Set("Content-Type", "application/json")
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		fmt.Fprintf(w, `{"token":%q,"user":{"id":7,"name":"Asha","role":%q},"tenant":{"id":3,"name":"Automan"}}`,
			testToken(time.Now().Add(time.Hour)), f.role)
	})
	mux.HandleFunc("GET /challans", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		down := f.failList
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if down {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"challan lookup failed"}`))
			return
		}
		_, _ = w.Write([]byte(f.challans))
	})
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":5,"pending":2,"delivered":3}`))
	})
	mux.HandleFunc("GET /design", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"design":{"company_name":"Automan Solutions","theme_color":"#114e9e"}}`))
	})
	mux.HandleFunc("DELETE /challan/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		w.Header().Set("Content-Type", "application/json")
		if f.failDeletes[id] {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"delete failed"}`))
			return
		}
		f.mu.Lock()
		f.deletes = append(f.deletes, id)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"message":"deleted"}`))
	})
	return mux
}

func testToken(exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, _ := json.Marshal(map[string]int64{"exp": exp.Unix()})
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + "."
}

// newPortal wires a full portal against the fake API and returns its
// test server.
func newPortal(t *testing.T, api *fakeAPI) *httptest.Server {
	t.Helper()
	apiSrv := httptest.NewServer(api.handler())
	t.Cleanup(apiSrv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := backend.New(config.Backend{BaseURL: apiSrv.URL, AssetBaseURL: apiSrv.URL, Timeout: 5 * time.Second})
	sessions := store.NewStore(time.Hour)
	cache, err := templatecache.New(1<<20, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cache.Close)
	renderer, err := preview.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}

	h := &Handlers{
		Log:        log,
		Backend:    client,
		Sessions:   sessions,
		Guard:      &middleware.Guard{Store: sessions, CookieName: "challandesk_session"},
		Lists:      service.NewListService(client, log),
		Forms:      service.NewFormService(client, cache, log),
		Renderer:   renderer,
		Preview:    &ws.PreviewHandler{Renderer: renderer, Log: log},
		CookieName: "challandesk_session",
	}

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

// noRedirect returns a client that reports redirects instead of following
// them and carries a cookie jar.
func noRedirect(t *testing.T) *http.Client {
	t.Helper()
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func login(t *testing.T, srv *httptest.Server, password string) (*http.Response, *http.Cookie) {
	t.Helper()
	resp, err := noRedirect(t).PostForm(srv.URL+"/login", url.Values{
		"email":    {"asha@example.com"},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	for _, c := range resp.Cookies() {
		if c.Name == "challandesk_session" {
			return resp, c
		}
	}
	return resp, nil
}

func TestLoginRedirectsByRole(t *testing.T) {
	cases := []struct {
		role string
		want string
	}{
		{"tenant_admin", "/app/dashboard"},
		{"tenant_staff", "/app/challans"},
	}
	for _, c := range cases {
		t.Run(c.role, func(t *testing.T) {
			srv := newPortal(t, &fakeAPI{role: c.role, challans: `[]`})
			resp, cookie := login(t, srv, "secret")

			if resp.StatusCode != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", resp.StatusCode)
			}
			if got := resp.Header.Get("Location"); got != c.want {
				t.Errorf("redirect = %q, want %q", got, c.want)
			}
			if cookie == nil || !cookie.HttpOnly {
				t.Error("session cookie must be set HttpOnly")
			}
		})
	}
}

func TestLoginFailureShowsBanner(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_admin", challans: `[]`})
	resp, cookie := login(t, srv, "wrong")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (re-rendered form)", resp.StatusCode)
	}
	if cookie != nil {
		t.Error("failed login must not create a session")
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "invalid email or password") {
		t.Error("error banner missing")
	}
	if !strings.Contains(string(body), "asha@example.com") {
		t.Error("email must stay filled in after a failed login")
	}
}

func TestGuardedPageWithoutSession(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_admin", challans: `[]`})

	resp, err := noRedirect(t).Get(srv.URL + "/app/challans")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("got %d -> %q, want 303 -> /login", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestUnknownPathRedirectsToLogin(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_admin", challans: `[]`})

	resp, err := noRedirect(t).Get(srv.URL + "/no/such/page")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("got %d -> %q, want 303 -> /login", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func authedGet(t *testing.T, srv *httptest.Server, cookie *http.Cookie, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+path, http.NoBody)
	req.AddCookie(cookie)
	resp, err := noRedirect(t).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func authedPost(t *testing.T, srv *httptest.Server, cookie *http.Cookie, path string, form url.Values) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	resp, err := noRedirect(t).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestChallanListRendersRows(t *testing.T) {
	api := &fakeAPI{
		role:     "tenant_staff",
		challans: `[{"challan_no":"CH-001","customer_name":"Ravi","date":"01/03/2024","status":"pending"}]`,
	}
	srv := newPortal(t, api)
	_, cookie := login(t, srv, "secret")

	resp := authedGet(t, srv, cookie, "/app/challans")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "CH-001") || !strings.Contains(string(body), "Ravi") {
		t.Error("challan row missing from page")
	}
}

func TestStaffBlockedFromSettings(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_staff", challans: `[]`})
	_, cookie := login(t, srv, "secret")

	resp := authedGet(t, srv, cookie, "/app/settings")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/unauthorized" {
		t.Errorf("got %d -> %q, want 303 -> /unauthorized", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestBulkDeleteFlow(t *testing.T) {
	api := &fakeAPI{
		role: "tenant_admin",
		challans: `[{"challan_no":"CH-001","date":"01/03/2024","status":"pending"},
			{"challan_no":"CH-002","date":"02/03/2024","status":"pending"}]`,
	}
	srv := newPortal(t, api)
	_, cookie := login(t, srv, "secret")

	// Load, select everything, delete.
	authedGet(t, srv, cookie, "/app/challans")
	authedPost(t, srv, cookie, "/app/challans/select-all", nil)
	resp := authedPost(t, srv, cookie, "/app/challans/bulk-delete", nil)

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if got := api.deleteCount(); got != 2 {
		t.Errorf("backend saw %d deletes, want 2", got)
	}
}

func TestBulkDeleteFlashNamesFailedChallans(t *testing.T) {
	api := &fakeAPI{
		role: "tenant_admin",
		challans: `[{"challan_no":"CH-001","date":"01/03/2024","status":"pending"},
			{"challan_no":"CH-002","date":"02/03/2024","status":"pending"},
			{"challan_no":"CH-003","date":"03/03/2024","status":"pending"}]`,
		failDeletes: map[string]bool{"CH-002": true},
	}
	srv := newPortal(t, api)
	_, cookie := login(t, srv, "secret")

	authedGet(t, srv, cookie, "/app/challans")
	authedPost(t, srv, cookie, "/app/challans/select-all", nil)
	authedPost(t, srv, cookie, "/app/challans/bulk-delete", nil)

	resp := authedGet(t, srv, cookie, "/app/challans")
	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	if !strings.Contains(out, "deleted 2 of 3 challans, failed: CH-002") {
		t.Errorf("banner must name the failed challan, got page without it")
	}
	if got := api.deleteCount(); got != 2 {
		t.Errorf("backend saw %d deletes, want 2", got)
	}
}

func TestReloadFailureClearsList(t *testing.T) {
	api := &fakeAPI{
		role:     "tenant_staff",
		challans: `[{"challan_no":"CH-001","customer_name":"Ravi","date":"01/03/2024","status":"pending"}]`,
	}
	srv := newPortal(t, api)
	_, cookie := login(t, srv, "secret")

	first := authedGet(t, srv, cookie, "/app/challans")
	firstBody, _ := io.ReadAll(first.Body)
	if !strings.Contains(string(firstBody), "CH-001") {
		t.Fatal("row missing before the backend goes down")
	}

	api.setFailList(true)
	authedPost(t, srv, cookie, "/app/challans/reload", nil)

	resp := authedGet(t, srv, cookie, "/app/challans")
	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	if strings.Contains(out, "CH-001") {
		t.Error("stale rows must not survive a failed reload")
	}
	if !strings.Contains(out, "reload failed, challan list cleared") {
		t.Error("failure banner missing")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_admin", challans: `[]`})
	_, cookie := login(t, srv, "secret")

	resp := authedPost(t, srv, cookie, "/logout", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	again := authedGet(t, srv, cookie, "/app/challans")
	if again.StatusCode != http.StatusSeeOther || again.Header.Get("Location") != "/login" {
		t.Error("old cookie must be dead after logout")
	}
}

func TestNewChallanFormRendersPreview(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_staff", challans: `[]`})
	_, cookie := login(t, srv, "secret")

	resp := authedGet(t, srv, cookie, "/app/challan/new")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	if !strings.Contains(out, "Automan Solutions") {
		t.Error("preview should carry the fetched design")
	}
	if !strings.Contains(out, "John Doe") || !strings.Contains(out, "CH-XXXXX") {
		t.Error("empty form preview should show placeholders")
	}
	if !strings.Contains(out, "/static/preview.js") || !strings.Contains(out, `id="preview"`) {
		t.Error("form page must load the live preview script over the preview pane")
	}
}

func TestPreviewScriptTargetsPreviewEndpoints(t *testing.T) {
	srv := newPortal(t, &fakeAPI{role: "tenant_staff", challans: `[]`})

	resp, err := http.Get(srv.URL + "/static/preview.js")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	script := string(body)
	if !strings.Contains(script, "/app/challan/preview/ws") {
		t.Error("script must open the live preview websocket")
	}
	if !strings.Contains(script, "/app/challan/preview") {
		t.Error("script must fall back to the preview fragment endpoint")
	}
}
