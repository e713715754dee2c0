package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/automan-solutions/challandesk/internal/config"
	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.Backend{
		BaseURL:      srv.URL,
		AssetBaseURL: "https://assets.example.com",
		Timeout:      5 * time.Second,
	})
}

func TestBearerTokenInjection(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := c.ListChallans(context.Background(), "tok-123"); err != nil {
		t.Fatalf("ListChallans: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
}

func TestListChallansShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"challan_no":"CH-001"},{"challan_no":"CH-002"}]`, 2},
		{"wrapped object", `{"challans":[{"challan_no":"CH-001"}]}`, 1},
		{"wrapped empty", `{"challans":[]}`, 0},
		{"object without challans key", `{"message":"ok"}`, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(c.body))
			}))
			got, err := client.ListChallans(context.Background(), "tok")
			if err != nil {
				t.Fatalf("ListChallans: %v", err)
			}
			if len(got) != c.want {
				t.Errorf("got %d challans, want %d", len(got), c.want)
			}
		})
	}
}

func TestListChallansGatewayDetection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>504 Gateway Time-out</html>"))
	}))

	_, err := client.ListChallans(context.Background(), "tok")
	if !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("err = %v, want ErrGateway", err)
	}
}

func TestStatusErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"error":"token expired"}`, domain.ErrUnauthenticated},
		{http.StatusNotFound, `{"error":"no such challan"}`, domain.ErrNotFound},
		{http.StatusInternalServerError, `{"error":"boom"}`, domain.ErrBackend},
		{http.StatusBadGateway, `<html>bad gateway</html>`, domain.ErrBackend},
	}
	for _, c := range cases {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))
		_, err := client.Dashboard(context.Background(), "tok")
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: err = %v, want %v", c.status, err, c.want)
		}
	}
}

func TestLoginDecodesSessionPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "asha@example.com" {
			t.Errorf("email = %q", creds["email"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"token": "tok",
			"user": {"id": 7, "name": "Asha", "user_type": "tenant_admin"},
			"tenant": {"id": 3, "name": "Automan"}
		}`))
	}))

	got, err := client.Login(context.Background(), "asha@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.Token != "tok" {
		t.Errorf("token = %q", got.Token)
	}
	if got.User.Role != "tenant_admin" {
		t.Errorf("role = %q, want tenant_admin", got.User.Role)
	}
	if got.Tenant.Name != "Automan" {
		t.Errorf("tenant = %q", got.Tenant.Name)
	}
}

func TestCreateChallanMultipartRoundTrip(t *testing.T) {
	form := challan.NewForm()
	form.CustomerName = "Asha Rao"
	form.ToggleAccessory("Laptop")
	form.UpdateItem(0, "Screen replacement", 1)
	form.AddItem()
	form.UpdateItem(1, "Thermal paste", 2)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		var got challan.Form
		if err := json.Unmarshal([]byte(r.FormValue("data")), &got); err != nil {
			t.Fatalf("decode data field: %v", err)
		}
		if got.CustomerName != "Asha Rao" {
			t.Errorf("customer = %q", got.CustomerName)
		}
		if len(got.Items) != 2 || got.Items[1].Quantity != 2 {
			t.Errorf("items round-trip mismatch: %+v", got.Items)
		}
		if len(got.Accessories) != 1 || got.Accessories[0] != "Laptop" {
			t.Errorf("accessories round-trip mismatch: %v", got.Accessories)
		}
		files := r.MultipartForm.File["images"]
		if len(files) != 1 || files[0].Filename != "intake.jpg" {
			t.Errorf("unexpected image parts: %+v", files)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"challan":{"challan_no":"CH-100"}}`))
	}))

	images := []Image{{Filename: "intake.jpg", Content: strings.NewReader("jpegbytes")}}
	got, err := client.CreateChallan(context.Background(), "tok", form, images)
	if err != nil {
		t.Fatalf("CreateChallan: %v", err)
	}
	if got.ChallanNo != "CH-100" {
		t.Errorf("challan_no = %q", got.ChallanNo)
	}
}

func TestResendPDFIsBodilessPut(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/challan/CH-042" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.ContentLength > 0 {
			t.Errorf("resend must carry no body, got length %d", r.ContentLength)
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("resend must not set Content-Type, got %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"resent"}`))
	}))

	if err := client.ResendPDF(context.Background(), "tok", "CH-042"); err != nil {
		t.Fatalf("ResendPDF: %v", err)
	}
}

func TestVerifyOTP(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["otp"] == "123456" {
			_, _ = w.Write([]byte(`{"message":"Challan delivered"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid OTP"}`))
	}))

	msg, err := client.VerifyOTP(context.Background(), "tok", "CH-001", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if msg != "Challan delivered" {
		t.Errorf("message = %q", msg)
	}

	_, err = client.VerifyOTP(context.Background(), "tok", "CH-001", "000000")
	if !errors.Is(err, domain.ErrBackend) {
		t.Errorf("wrong OTP err = %v, want ErrBackend", err)
	}
	if err == nil || !strings.Contains(err.Error(), "Invalid OTP") {
		t.Errorf("error should surface backend message, got %v", err)
	}
}

func TestAssetURL(t *testing.T) {
	c := New(config.Backend{BaseURL: "http://api", AssetBaseURL: "https://assets.example.com/"})
	cases := []struct{ in, want string }{
		{"", ""},
		{"https://cdn.example.com/x.pdf", "https://cdn.example.com/x.pdf"},
		{"/media/x.pdf", "https://assets.example.com/media/x.pdf"},
		{"media/x.pdf", "https://assets.example.com/media/x.pdf"},
	}
	for _, cse := range cases {
		if got := c.AssetURL(cse.in); got != cse.want {
			t.Errorf("AssetURL(%q) = %q, want %q", cse.in, got, cse.want)
		}
	}
}
