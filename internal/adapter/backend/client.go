// Package backend provides the HTTP client for the remote ChallanDesk
// tenant REST API. The portal holds no data of its own; every record
// operation goes through this client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/automan-solutions/challandesk/internal/config"
	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/branding"
	sess "github.com/automan-solutions/challandesk/internal/domain/session"
)

// Client talks to the ChallanDesk tenant API.
type Client struct {
	baseURL      string
	assetBaseURL string
	httpClient   *http.Client
}

// New creates a backend client from config. Outgoing requests are traced
// via the otelhttp transport.
func New(cfg config.Backend) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		assetBaseURL: strings.TrimRight(cfg.AssetBaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// AssetURL resolves a possibly-relative pdf_url/qr_code_url against the
// backend asset host.
func (c *Client) AssetURL(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return c.assetBaseURL + u
}

// LoginResult is the payload of a successful POST /login.
type LoginResult struct {
	Token  string      `json:"token"`
	User   sess.User   `json:"user"`
	Tenant sess.Tenant `json:"tenant"`
}

// Login authenticates tenant credentials and returns the session payload.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.doJSON(ctx, "", http.MethodPost, "/login", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", domain.ErrBackend)
	}
	return &out, nil
}

// DashboardStats is the payload of GET /dashboard.
type DashboardStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
}

// Dashboard returns the tenant's challan counters.
func (c *Client) Dashboard(ctx context.Context, token string) (*DashboardStats, error) {
	var out DashboardStats
	if err := c.doJSON(ctx, token, http.MethodGet, "/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Design fetches the tenant's branding template for document rendering.
func (c *Client) Design(ctx context.Context, token string) (*branding.Template, error) {
	var out struct {
		Design *branding.Template `json:"design"`
	}
	if err := c.doJSON(ctx, token, http.MethodGet, "/design", nil, &out); err != nil {
		return nil, err
	}
	if out.Design == nil {
		return nil, fmt.Errorf("%w: design response carried no template", domain.ErrBackend)
	}
	return out.Design, nil
}

// GetSettings fetches the full settings blob (branding + challan section).
func (c *Client) GetSettings(ctx context.Context, token string) (*branding.Settings, error) {
	var out branding.Settings
	if err := c.doJSON(ctx, token, http.MethodGet, "/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutSettings saves the settings blob.
func (c *Client) PutSettings(ctx context.Context, token string, s branding.Settings) error {
	if s.Challan == nil {
		s.Challan = map[string]any{}
	}
	return c.doJSON(ctx, token, http.MethodPut, "/settings", s, nil)
}

// GetTerms fetches the terms-and-conditions text.
func (c *Client) GetTerms(ctx context.Context, token string) (string, error) {
	var out struct {
		TermsConditions string `json:"terms_conditions"`
	}
	if err := c.doJSON(ctx, token, http.MethodGet, "/settings/terms", nil, &out); err != nil {
		return "", err
	}
	return out.TermsConditions, nil
}

// PutTerms saves the terms-and-conditions text.
func (c *Client) PutTerms(ctx context.Context, token, terms string) error {
	body := map[string]string{"terms_conditions": terms}
	return c.doJSON(ctx, token, http.MethodPut, "/settings/terms", body, nil)
}

// GetEmailSettings fetches the tenant's SMTP configuration.
func (c *Client) GetEmailSettings(ctx context.Context, token string) (*branding.EmailSettings, error) {
	var out struct {
		EmailConfig *branding.EmailSettings `json:"email_config"`
	}
	if err := c.doJSON(ctx, token, http.MethodGet, "/email_settings", nil, &out); err != nil {
		return nil, err
	}
	if out.EmailConfig == nil {
		return &branding.EmailSettings{}, nil
	}
	return out.EmailConfig, nil
}

// SaveEmailSettings stores the tenant's SMTP configuration.
func (c *Client) SaveEmailSettings(ctx context.Context, token string, s branding.EmailSettings) error {
	return c.doJSON(ctx, token, http.MethodPost, "/email_settings", s, nil)
}

// UploadLogo sends a logo image as multipart form data and returns the
// stored logo URL.
func (c *Client) UploadLogo(ctx context.Context, token, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw, err := newMultipart(&buf)
	if err != nil {
		return "", err
	}
	if err := mw.addFile("logo", filename, content); err != nil {
		return "", fmt.Errorf("encode logo: %w", err)
	}
	if err := mw.close(); err != nil {
		return "", err
	}

	data, _, err := c.do(ctx, token, http.MethodPost, "/upload_logo", &buf, mw.contentType())
	if err != nil {
		return "", err
	}
	var out struct {
		LogoURL string `json:"logo_url"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("unmarshal logo response: %w", err)
	}
	return out.LogoURL, nil
}

// doJSON performs a JSON request/response round trip. out may be nil when
// the response body is irrelevant.
func (c *Client) doJSON(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	data, _, err := c.do(ctx, token, method, path, reader, contentType)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s %s: %w", method, path, err)
	}
	return nil
}

// do performs one request and maps non-2xx statuses onto the error
// taxonomy. The response body and headers are returned for callers that
// need to inspect them.
func (c *Client) do(ctx context.Context, token, method, path string, body io.Reader, contentType string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.Header, statusError(resp.StatusCode, data)
	}
	return data, resp.Header, nil
}

// statusError converts a non-2xx response into a sentinel-wrapped error,
// surfacing the backend's {"error": "..."} message when present.
func statusError(status int, body []byte) error {
	msg := errorMessage(body)
	switch status {
	case http.StatusUnauthorized:
		if msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrUnauthenticated, msg)
		}
		return domain.ErrUnauthenticated
	case http.StatusNotFound:
		if msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
		}
		return domain.ErrNotFound
	}
	if msg == "" {
		msg = snippet(body)
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrBackend, status, msg)
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
