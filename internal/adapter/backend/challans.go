package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
)

// Image is one attachment uploaded alongside a challan form.
type Image struct {
	Filename string
	Content  io.Reader
}

// ListChallans fetches the tenant's full challan collection. The backend
// answers with either a bare array or an object wrapping a "challans"
// array; both are accepted. A 2xx response whose body is not JSON means a
// gateway or proxy answered in the backend's place, reported as
// domain.ErrGateway.
func (c *Client) ListChallans(ctx context.Context, token string) ([]challan.Challan, error) {
	data, header, err := c.do(ctx, token, http.MethodGet, "/challans", nil, "")
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(header.Get("Content-Type"))
	if mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
		return nil, fmt.Errorf("%w: content-type %q", domain.ErrGateway, header.Get("Content-Type"))
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []challan.Challan
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("unmarshal challan list: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Challans []challan.Challan `json:"challans"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal challan list: %w", err)
	}
	return wrapped.Challans, nil
}

// GetChallan fetches a single challan by its number.
func (c *Client) GetChallan(ctx context.Context, token, id string) (*challan.Challan, error) {
	var out struct {
		Challan *challan.Challan `json:"challan"`
	}
	if err := c.doJSON(ctx, token, http.MethodGet, "/challan/"+id, nil, &out); err != nil {
		return nil, err
	}
	if out.Challan == nil {
		return nil, fmt.Errorf("%w: challan %s", domain.ErrNotFound, id)
	}
	return out.Challan, nil
}

// CreateChallan submits a new challan as multipart form data: the form
// JSON under the "data" field plus any attached images.
func (c *Client) CreateChallan(ctx context.Context, token string, form challan.Form, images []Image) (*challan.Challan, error) {
	return c.submitChallan(ctx, token, http.MethodPost, "/challan", form, images)
}

// UpdateChallan overwrites an existing challan with the same multipart
// shape as CreateChallan.
func (c *Client) UpdateChallan(ctx context.Context, token, id string, form challan.Form, images []Image) (*challan.Challan, error) {
	return c.submitChallan(ctx, token, http.MethodPut, "/challan/"+id, form, images)
}

func (c *Client) submitChallan(ctx context.Context, token, method, path string, form challan.Form, images []Image) (*challan.Challan, error) {
	var buf bytes.Buffer
	mw, err := newMultipart(&buf)
	if err != nil {
		return nil, err
	}
	if err := mw.addJSON("data", form); err != nil {
		return nil, err
	}
	for _, img := range images {
		if err := mw.addFile("images", img.Filename, img.Content); err != nil {
			return nil, fmt.Errorf("encode image %s: %w", img.Filename, err)
		}
	}
	if err := mw.close(); err != nil {
		return nil, err
	}

	data, _, err := c.do(ctx, token, method, path, &buf, mw.contentType())
	if err != nil {
		return nil, err
	}
	var out struct {
		Challan *challan.Challan `json:"challan"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal challan response: %w", err)
	}
	if out.Challan == nil {
		out.Challan = &challan.Challan{}
	}
	return out.Challan, nil
}

// ResendPDF asks the backend to regenerate and re-send the challan PDF.
// This is a bodiless PUT on the challan resource; it does not modify the
// record itself.
func (c *Client) ResendPDF(ctx context.Context, token, id string) error {
	_, _, err := c.do(ctx, token, http.MethodPut, "/challan/"+id, nil, "")
	return err
}

// DeleteChallan removes a challan.
func (c *Client) DeleteChallan(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, token, http.MethodDelete, "/challan/"+id, nil, nil)
}

// SendOTP triggers delivery-confirmation OTP dispatch to the customer.
func (c *Client) SendOTP(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, token, http.MethodPost, "/challan/"+id+"/send_otp", nil, nil)
}

// VerifyOTP submits the customer's OTP and returns the backend's outcome
// message. A wrong code surfaces as an error.
func (c *Client) VerifyOTP(ctx context.Context, token, id, otp string) (string, error) {
	body := map[string]string{"otp": otp}
	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, token, http.MethodPost, "/challan/"+id+"/verify_otp", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
