package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// multipartBuilder wraps mime/multipart for the backend's form-data
// endpoints: a JSON "data" field plus zero or more file parts.
type multipartBuilder struct {
	w *multipart.Writer
}

func newMultipart(dst io.Writer) (*multipartBuilder, error) {
	return &multipartBuilder{w: multipart.NewWriter(dst)}, nil
}

// addJSON writes a form field holding the JSON encoding of v.
func (m *multipartBuilder) addJSON(field string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s field: %w", field, err)
	}
	return m.w.WriteField(field, string(encoded))
}

// addFile writes one file part.
func (m *multipartBuilder) addFile(field, filename string, content io.Reader) error {
	part, err := m.w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

func (m *multipartBuilder) contentType() string { return m.w.FormDataContentType() }

func (m *multipartBuilder) close() error { return m.w.Close() }
