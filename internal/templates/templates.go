// Package templates renders the HTML pages shown in the user's browser at
// the end of an OAuth2 redirect.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed html/*.html
var content embed.FS

// TemplateError wraps a rendering failure
type TemplateError struct {
	Cause   error
	Message string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

// Templates manages the HTML templates
type Templates struct {
	connected *template.Template
	error     *template.Template
}

// LoadTemplates parses all embedded templates
func LoadTemplates() (*Templates, error) {
	t := &Templates{}
	var err error

	if t.connected, err = template.ParseFS(content, "html/layout.html", "html/connected.html"); err != nil {
		return nil, &TemplateError{Cause: err, Message: "parsing connected page"}
	}
	if t.error, err = template.ParseFS(content, "html/layout.html", "html/error.html"); err != nil {
		return nil, &TemplateError{Cause: err, Message: "parsing error page"}
	}
	return t, nil
}

// ConnectedData holds data for the connection confirmation page
type ConnectedData struct {
	ProviderName     string
	AutoCloseSeconds int
}

// AutoCloseMillis returns the auto-close delay in milliseconds
func (d ConnectedData) AutoCloseMillis() int {
	return d.AutoCloseSeconds * 1000
}

// RenderConnected writes the connection confirmation page with status 200
func (t *Templates) RenderConnected(w http.ResponseWriter, data ConnectedData) error {
	return render(w, t.connected, http.StatusOK, data)
}

// ErrorData holds data for the error page
type ErrorData struct {
	Title   string
	Message string
}

// RenderError writes the error page with the given status
func (t *Templates) RenderError(w http.ResponseWriter, status int, data ErrorData) error {
	return render(w, t.error, status, data)
}

// render executes into a buffer first so a failed render never leaves a
// half-written page behind
func render(w http.ResponseWriter, tmpl *template.Template, status int, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return &TemplateError{Cause: err, Message: "rendering " + tmpl.Name()}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
