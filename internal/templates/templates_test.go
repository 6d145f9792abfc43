package templates

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func setupTemplates(t *testing.T) *Templates {
	t.Helper()
	templates, err := LoadTemplates()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	return templates
}

func TestRenderConnected(t *testing.T) {
	tests := []struct {
		name        string
		data        ConnectedData
		wantContain []string
		wantMissing []string
	}{
		{
			name:        "with auto close",
			data:        ConnectedData{ProviderName: "SmartThings", AutoCloseSeconds: 3},
			wantContain: []string{"Successfully Connected!", "Your SmartThings account has been connected.", "window.close()", "3000"},
		},
		{
			name:        "without auto close",
			data:        ConnectedData{ProviderName: "Google Home"},
			wantContain: []string{"Your Google Home account has been connected."},
			wantMissing: []string{"window.close()"},
		},
		{
			name:        "escapes provider name",
			data:        ConnectedData{ProviderName: "<script>alert(1)</script>"},
			wantContain: []string{"&lt;script&gt;alert(1)&lt;/script&gt;"},
			wantMissing: []string{"<script>alert(1)</script>"},
		},
	}

	tmpl := setupTemplates(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := tmpl.RenderConnected(rec, tt.data); err != nil {
				t.Fatalf("RenderConnected() error = %v", err)
			}

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
			body := rec.Body.String()
			for _, s := range tt.wantContain {
				if !strings.Contains(body, s) {
					t.Errorf("body missing %q", s)
				}
			}
			for _, s := range tt.wantMissing {
				if strings.Contains(body, s) {
					t.Errorf("body unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestRenderError(t *testing.T) {
	tmpl := setupTemplates(t)
	rec := httptest.NewRecorder()

	err := tmpl.RenderError(rec, http.StatusBadRequest, ErrorData{
		Title:   "Authorization Failed",
		Message: "access_denied",
	})
	if err != nil {
		t.Fatalf("RenderError() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := rec.Body.String()
	for _, s := range []string{"<title>Authorization Failed</title>", "access_denied"} {
		if !strings.Contains(body, s) {
			t.Errorf("body missing %q", s)
		}
	}
}

func TestTemplateError(t *testing.T) {
	cause := errors.New("original error")
	err := &TemplateError{Cause: cause, Message: "template failed"}

	want := "template error: template failed: original error"
	if got := err.Error(); got != want {
		t.Errorf("TemplateError.Error() = %q, want %q", got, want)
	}
	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("errors.Unwrap() = %v, want %v", unwrapped, cause)
	}
}
