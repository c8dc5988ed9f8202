package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cotizador/internal/core"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		want      PageParams
		badFields []string
	}{
		{"defaults", "", PageParams{Page: 1, Limit: 10}, nil},
		{"explicit", "page=3&limit=25", PageParams{Page: 3, Limit: 25}, nil},
		{"max limit", "limit=100", PageParams{Page: 1, Limit: 100}, nil},
		{"zero page", "page=0", PageParams{}, []string{"page"}},
		{"limit too large", "limit=101", PageParams{}, []string{"limit"}},
		{"both invalid", "page=x&limit=-1", PageParams{}, []string{"page", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePageParams(q)
			if len(tt.badFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("got %+v, want %+v", got, tt.want)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			for _, f := range tt.badFields {
				if ve.Fields[f] == "" {
					t.Fatalf("missing field %q in %v", f, ve.Fields)
				}
			}
		})
	}
}

func TestQueryParamAliases(t *testing.T) {
	q := url.Values{"estado": {" sent "}, "client": {""}, "cliente": {"ACME"}}
	if got := queryParam(q, "status", "estado"); got != "sent" {
		t.Fatalf("status alias=%q", got)
	}
	if got := queryParam(q, "client", "cliente"); got != "ACME" {
		t.Fatalf("client alias=%q", got)
	}
	if got := queryParam(q, "search"); got != "" {
		t.Fatalf("absent=%q", got)
	}
}

func TestParseOptionalBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "1": true, "si": true, "false": false, "0": false} {
		got, err := parseOptionalBool(url.Values{"activo": {in}}, "active", "activo")
		if err != nil || got == nil || *got != want {
			t.Fatalf("%q: got %v err %v", in, got, err)
		}
	}

	got, err := parseOptionalBool(url.Values{}, "active")
	if err != nil || got != nil {
		t.Fatalf("absent: got %v err %v", got, err)
	}

	if _, err := parseOptionalBool(url.Values{"active": {"maybe"}}, "active"); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseIntParam(t *testing.T) {
	n, err := parseIntParam(url.Values{}, "limit", 10)
	if err != nil || n != 10 {
		t.Fatalf("default: %d %v", n, err)
	}
	n, err = parseIntParam(url.Values{"limit": {"7"}}, "limit", 10)
	if err != nil || n != 7 {
		t.Fatalf("explicit: %d %v", n, err)
	}
	if _, err := parseIntParam(url.Values{"limit": {"seven"}}, "limit", 10); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     string
	}{
		{"valid", "application/json", `{"name":"Cement","quantity":2}`, ""},
		{"charset", "application/json; charset=utf-8", `{"name":"Cement"}`, ""},
		{"no content type", "", `{"name":"Cement"}`, ""},
		{"form content type", "application/x-www-form-urlencoded", `name=x`, "content type"},
		{"empty", "application/json", ``, "must not be empty"},
		{"malformed", "application/json", `{"name":`, "malformed JSON"},
		{"wrong type", "application/json", `{"quantity":"two"}`, "must be of type"},
		{"trailing", "application/json", `{"name":"a"}{"name":"b"}`, "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			var dst payload
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.Name != "Cement" {
					t.Fatalf("name=%q", dst.Name)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, msg := range ve.Fields {
				if strings.Contains(msg, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Fatalf("error %v does not mention %q", ve.Fields, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSONTooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	var dst map[string]any
	err := decodeJSON(httptest.NewRecorder(), req, &dst)
	var ve *core.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Fields["body"], "10 MiB") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  AC\x00ME\t "); got != "ACME" {
		t.Fatalf("got %q", got)
	}
}
