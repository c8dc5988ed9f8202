// This file implements utilities for parsing and validating request data:
// pagination, query aliases and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cotizador/internal/core"
	"cotizador/internal/storage"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes = 10 << 20
)

// PageParams holds the parsed page and limit query parameters.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) Storage() storage.Page {
	return storage.Page{Page: p.Page, Limit: p.Limit}
}

// ParsePageParams reads page (>=1, default 1) and limit (1..100, default 10).
func ParsePageParams(q url.Values) (PageParams, error) {
	p := PageParams{Page: DefaultPage, Limit: DefaultLimit}
	ve := &core.ValidationError{Fields: map[string]string{}}

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			ve.Fields["page"] = "must be a positive integer"
		} else {
			p.Page = n
		}
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			ve.Fields["limit"] = fmt.Sprintf("must be an integer between 1 and %d", MaxLimit)
		} else {
			p.Limit = n
		}
	}
	if len(ve.Fields) > 0 {
		return PageParams{}, ve
	}
	return p, nil
}

// queryParam returns the first non-empty value among names, so that
// English names and their Spanish aliases are both accepted.
func queryParam(q url.Values, names ...string) string {
	for _, n := range names {
		if v := sanitizeInput(q.Get(n)); v != "" {
			return v
		}
	}
	return ""
}

// parseOptionalBool reads a boolean filter; absent means no filter.
func parseOptionalBool(q url.Values, names ...string) (*bool, error) {
	v := strings.ToLower(queryParam(q, names...))
	switch v {
	case "":
		return nil, nil
	case "true", "1", "yes", "si", "sí":
		b := true
		return &b, nil
	case "false", "0", "no":
		b := false
		return &b, nil
	default:
		return nil, core.NewValidationError(names[0], "must be true or false")
	}
}

// parseIntParam reads an optional integer query value.
func parseIntParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// decodeJSON reads a single JSON object from the body into dst. Bodies must
// be application/json and at most MaxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return core.NewValidationError("body", "content type must be application/json")
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return core.NewValidationError("body", "must not exceed 10 MiB")
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "must not be empty")
		case errors.As(err, &syntaxErr):
			return core.NewValidationError("body", fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return core.NewValidationError(field, fmt.Sprintf("must be of type %s", typeErr.Type))
		default:
			return core.NewValidationError("body", "malformed JSON")
		}
	}
	if dec.More() {
		return core.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
