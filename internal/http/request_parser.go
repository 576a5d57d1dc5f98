// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form-encoded; query strings select listing and
// summary options.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// maxBodyBytes bounds JSON and form bodies. Photo uploads have their own limit.
const maxBodyBytes = 64 << 10

var ErrBodyTooLarge = errors.New("request body too large")

// SummaryParams holds the parsed window and granularity of a summary query.
type SummaryParams struct {
	Window      core.Window
	Granularity core.Granularity
}

// ParseSummaryParams reads window and granularity from the query string.
// Missing values default to all time and daily buckets.
func ParseSummaryParams(query url.Values) (SummaryParams, error) {
	w, err := core.ParseWindow(query.Get("window"))
	if err != nil {
		return SummaryParams{}, err
	}
	g, err := core.ParseGranularity(query.Get("granularity"))
	if err != nil {
		return SummaryParams{}, err
	}
	return SummaryParams{Window: w, Granularity: g}, nil
}

// ParseListOptions reads type, sort and dir from the query string.
func ParseListOptions(query url.Values) (services.ListOptions, error) {
	var opts services.ListOptions

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return opts, err
		}
		opts.Type = t
	}
	if v := strings.TrimSpace(query.Get("sort")); v != "" {
		field, err := core.ParseSortField(v)
		if err != nil {
			return opts, err
		}
		opts.Sort = field
		opts.Desc = true
	}
	switch strings.ToLower(strings.TrimSpace(query.Get("dir"))) {
	case "":
	case "asc":
		opts.Desc = false
	case "desc":
		opts.Desc = true
	default:
		return opts, core.ErrUnknownSortField
	}
	return opts, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = ErrBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetRaw returns the value without trimming. Passwords keep their spaces.
func (p *RequestBodyParser) GetRaw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// TransactionForm maps the body onto a create or edit form.
func (p *RequestBodyParser) TransactionForm() services.TransactionForm {
	return services.TransactionForm{
		Description:    p.Get("description"),
		Amount:         p.Get("amount"),
		Type:           p.Get("type"),
		Date:           p.Get("date"),
		Category:       p.Get("category"),
		CustomCategory: p.Get("customCategory"),
	}
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
