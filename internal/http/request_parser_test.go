package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestParseSummaryParams(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    SummaryParams
		wantErr error
	}{
		{"defaults", url.Values{}, SummaryParams{Window: core.AllTime, Granularity: core.Daily}, nil},
		{"seven days monthly", url.Values{"window": {"7d"}, "granularity": {"monthly"}}, SummaryParams{Window: core.Last7Days, Granularity: core.Monthly}, nil},
		{"thirty days", url.Values{"window": {"30D"}}, SummaryParams{Window: core.Last30Days, Granularity: core.Daily}, nil},
		{"bad window", url.Values{"window": {"90d"}}, SummaryParams{}, core.ErrInvalidWindow},
		{"bad granularity", url.Values{"granularity": {"weekly"}}, SummaryParams{}, core.ErrInvalidGranularity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSummaryParams(tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseListOptions(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantType core.TransactionType
		wantSort core.SortField
		wantDesc bool
		wantErr  bool
	}{
		{name: "empty", query: url.Values{}},
		{name: "type filter", query: url.Values{"type": {"Income"}}, wantType: core.Income},
		{name: "sort defaults to descending", query: url.Values{"sort": {"amount"}}, wantSort: core.SortByAmount, wantDesc: true},
		{name: "ascending", query: url.Values{"sort": {"category"}, "dir": {"asc"}}, wantSort: core.SortByCategory},
		{name: "bad type", query: url.Values{"type": {"transfer"}}, wantErr: true},
		{name: "bad sort", query: url.Values{"sort": {"color"}}, wantErr: true},
		{name: "bad dir", query: url.Values{"dir": {"sideways"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseListOptions(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.Type != tt.wantType || opts.Sort != tt.wantSort || opts.Desc != tt.wantDesc {
				t.Errorf("got %+v", opts)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": " test ", "amount": 42.5, "password": " secret "}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}

	if name := parser.Get("name"); name != "test" {
		t.Errorf("Get('name') = %q, want 'test'", name)
	}

	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}

	if pw := parser.GetRaw("password"); pw != " secret " {
		t.Errorf("GetRaw('password') = %q, want ' secret '", pw)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	if id := parser.Get("id"); id != "456" {
		t.Errorf("Get('id') = %q, want '456'", id)
	}

	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"id": `))

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := `{"description": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	if err := NewRequestBodyParser(req).Parse(); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("err = %v, want ErrBodyTooLarge", err)
	}
}

func TestRequestBodyParser_TransactionForm(t *testing.T) {
	body := `{"description":"Lunch","amount":"12,50","type":"expense","date":"2024-03-01","category":"Custom","customCategory":"  Gym "}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	form := p.TransactionForm()
	if form.Description != "Lunch" || form.Amount != "12,50" || form.Type != "expense" || form.Date != "2024-03-01" {
		t.Errorf("form = %+v", form)
	}
	if form.Category != core.CustomSentinel || form.CustomCategory != "Gym" {
		t.Errorf("category fields = %q, %q", form.Category, form.CustomCategory)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
