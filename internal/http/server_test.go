package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/blob"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/feed"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

type testServer struct {
	srv   *Server
	store *memory.Store
	hub   *feed.Hub
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	logger := applog.New(applog.Config{Output: io.Discard})
	store := memory.New()

	blobs, err := blob.NewLocalStore(t.TempDir(), "http://localhost/blobs")
	if err != nil {
		t.Fatalf("local blob store: %v", err)
	}

	hub := feed.NewHub(store, nil, logger)
	t.Cleanup(hub.Close)

	builtins := core.Builtins{
		core.Expense: {"Food", "Bills"},
		core.Income:  {"Salary"},
	}
	profiles := services.NewProfileService(store, blobs, builtins, logger)
	notifier := services.NewNotifier(hub, nil, nil, logger)
	analytics := services.NewAnalyticsService(store, cache.NewLRUCache[core.Summary](50, time.Minute), nil, logger)
	hub.OnChange(analytics.Invalidate)

	auth := identity.NewPasswordAuthenticator(store,
		identity.NewJWTManager("test-secret-key-that-is-long-enough-123", time.Hour), logger).
		WithCost(bcrypt.MinCost)

	srv := NewServer(":0", Deps{
		Auth:               auth,
		Transactions:       services.NewTransactionService(store, profiles, notifier, nil, logger),
		Profiles:           profiles,
		Analytics:          analytics,
		Feed:               hub,
		Logger:             logger,
		BlobHandler:        blobs.Handler(),
		Ready:              func(context.Context) error { return nil },
		RateLimitPerMinute: rateLimit,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testServer{srv: srv, store: store, hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	switch {
	case strings.HasPrefix(body, "{"):
		req.Header.Set("Content-Type", "application/json")
	case body != "":
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) signUp(t *testing.T, email string) identity.Session {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "",
		`{"name":"Ada","email":"`+email+`","password":"secret1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rr.Code, rr.Body.String())
	}
	var session identity.Session
	decode(t, rr, &session)
	if session.Token == "" || session.UserID == "" {
		t.Fatalf("signup returned empty session: %+v", session)
	}
	return session
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, 100)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}
}

func TestReadyReportsFailure(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.srv.deps.Ready = func(context.Context) error { return io.ErrUnexpectedEOF }

	rr := ts.do(t, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, 100)
	session := ts.signUp(t, "ada@example.com")

	rr := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", `{"email":"ADA@example.com","password":"secret1"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status=%d, want 409", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", `{"email":"bob@example.com","password":"123"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("weak password status=%d, want 400", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/signin", "", `{"email":"ada@example.com","password":"wrong!!"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad signin status=%d, want 401", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/signin", "", "email=ada%40example.com&password=secret1")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/profile", session.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("profile status=%d", rr.Code)
	}
	var profile profileView
	decode(t, rr, &profile)
	if profile.Name != "Ada" || profile.Email != "ada@example.com" || profile.PhotoURL != nil {
		t.Errorf("profile = %+v", profile)
	}
	if got := profile.CustomCategories["expense"]; got == nil || len(got) != 0 {
		t.Errorf("customCategories.expense = %v, want empty list", got)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/signout", session.Token, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("signout status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodGet, "/api/v1/profile", session.Token, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status=%d, want 401", rr.Code)
	}
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t, 100)
	session := ts.signUp(t, "ada@example.com")

	rr := ts.do(t, http.MethodPost, "/api/v1/auth/password", session.Token, `{"password":"12"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("weak password status=%d, want 400", rr.Code)
	}
	rr = ts.do(t, http.MethodPost, "/api/v1/auth/password", session.Token, `{"password":"another1"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("change password status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodPost, "/api/v1/auth/signin", "", `{"email":"ada@example.com","password":"another1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("signin with new password status=%d", rr.Code)
	}
}

func TestRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, 100)
	for _, tc := range []struct{ method, path, token string }{
		{http.MethodGet, "/api/v1/transactions", ""},
		{http.MethodGet, "/api/v1/summary", "not-a-jwt"},
		{http.MethodPost, "/api/v1/transactions", ""},
	} {
		rr := ts.do(t, tc.method, tc.path, tc.token, "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status=%d, want 401", tc.method, tc.path, rr.Code)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.signUp(t, "ada@example.com").Token

	rr := ts.do(t, http.MethodPost, "/api/v1/transactions", token,
		`{"description":"Climbing","amount":"25,5","type":"expense","date":"2024-03-01","category":"Custom","customCategory":"  Gym "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created transactionView
	decode(t, rr, &created)
	if created.ID == "" || created.Category != "Gym" || created.AmountCents != 2550 || created.Amount != "25.50" {
		t.Fatalf("created = %+v", created)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/transactions/"+created.ID {
		t.Errorf("Location = %q", loc)
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/categories?type=expense", token, "")
	var cats categoriesView
	decode(t, rr, &cats)
	want := []string{"Bills", "Food", "Gym", core.CustomSentinel}
	if strings.Join(cats.Categories, ",") != strings.Join(want, ",") {
		t.Errorf("categories = %v, want %v", cats.Categories, want)
	}

	rr = ts.do(t, http.MethodPut, "/api/v1/transactions/"+created.ID, token,
		`{"description":"Climbing gym","amount":"30","type":"expense","date":"2024-03-02","category":"Gym"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated transactionView
	decode(t, rr, &updated)
	if updated.ID != created.ID || updated.Description != "Climbing gym" || updated.Date != "2024-03-02" {
		t.Errorf("updated = %+v", updated)
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/transactions?type=expense&sort=amount", token, "")
	var list struct {
		Transactions []transactionView `json:"transactions"`
	}
	decode(t, rr, &list)
	if len(list.Transactions) != 1 || list.Transactions[0].AmountCents != 3000 {
		t.Fatalf("list = %+v", list.Transactions)
	}

	rr = ts.do(t, http.MethodDelete, "/api/v1/transactions/"+created.ID, token, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodGet, "/api/v1/transactions/"+created.ID, token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d, want 404", rr.Code)
	}
}

func TestTransactionsAreScopedToUser(t *testing.T) {
	ts := newTestServer(t, 100)
	ada := ts.signUp(t, "ada@example.com").Token
	bob := ts.signUp(t, "bob@example.com").Token

	rr := ts.do(t, http.MethodPost, "/api/v1/transactions", ada,
		`{"description":"Rent","amount":"500","type":"expense","date":"2024-03-01","category":"Bills"}`)
	var created transactionView
	decode(t, rr, &created)

	if rr := ts.do(t, http.MethodDelete, "/api/v1/transactions/"+created.ID, bob, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status=%d, want 404", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/api/v1/transactions/"+created.ID, ada, ""); rr.Code != http.StatusOK {
		t.Fatalf("owner get status=%d", rr.Code)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.signUp(t, "ada@example.com").Token

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"bad amount", `{"description":"x","amount":"abc","type":"expense","date":"2024-03-01","category":"Custom","customCategory":"Gym"}`, "invalid_amount"},
		{"negative amount", `{"description":"x","amount":"-5","type":"expense","date":"2024-03-01","category":"Food"}`, "invalid_amount"},
		{"missing description", `{"description":" ","amount":"5","type":"expense","date":"2024-03-01","category":"Food"}`, "missing_field"},
		{"empty custom", `{"description":"x","amount":"5","type":"expense","date":"2024-03-01","category":"Custom","customCategory":"  "}`, "missing_category"},
		{"bad date", `{"description":"x","amount":"5","type":"expense","date":"2024-02-30","category":"Food"}`, "invalid_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/api/v1/transactions", token, tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d, want 422 (body %s)", rr.Code, rr.Body.String())
			}
			var body ErrorBody
			decode(t, rr, &body)
			if body.Code != tt.wantCode {
				t.Errorf("error = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}

	rr := ts.do(t, http.MethodGet, "/api/v1/profile", token, "")
	var profile profileView
	decode(t, rr, &profile)
	if len(profile.CustomCategories["expense"]) != 0 {
		t.Errorf("rejected form promoted a custom category: %v", profile.CustomCategories)
	}

	if rr := ts.do(t, http.MethodPost, "/api/v1/transactions", token, `{"description":`); rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status=%d, want 400", rr.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.signUp(t, "ada@example.com").Token

	for _, body := range []string{
		`{"description":"Pay","amount":"1000","type":"income","date":"2024-01-01","category":"Salary"}`,
		`{"description":"Groceries","amount":"300","type":"expense","date":"2024-01-02","category":"Food"}`,
		`{"description":"Power","amount":"200","type":"expense","date":"2024-01-02","category":"Bills"}`,
	} {
		if rr := ts.do(t, http.MethodPost, "/api/v1/transactions", token, body); rr.Code != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := ts.do(t, http.MethodGet, "/api/v1/summary?window=all", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var sum summaryView
	decode(t, rr, &sum)
	if sum.TotalIncome != 100000 || sum.TotalExpense != 50000 || sum.Balance != 50000 || sum.Count != 3 {
		t.Errorf("summary totals = %+v", sum)
	}
	if len(sum.Series) != 2 || sum.Series[0].Expense != 0 || sum.Series[1].Expense != 50000 {
		t.Errorf("series = %+v", sum.Series)
	}
	if len(sum.Expense) != 2 || sum.Expense[0].Category != "Food" {
		t.Errorf("expense breakdown = %+v", sum.Expense)
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/dashboard", token, "")
	var dash dashboardView
	decode(t, rr, &dash)
	if len(dash.Recent) != 3 || dash.Recent[0].Date != "2024-01-02" {
		t.Errorf("recent = %+v", dash.Recent)
	}

	if rr := ts.do(t, http.MethodGet, "/api/v1/summary?window=90d", token, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad window status=%d, want 400", rr.Code)
	}
}

func TestUploadPhoto(t *testing.T) {
	ts := newTestServer(t, 100)
	session := ts.signUp(t, "ada@example.com")

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile/photo", strings.NewReader(string(jpeg)))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Content-Type", "image/jpeg")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out map[string]string
	decode(t, rr, &out)
	wantURL := "http://localhost/blobs/users/" + session.UserID + "/avatar.jpg"
	if out["photoURL"] != wantURL {
		t.Fatalf("photoURL = %q, want %q", out["photoURL"], wantURL)
	}

	rr = ts.do(t, http.MethodGet, "/blobs/users/"+session.UserID+"/avatar.jpg", "", "")
	if rr.Code != http.StatusOK || rr.Body.Len() != len(jpeg) {
		t.Fatalf("blob get status=%d len=%d", rr.Code, rr.Body.Len())
	}

	rr = ts.do(t, http.MethodPut, "/api/v1/profile/photo", session.Token, "plain text is not an image")
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("text upload status=%d, want 415", rr.Code)
	}
}

func TestUpdateProfileName(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.signUp(t, "ada@example.com").Token

	rr := ts.do(t, http.MethodPatch, "/api/v1/profile", token, `{"name":"  Ada L. "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status=%d", rr.Code)
	}
	var profile profileView
	decode(t, rr, &profile)
	if profile.Name != "Ada L." {
		t.Errorf("name = %q", profile.Name)
	}

	if rr := ts.do(t, http.MethodPatch, "/api/v1/profile", token, `{"name":" "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty name status=%d, want 422", rr.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	ts := newTestServer(t, 1)

	ts.signUp(t, "ada@example.com")
	rr := ts.do(t, http.MethodPost, "/api/v1/auth/signin", "", `{"email":"ada@example.com","password":"secret1"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rr := ts.do(t, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	ts := newTestServer(t, 100)
	if rr := ts.do(t, http.MethodGet, "/api/v1/../.env", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestStreamSendsSnapshots(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.signUp(t, "ada@example.com").Token

	httpSrv := httptest.NewServer(ts.srv.Handler)
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/api/v1/transactions/stream?window=all", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := httpSrv.Client().Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := bufio.NewReader(resp.Body)
	first := readSnapshot(t, events)
	if len(first.Transactions) != 0 || first.Summary == nil {
		t.Fatalf("first snapshot = %+v", first)
	}

	rr := ts.do(t, http.MethodPost, "/api/v1/transactions", token,
		`{"description":"Coffee","amount":"2.40","type":"expense","date":"2024-03-01","category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rr.Code)
	}

	next := readSnapshot(t, events)
	if len(next.Transactions) != 1 || next.Transactions[0].Description != "Coffee" {
		t.Fatalf("next snapshot = %+v", next)
	}
	if next.Version <= first.Version {
		t.Errorf("version did not advance: %d -> %d", first.Version, next.Version)
	}
	if next.Summary.TotalExpense != 240 {
		t.Errorf("summary expense = %d, want 240", next.Summary.TotalExpense)
	}
}

// readSnapshot reads lines up to the next blank line and decodes the data field.
func readSnapshot(t *testing.T, r *bufio.Reader) snapshotView {
	t.Helper()
	var data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if data != "" {
				break
			}
			continue
		}
		if after, ok := strings.CutPrefix(line, "data: "); ok {
			data = after
		}
	}
	var snap snapshotView
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		t.Fatalf("decode snapshot %q: %v", data, err)
	}
	return snap
}

func TestShutdownEndsOpenStreams(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.signUp(t, "ada@example.com").Token

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- ts.srv.Serve(ln) }()

	req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/transactions/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()
	readSnapshot(t, bufio.NewReader(resp.Body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := ts.srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with an open stream: %v after %s", err, time.Since(start))
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("serve returned %v", err)
	}
}
