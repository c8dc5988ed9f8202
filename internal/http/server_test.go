package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cotizador/internal/core"
	applog "cotizador/internal/log"
	"cotizador/internal/middleware/ratelimit"
	"cotizador/internal/services"
	"cotizador/internal/storage"
)

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Count      *int              `json:"count"`
	Total      *int              `json:"total"`
	Pagination *Pagination       `json:"pagination"`
	Details    map[string]string `json:"details"`
	Stack      string            `json:"stack"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithLimit(t, ratelimit.Config{Requests: 1000, Window: time.Minute})
}

func newTestServerWithLimit(t *testing.T, rl ratelimit.Config) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	now := func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	cfg := services.DefaultQuoteServiceConfig()
	cfg.Location = time.UTC
	cfg.Now = now

	logger := applog.New(applog.Config{Level: applog.ParseLevel("error"), Output: &bytes.Buffer{}})
	srv := NewServer(":0", Services{
		Materials: services.NewMaterialService(repo, now),
		Quotes:    services.NewQuoteService(repo, nil, cfg),
		Dashboard: services.NewDashboardService(repo, now, time.UTC),
		Store:     repo,
	}, Options{Logger: logger, RateLimit: rl})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v (body=%q)", method, path, err, rr.Body.String())
	}
	return rr, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

func createMaterial(t *testing.T, srv *Server, name string, unit core.Unit, price float64) core.Material {
	t.Helper()
	rr, env := do(t, srv, http.MethodPost, "/api/materials", map[string]any{
		"name": name, "unit": unit, "unitPrice": price,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create material status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decodeData[core.Material](t, env)
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/", "/health", "/readyz"} {
		rr, env := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if !env.Success {
			t.Fatalf("%s success=false", path)
		}
	}

	rr, _ := do(t, srv, http.MethodGet, "/health", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	srv := newTestServer(t)
	rr, env := do(t, srv, http.MethodGet, "/api/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if env.Success || !strings.Contains(env.Error, "/api/nope") {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestMaterialLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cement := createMaterial(t, srv, "Cement", core.UnitKilogram, 15.5)
	if cement.ID == "" || !cement.Active {
		t.Fatalf("unexpected material: %+v", cement)
	}

	rr, env := do(t, srv, http.MethodGet, "/api/materials/"+cement.ID, nil)
	if rr.Code != http.StatusOK || decodeData[core.Material](t, env).Name != "Cement" {
		t.Fatalf("get status=%d", rr.Code)
	}

	active := false
	rr, env = do(t, srv, http.MethodPut, "/api/materials/"+cement.ID, map[string]any{
		"name": "Cement 50kg", "unit": "kg", "unitPrice": 16, "active": active,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decodeData[core.Material](t, env)
	if updated.Name != "Cement 50kg" || updated.Active {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/materials/active", nil)
	if rr.Code != http.StatusOK || env.Count == nil || *env.Count != 0 {
		t.Fatalf("active materials: status=%d count=%v", rr.Code, env.Count)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/materials?activo=false", nil)
	if rr.Code != http.StatusOK || env.Total == nil || *env.Total != 1 {
		t.Fatalf("inactive filter: status=%d total=%v", rr.Code, env.Total)
	}

	rr, _ = do(t, srv, http.MethodDelete, "/api/materials/"+cement.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr, env = do(t, srv, http.MethodGet, "/api/materials/"+cement.ID, nil)
	if rr.Code != http.StatusNotFound || env.Success {
		t.Fatalf("get after delete status=%d", rr.Code)
	}
}

func TestCreateMaterialValidation(t *testing.T) {
	srv := newTestServer(t)

	rr, env := do(t, srv, http.MethodPost, "/api/materials", map[string]any{
		"name": "  ", "unit": "bushel", "unitPrice": -1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if env.Error != "Validation failed" {
		t.Fatalf("error=%q", env.Error)
	}
	for _, field := range []string{"name", "unit", "unitPrice"} {
		if _, ok := env.Details[field]; !ok {
			t.Fatalf("missing detail for %s: %v", field, env.Details)
		}
	}
}

func TestMaterialsPagination(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range []string{"Arena", "Grava", "Cemento", "Varilla", "Bloque"} {
		createMaterial(t, srv, name, core.UnitPiece, 10)
	}

	rr, env := do(t, srv, http.MethodGet, "/api/materials?page=2&limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if env.Pagination == nil || env.Pagination.Page != 2 || env.Pagination.Total != 5 || env.Pagination.Pages != 3 {
		t.Fatalf("pagination=%+v", env.Pagination)
	}
	if items := decodeData[[]core.Material](t, env); len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}

	rr, env = do(t, srv, http.MethodGet, "/api/materials?limit=500", nil)
	if rr.Code != http.StatusBadRequest || env.Details["limit"] == "" {
		t.Fatalf("limit=500 status=%d details=%v", rr.Code, env.Details)
	}
}

func TestQuoteCementScenarioOverAPI(t *testing.T) {
	srv := newTestServer(t)
	cement := createMaterial(t, srv, "Cement", core.UnitKilogram, 15.5)

	rr, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client":  "ACME",
		"project": "Warehouse",
		"lineItems": []map[string]any{
			{"materialRef": cement.ID, "quantity": 500, "unitPrice": 15.5},
		},
		"labor":    map[string]any{"hours": 16, "ratePerHour": 25},
		"painting": map[string]any{"areaSqMeters": 0, "ratePerSqMeter": 15},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	q := decodeData[core.Quote](t, env)
	if q.Number != "COT-202503-001" {
		t.Fatalf("number=%q", q.Number)
	}
	if q.MaterialsSubtotal != 7750 || q.Labor.Total != 400 || q.Painting.Total != 0 || q.GrandTotal != 8150 {
		t.Fatalf("totals: %+v", q)
	}
	if q.Status != core.StatusDraft {
		t.Fatalf("status=%q", q.Status)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/quotes/"+q.ID {
		t.Fatalf("location=%q", loc)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes/"+q.ID, nil)
	if rr.Code != http.StatusOK || decodeData[core.Quote](t, env).GrandTotal != 8150 {
		t.Fatalf("get status=%d", rr.Code)
	}
}

func TestCreateQuoteUnknownMaterial(t *testing.T) {
	srv := newTestServer(t)
	rr, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client":    "ACME",
		"project":   "Warehouse",
		"lineItems": []map[string]any{{"materialRef": "missing", "quantity": 1}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if env.Details["materialRef"] != "missing" {
		t.Fatalf("details=%v", env.Details)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes", nil)
	if rr.Code != http.StatusOK || env.Total == nil || *env.Total != 0 {
		t.Fatalf("nothing should have been stored: total=%v", env.Total)
	}
}

func TestQuoteStatusTransitions(t *testing.T) {
	srv := newTestServer(t)
	m := createMaterial(t, srv, "Paint", core.UnitLiter, 25)
	_, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client": "ACME", "project": "Facade",
		"lineItems": []map[string]any{{"materialRef": m.ID, "quantity": 2}},
	})
	q := decodeData[core.Quote](t, env)
	path := "/api/quotes/" + q.ID + "/status"

	rr, env := do(t, srv, http.MethodPatch, path, map[string]any{"status": "approved"})
	if rr.Code != http.StatusBadRequest || env.Success {
		t.Fatalf("draft->approved status=%d", rr.Code)
	}

	rr, env = do(t, srv, http.MethodPatch, path, map[string]any{"estado": "sent"})
	if rr.Code != http.StatusOK || decodeData[core.Quote](t, env).Status != core.StatusSent {
		t.Fatalf("draft->sent status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr, _ = do(t, srv, http.MethodPatch, path, map[string]any{"status": "approved"})
	if rr.Code != http.StatusOK {
		t.Fatalf("sent->approved status=%d", rr.Code)
	}

	rr, env = do(t, srv, http.MethodPatch, path, map[string]any{"status": "bogus"})
	if rr.Code != http.StatusBadRequest || env.Details["status"] == "" {
		t.Fatalf("bogus status=%d details=%v", rr.Code, env.Details)
	}

	rr, env = do(t, srv, http.MethodPatch, path, map[string]any{})
	if rr.Code != http.StatusBadRequest || env.Details["status"] == "" {
		t.Fatalf("missing status=%d details=%v", rr.Code, env.Details)
	}

	rr, _ = do(t, srv, http.MethodPatch, "/api/quotes/unknown/status", map[string]any{"status": "sent"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown quote status=%d", rr.Code)
	}
}

func TestUpdateQuoteKeepsNumber(t *testing.T) {
	srv := newTestServer(t)
	m := createMaterial(t, srv, "Sand", core.UnitCubicMeter, 100)
	_, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client": "ACME", "project": "Patio",
		"lineItems": []map[string]any{{"materialRef": m.ID, "quantity": 1}},
	})
	q := decodeData[core.Quote](t, env)

	rr, env := do(t, srv, http.MethodPut, "/api/quotes/"+q.ID, map[string]any{
		"client": "ACME", "project": "Patio", "number": "COT-209912-999", "grandTotal": 1,
		"lineItems": []map[string]any{{"materialRef": m.ID, "quantity": 3}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decodeData[core.Quote](t, env)
	if updated.Number != q.Number {
		t.Fatalf("number changed to %q", updated.Number)
	}
	if updated.GrandTotal != 300 {
		t.Fatalf("grandTotal=%v", updated.GrandTotal)
	}
}

func TestQuoteListingFiltersAndAliases(t *testing.T) {
	srv := newTestServer(t)
	m := createMaterial(t, srv, "Block", core.UnitPiece, 2)
	for _, client := range []string{"ACME", "Globex", "ACME"} {
		rr, _ := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
			"client": client, "project": "Wall",
			"lineItems": []map[string]any{{"materialRef": m.ID, "quantity": 10}},
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("create status=%d", rr.Code)
		}
	}

	for _, path := range []string{"/api/quotes?client=ACME", "/api/quotes?cliente=ACME"} {
		rr, env := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK || env.Total == nil || *env.Total != 2 {
			t.Fatalf("%s total=%v", path, env.Total)
		}
	}

	rr, env := do(t, srv, http.MethodGet, "/api/quotes?estado=sent", nil)
	if rr.Code != http.StatusOK || *env.Total != 0 {
		t.Fatalf("estado filter total=%v", env.Total)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes?sort=-number", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("sort status=%d", rr.Code)
	}
	items := decodeData[[]core.Quote](t, env)
	if len(items) != 3 || items[0].Number != "COT-202503-003" {
		t.Fatalf("sorted=%v", items)
	}

	rr, _ = do(t, srv, http.MethodGet, "/api/quotes?sort=bogus", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad sort status=%d", rr.Code)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes/client/Globex", nil)
	if rr.Code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("by client count=%v", env.Count)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes/recent?limit=2", nil)
	if rr.Code != http.StatusOK || *env.Count != 2 {
		t.Fatalf("recent count=%v", env.Count)
	}

	rr, _ = do(t, srv, http.MethodGet, "/api/quotes/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status=%d", rr.Code)
	}
}

func TestDeleteQuote(t *testing.T) {
	srv := newTestServer(t)
	m := createMaterial(t, srv, "Tile", core.UnitSquareMeter, 12)
	_, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client": "ACME", "project": "Bath",
		"lineItems": []map[string]any{{"materialRef": m.ID, "quantity": 4}},
	})
	q := decodeData[core.Quote](t, env)

	rr, _ := do(t, srv, http.MethodDelete, "/api/quotes/"+q.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr, _ = do(t, srv, http.MethodDelete, "/api/quotes/"+q.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	srv := newTestServer(t)
	m := createMaterial(t, srv, "Cement", core.UnitKilogram, 10)
	do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client": "ACME", "project": "Wall",
		"lineItems": []map[string]any{{"materialRef": m.ID, "quantity": 10}},
	})

	for _, path := range []string{"/api/dashboard/stats", "/api/dashboard/summary", "/api/dashboard/recent-activity"} {
		rr, env := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK || !env.Success {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	rr, env := do(t, srv, http.MethodGet, "/api/dashboard/recent-activity?limit=1", nil)
	if rr.Code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("activity count=%v", env.Count)
	}

	for _, limit := range []string{"0", "51", "abc"} {
		rr, _ := do(t, srv, http.MethodGet, "/api/dashboard/recent-activity?limit="+limit, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s status=%d", limit, rr.Code)
		}
	}
}

func TestRateLimitReturns429(t *testing.T) {
	srv := newTestServerWithLimit(t, ratelimit.Config{Requests: 2, Window: time.Hour})
	for i := 0; i < 2; i++ {
		rr, _ := do(t, srv, http.MethodGet, "/health", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr, env := do(t, srv, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusTooManyRequests || env.Success {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestCreateQuoteOverflowingTotalsIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	cement := createMaterial(t, srv, "Cement", core.UnitKilogram, 15.5)

	rr, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client":    "ACME",
		"project":   "Warehouse",
		"lineItems": []map[string]any{{"materialRef": cement.ID, "quantity": 1e200, "unitPrice": 1e200}},
	})
	if rr.Code != http.StatusBadRequest || env.Success {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if env.Details["grandTotal"] == "" {
		t.Fatalf("details=%v", env.Details)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes", nil)
	if rr.Code != http.StatusOK || env.Total == nil || *env.Total != 0 {
		t.Fatalf("nothing should have been stored: status=%d total=%v", rr.Code, env.Total)
	}
}

func TestGetQuoteByNumberRoute(t *testing.T) {
	srv := newTestServer(t)
	_, env := do(t, srv, http.MethodPost, "/api/quotes", map[string]any{
		"client": "ACME", "project": "Facade",
	})
	created := decodeData[core.Quote](t, env)
	if created.Number != "COT-202503-001" {
		t.Fatalf("number=%q", created.Number)
	}

	rr, env := do(t, srv, http.MethodGet, "/api/quotes/number/COT-202503-001", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decodeData[core.Quote](t, env); got.ID != created.ID {
		t.Fatalf("got %s, want %s", got.ID, created.ID)
	}

	rr, _ = do(t, srv, http.MethodGet, "/api/quotes/number/COT-202503-042", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown number status=%d", rr.Code)
	}

	rr, env = do(t, srv, http.MethodGet, "/api/quotes/number/Q-1", nil)
	if rr.Code != http.StatusBadRequest || env.Details["number"] == "" {
		t.Fatalf("bad number status=%d details=%v", rr.Code, env.Details)
	}
}
