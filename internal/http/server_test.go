package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"smartcart/internal/services"
	"smartcart/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0",
		services.NewListService(repo, nil),
		services.NewPaymentService(repo),
		services.NewAnalyticsService(repo))
	t.Cleanup(func() { srv.cacheManager.Stop(); srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID > 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, 0, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/lists", 0, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing X-User-ID = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	req.Header.Set("X-User-ID", "not-a-number")
	recorder := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("malformed X-User-ID = %d, want 401", recorder.Code)
	}
}

func TestListLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	const uid = 1

	// create
	rec := doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{
		"name": "Weekly Groceries", "planned_budget": "100.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create list = %d: %s", rec.Code, rec.Body.String())
	}
	var created listJSON
	decodeInto(t, rec, &created)
	if created.Status != "active" || created.PlannedBudget != "100.00" {
		t.Errorf("unexpected created list: %+v", created)
	}

	// add items
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", created.ID), uid, map[string]string{
		"name": "Rice", "unit_price": "25.90", "quantity": "1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", created.ID), uid, map[string]string{
		"name": "Beans", "unit_price": "8.50", "quantity": "2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item = %d: %s", rec.Code, rec.Body.String())
	}

	// derived totals on GET
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/lists/%d", created.ID), uid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get list = %d", rec.Code)
	}
	var detail listJSON
	decodeInto(t, rec, &detail)
	if detail.TotalSpent != "42.90" || detail.Remaining != "57.10" {
		t.Errorf("totals = (%s, %s), want (42.90, 57.10)", detail.TotalSpent, detail.Remaining)
	}
	if detail.BudgetPercent != 42.9 {
		t.Errorf("budget percent = %v, want 42.9", detail.BudgetPercent)
	}
	if len(detail.Items) != 2 || detail.Items[1].Subtotal != "17.00" {
		t.Errorf("unexpected items: %+v", detail.Items)
	}

	// active list endpoint finds it
	rec = doJSON(t, srv, http.MethodGet, "/api/lists/active", uid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active list = %d", rec.Code)
	}

	// complete without a method
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/complete", created.ID), uid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body.String())
	}
	var completion completeListResponse
	decodeInto(t, rec, &completion)
	if completion.List.Status != "completed" || completion.InsufficientFunds {
		t.Errorf("unexpected completion: %+v", completion)
	}

	// no active list anymore
	rec = doJSON(t, srv, http.MethodGet, "/api/lists/active", uid, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("active list after completion = %d, want 404", rec.Code)
	}

	// mutating the completed list conflicts
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", created.ID), uid, map[string]string{
		"name": "Late", "unit_price": "1.00",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("add item to completed list = %d, want 409", rec.Code)
	}

	// status filter
	rec = doJSON(t, srv, http.MethodGet, "/api/lists?status=completed", uid, nil)
	var summaries []listJSON
	decodeInto(t, rec, &summaries)
	if len(summaries) != 1 {
		t.Errorf("completed filter returned %d lists, want 1", len(summaries))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/lists?status=bogus", uid, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", rec.Code)
	}
}

func TestValidationMapsTo422(t *testing.T) {
	srv := newTestServer(t)
	const uid = 1

	rec := doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{
		"name": "Groceries", "planned_budget": "abc",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad budget = %d, want 422", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{"name": "Groceries"})
	var list listJSON
	decodeInto(t, rec, &list)

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", list.ID), uid, map[string]string{
		"name": "Rice", "unit_price": "0",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero price = %d, want 422", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/alert", uid, map[string]int{"alert_percentage": 40})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("alert below 50 = %d, want 422", rec.Code)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/lists", 1, map[string]string{"name": "Mine"})
	var list listJSON
	decodeInto(t, rec, &list)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/lists/%d", list.ID), 2, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get = %d, want 404", rec.Code)
	}
}

func TestPaymentEndpoints(t *testing.T) {
	srv := newTestServer(t)
	const uid = 1

	rec := doJSON(t, srv, http.MethodPost, "/api/payments", uid, map[string]string{
		"method_type": "debit", "opening_balance": "50.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create method = %d: %s", rec.Code, rec.Body.String())
	}
	var method methodJSON
	decodeInto(t, rec, &method)
	if method.Name != "Debit Card" || method.Available != "50.00" {
		t.Errorf("unexpected method: %+v", method)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/payments", uid, map[string]string{"method_type": "plastic"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad method type = %d, want 422", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/payments/%d/add_funds", method.ID), uid, map[string]string{"amount": "10.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add funds = %d", rec.Code)
	}
	decodeInto(t, rec, &method)
	if method.Available != "60.00" {
		t.Errorf("balance = %s, want 60.00", method.Available)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/payments/total_available", uid, nil)
	var total struct {
		TotalAvailable string `json:"total_available"`
		Count          int    `json:"count"`
	}
	decodeInto(t, rec, &total)
	if total.TotalAvailable != "60.00" || total.Count != 1 {
		t.Errorf("total = %s across %d methods, want 60.00 across 1", total.TotalAvailable, total.Count)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/payments/%d", method.ID), uid, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("deactivate = %d, want 204", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/payments", uid, nil)
	var methods []methodJSON
	decodeInto(t, rec, &methods)
	if len(methods) != 0 {
		t.Errorf("active methods after deactivation = %d, want 0", len(methods))
	}
}

func TestCompletionWithSettlementOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	const uid = 1

	rec := doJSON(t, srv, http.MethodPost, "/api/payments", uid, map[string]string{
		"method_type": "cash", "opening_balance": "5.00",
	})
	var method methodJSON
	decodeInto(t, rec, &method)

	rec = doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{"name": "Big Shop"})
	var list listJSON
	decodeInto(t, rec, &list)
	doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", list.ID), uid, map[string]string{
		"name": "Roast", "unit_price": "90.00",
	})

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/complete", list.ID), uid,
		map[string]int64{"payment_method_id": method.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body.String())
	}
	var completion completeListResponse
	decodeInto(t, rec, &completion)
	if !completion.InsufficientFunds {
		t.Error("expected insufficient_funds flag")
	}
	if completion.List.Status != "completed" {
		t.Errorf("status = %s, want completed", completion.List.Status)
	}

	// a second method can be attached after completion
	rec = doJSON(t, srv, http.MethodPost, "/api/payments", uid, map[string]string{
		"method_type": "credit", "opening_balance": "0.00",
	})
	var second methodJSON
	decodeInto(t, rec, &second)
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/payment_methods", list.ID), uid,
		map[string]int64{"payment_method_id": second.ID})
	if rec.Code != http.StatusNoContent {
		t.Errorf("attach method = %d, want 204: %s", rec.Code, rec.Body.String())
	}

	// unknown method id on completion is a 404
	rec = doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{"name": "Another"})
	decodeInto(t, rec, &list)
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/complete", list.ID), uid,
		map[string]int64{"payment_method_id": 9999})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown method = %d, want 404", rec.Code)
	}

	// attaching to a list that is still active is a conflict
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/payment_methods", list.ID), uid,
		map[string]int64{"payment_method_id": method.ID})
	if rec.Code != http.StatusConflict {
		t.Errorf("attach to active list = %d, want 409", rec.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t)
	const uid = 1

	rec := doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{"name": "Shop"})
	var list listJSON
	decodeInto(t, rec, &list)
	doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", list.ID), uid, map[string]string{
		"name": "Rice", "unit_price": "20.00",
	})
	doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/complete", list.ID), uid, nil)

	rec = doJSON(t, srv, http.MethodGet, "/api/analytics/summary", uid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	var summary summaryJSON
	decodeInto(t, rec, &summary)
	if summary.SpentThisMonth != "20.00" || summary.ListsThisMonth != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.History) != 6 {
		t.Errorf("history length = %d, want 6", len(summary.History))
	}

	// completion invalidates the cached summary
	rec = doJSON(t, srv, http.MethodPost, "/api/lists", uid, map[string]string{"name": "Second"})
	decodeInto(t, rec, &list)
	doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", list.ID), uid, map[string]string{
		"name": "Beans", "unit_price": "5.00",
	})
	doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/lists/%d/complete", list.ID), uid, nil)

	rec = doJSON(t, srv, http.MethodGet, "/api/analytics/summary", uid, nil)
	decodeInto(t, rec, &summary)
	if summary.SpentThisMonth != "25.00" {
		t.Errorf("spent after second completion = %s, want 25.00", summary.SpentThisMonth)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/shopping/product_history?name=ri", uid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("product history = %d", rec.Code)
	}
	var records []productRecordJSON
	decodeInto(t, rec, &records)
	if len(records) != 1 || records[0].UnitPrice != "20.00" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)
	const uid = 1

	rec := doJSON(t, srv, http.MethodGet, "/api/settings", uid, nil)
	var settings settingsJSON
	decodeInto(t, rec, &settings)
	if settings.AlertPercentage != 80 {
		t.Errorf("default alert = %d, want 80", settings.AlertPercentage)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/alert", uid, settingsJSON{AlertPercentage: 90})
	if rec.Code != http.StatusOK {
		t.Fatalf("update alert = %d", rec.Code)
	}
	decodeInto(t, rec, &settings)
	if settings.AlertPercentage != 90 {
		t.Errorf("alert = %d, want 90", settings.AlertPercentage)
	}
}
