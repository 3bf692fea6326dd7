package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"smartcart/internal/core"
	"smartcart/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP statuses: validation failures are
// 422, unknown or foreign resources 404, lifecycle and concurrency
// violations 409. Anything else is a 500 with the detail kept out of the
// response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, core.ErrListNotActive), errors.Is(err, core.ErrListNotCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "concurrent modification, retry"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid X-User-ID"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// --- wire shapes: amounts travel as decimal strings ---

type listJSON struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	PlannedBudget string  `json:"planned_budget"`
	TotalSpent    string  `json:"total_spent"`
	Remaining     string  `json:"remaining_budget"`
	BudgetPercent float64 `json:"budget_percentage"`
	Status        string  `json:"status"`
	Notes         string  `json:"notes,omitempty"`
	ItemsCount    int     `json:"items_count"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	CompletedAt   string  `json:"completed_at,omitempty"`

	Items []itemJSON `json:"items,omitempty"`
}

type itemJSON struct {
	ID        int64  `json:"id"`
	ListID    int64  `json:"list_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  string `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	IsChecked bool   `json:"is_checked"`
	Notes     string `json:"notes,omitempty"`
}

type methodJSON struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"method_type"`
	Available string `json:"available_balance"`
	IsActive  bool   `json:"is_active"`
}

func renderList(l core.ShoppingList) listJSON {
	out := listJSON{
		ID:            l.ID,
		Name:          l.Name,
		PlannedBudget: l.PlannedBudget.String(),
		TotalSpent:    l.TotalSpent.String(),
		Remaining:     l.RemainingBudget().String(),
		BudgetPercent: l.BudgetPercentage(),
		Status:        string(l.Status),
		Notes:         l.Notes,
		ItemsCount:    l.ItemsCount,
		CreatedAt:     l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     l.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if l.CompletedAt != nil {
		out.CompletedAt = l.CompletedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func renderListDetail(d services.ListDetail) listJSON {
	out := renderList(d.List)
	out.ItemsCount = len(d.Items)
	out.Items = make([]itemJSON, len(d.Items))
	for i, it := range d.Items {
		out.Items[i] = renderItem(it)
	}
	return out
}

func renderItem(it core.ShoppingItem) itemJSON {
	return itemJSON{
		ID:        it.ID,
		ListID:    it.ListID,
		Name:      it.Name,
		UnitPrice: it.UnitPrice.String(),
		Quantity:  it.Quantity.String(),
		Subtotal:  core.Subtotal(it.UnitPrice, it.Quantity).String(),
		IsChecked: it.IsChecked,
		Notes:     it.Notes,
	}
}

func renderMethod(m core.PaymentMethod) methodJSON {
	return methodJSON{
		ID:        m.ID,
		Name:      m.Name,
		Type:      string(m.Type),
		Available: m.Available.String(),
		IsActive:  m.IsActive,
	}
}
