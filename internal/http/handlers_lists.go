package http

import (
	"net/http"

	"smartcart/internal/core"
)

type createListRequest struct {
	Name          string `json:"name"`
	PlannedBudget string `json:"planned_budget"`
	Notes         string `json:"notes"`
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req createListRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	budget := core.Money{}
	if req.PlannedBudget != "" {
		var err error
		budget, err = core.ParseMoney(req.PlannedBudget)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	list, err := s.lists.CreateList(r.Context(), uid, req.Name, budget, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderList(*list))
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	status := core.ListStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeBadRequest(w, "unknown status filter")
		return
	}

	lists, err := s.lists.Lists(r.Context(), uid, status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]listJSON, len(lists))
	for i, l := range lists {
		out[i] = renderList(l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActiveList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	detail, err := s.lists.ActiveList(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderListDetail(*detail))
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	listID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid list id")
		return
	}

	detail, err := s.lists.GetList(r.Context(), uid, listID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderListDetail(*detail))
}

type completeListRequest struct {
	PaymentMethodID *int64 `json:"payment_method_id"`
}

type completeListResponse struct {
	List              listJSON `json:"list"`
	InsufficientFunds bool     `json:"insufficient_funds"`
}

func (s *Server) handleCompleteList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	listID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid list id")
		return
	}

	var req completeListRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
	}

	completion, err := s.lists.Complete(r.Context(), uid, listID, req.PaymentMethodID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAnalytics(uid)

	writeJSON(w, http.StatusOK, completeListResponse{
		List:              renderList(completion.List),
		InsufficientFunds: completion.InsufficientFunds,
	})
}

type attachMethodRequest struct {
	PaymentMethodID int64 `json:"payment_method_id"`
}

func (s *Server) handleAttachMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	listID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid list id")
		return
	}

	var req attachMethodRequest
	if err := decodeBody(r, &req); err != nil || req.PaymentMethodID <= 0 {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.lists.AttachMethod(r.Context(), uid, listID, req.PaymentMethodID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	listID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid list id")
		return
	}

	list, err := s.lists.Cancel(r.Context(), uid, listID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderList(*list))
}

func (s *Server) handleDuplicateList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	listID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid list id")
		return
	}

	clone, err := s.lists.Duplicate(r.Context(), uid, listID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderList(*clone))
}

type budgetStatusResponse struct {
	List            listJSON `json:"list"`
	Remaining       string   `json:"remaining_budget"`
	BudgetPercent   float64  `json:"budget_percentage"`
	AlertPercentage int      `json:"alert_percentage"`
	ShouldAlert     bool     `json:"should_alert"`
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	listID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid list id")
		return
	}

	status, err := s.lists.BudgetStatus(r.Context(), uid, listID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetStatusResponse{
		List:            renderList(status.List),
		Remaining:       status.Remaining.String(),
		BudgetPercent:   float64(status.PercentTenths) / 10,
		AlertPercentage: status.AlertPercentage,
		ShouldAlert:     status.ShouldAlert,
	})
}
