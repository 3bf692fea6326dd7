package http

import (
	"net/http"

	"smartcart/internal/core"
)

type createMethodRequest struct {
	Name           string `json:"name"`
	MethodType     string `json:"method_type"`
	OpeningBalance string `json:"opening_balance"`
}

func (s *Server) handleCreateMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req createMethodRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	opening := core.Money{}
	if req.OpeningBalance != "" {
		var err error
		opening, err = core.ParseMoney(req.OpeningBalance)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	method, err := s.payments.CreateMethod(r.Context(), uid, req.Name, core.MethodType(req.MethodType), opening)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderMethod(*method))
}

func (s *Server) handleListMethods(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	methods, err := s.payments.ListMethods(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]methodJSON, len(methods))
	for i, m := range methods {
		out[i] = renderMethod(m)
	}
	writeJSON(w, http.StatusOK, out)
}

type addFundsRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	methodID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid payment method id")
		return
	}

	var req addFundsRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	method, err := s.payments.AddFunds(r.Context(), uid, methodID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderMethod(*method))
}

func (s *Server) handleDeactivateMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	methodID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid payment method id")
		return
	}

	if err := s.payments.DeactivateMethod(r.Context(), uid, methodID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type totalAvailableResponse struct {
	TotalAvailable string `json:"total_available"`
	Count          int    `json:"count"`
}

func (s *Server) handleTotalAvailable(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	total, count, err := s.payments.TotalAvailable(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalAvailableResponse{
		TotalAvailable: total.String(),
		Count:          count,
	})
}
