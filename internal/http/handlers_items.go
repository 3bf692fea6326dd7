package http

import (
	"net/http"

	"smartcart/internal/core"
	"smartcart/internal/storage"
)

type addItemRequest struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  string `json:"quantity"`
	Notes     string `json:"notes"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
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

	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	price, err := core.ParseMoney(req.UnitPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty := core.Quantity{Milli: 1000} // quantity defaults to 1
	if req.Quantity != "" {
		qty, err = core.ParseQuantity(req.Quantity)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	item, err := s.lists.AddItem(r.Context(), uid, listID, core.ShoppingItem{
		Name:      req.Name,
		UnitPrice: price,
		Quantity:  qty,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderItem(*item))
}

type updateItemRequest struct {
	Name      *string `json:"name"`
	UnitPrice *string `json:"unit_price"`
	Quantity  *string `json:"quantity"`
	Notes     *string `json:"notes"`
	IsChecked *bool   `json:"is_checked"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid item id")
		return
	}

	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	patch := storage.ItemPatch{
		Name:      req.Name,
		Notes:     req.Notes,
		IsChecked: req.IsChecked,
	}
	if req.UnitPrice != nil {
		price, err := core.ParseMoney(*req.UnitPrice)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.UnitPrice = &price
	}
	if req.Quantity != nil {
		qty, err := core.ParseQuantity(*req.Quantity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Quantity = &qty
	}

	item, err := s.lists.UpdateItem(r.Context(), uid, itemID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderItem(*item))
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid item id")
		return
	}

	item, err := s.lists.ToggleItem(r.Context(), uid, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderItem(*item))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid item id")
		return
	}

	if err := s.lists.RemoveItem(r.Context(), uid, itemID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
