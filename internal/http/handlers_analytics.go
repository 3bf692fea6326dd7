package http

import (
	"fmt"
	"net/http"
	"time"
)

type monthTotalJSON struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Total string `json:"total"`
	Lists int    `json:"lists"`
}

type methodTotalJSON struct {
	MethodID int64  `json:"method_id"`
	Name     string `json:"name"`
	Type     string `json:"method_type"`
	Total    string `json:"total"`
}

type summaryJSON struct {
	SpentThisMonth string            `json:"spent_this_month"`
	ListsThisMonth int               `json:"lists_this_month"`
	History        []monthTotalJSON  `json:"monthly_history"`
	Distribution   []methodTotalJSON `json:"payment_distribution"`
}

func summaryCacheKey(userID int64) string {
	return fmt.Sprintf("summary:%d", userID)
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	summary, cached := s.summaryCache.Get(summaryCacheKey(uid))
	if !cached {
		fresh, err := s.analytics.Summary(r.Context(), uid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		summary = *fresh
		s.summaryCache.Set(summaryCacheKey(uid), summary)
	}

	out := summaryJSON{
		SpentThisMonth: summary.SpentThisMonth.String(),
		ListsThisMonth: summary.ListsThisMonth,
		History:        make([]monthTotalJSON, len(summary.History)),
		Distribution:   make([]methodTotalJSON, len(summary.Distribution)),
	}
	for i, mt := range summary.History {
		out.History[i] = monthTotalJSON{Year: mt.Year, Month: mt.Month, Total: mt.Total.String(), Lists: mt.Lists}
	}
	for i, mt := range summary.Distribution {
		out.Distribution[i] = methodTotalJSON{MethodID: mt.MethodID, Name: mt.Name, Type: string(mt.Type), Total: mt.Total.String()}
	}
	writeJSON(w, http.StatusOK, out)
}

type productRecordJSON struct {
	Name        string `json:"name"`
	ListName    string `json:"list_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    string `json:"quantity"`
	CompletedAt string `json:"completed_at"`
}

func (s *Server) handleProductHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	query := r.URL.Query().Get("name")

	key := fmt.Sprintf("ph:%d:%s", uid, query)
	records, cached := s.historyCache.Get(key)
	if !cached {
		var err error
		records, err = s.analytics.ProductHistory(r.Context(), uid, query)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.historyCache.Set(key, records)
	}

	out := make([]productRecordJSON, len(records))
	for i, rec := range records {
		out[i] = productRecordJSON{
			Name:        rec.Name,
			ListName:    rec.ListName,
			UnitPrice:   rec.UnitPrice.String(),
			Quantity:    rec.Quantity.String(),
			CompletedAt: rec.CompletedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type settingsJSON struct {
	AlertPercentage int `json:"alert_percentage"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	settings, err := s.lists.Settings(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsJSON{AlertPercentage: settings.AlertPercentage})
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req settingsJSON
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	settings, err := s.lists.UpdateAlertPercentage(r.Context(), uid, req.AlertPercentage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsJSON{AlertPercentage: settings.AlertPercentage})
}
