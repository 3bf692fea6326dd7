package services

import (
	"context"
	"time"

	"smartcart/internal/core"
	"smartcart/internal/storage"
)

// historyMonths is the depth of the monthly spend history, current month
// included.
const historyMonths = 6

// AnalyticsService aggregates completed lists for the dashboard.
type AnalyticsService struct {
	storage *storage.Repository
	now     func() time.Time
}

func NewAnalyticsService(storage *storage.Repository) *AnalyticsService {
	return &AnalyticsService{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Summary builds the dashboard aggregate: this calendar month's spend and
// list count, the trailing six-month history oldest first, and the
// per-method distribution.
func (s *AnalyticsService) Summary(ctx context.Context, userID int64) (*core.AnalyticsSummary, error) {
	now := s.now()
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	summary := &core.AnalyticsSummary{
		History: make([]core.MonthTotal, 0, historyMonths),
	}

	// Calendar months, not 30-day windows: February is February.
	for i := historyMonths - 1; i >= 0; i-- {
		from := currentStart.AddDate(0, -i, 0)
		to := from.AddDate(0, 1, 0)
		total, count, err := s.storage.MonthSummary(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}
		summary.History = append(summary.History, core.MonthTotal{
			Year:  from.Year(),
			Month: int(from.Month()),
			Total: total,
			Lists: count,
		})
	}

	current := summary.History[len(summary.History)-1]
	summary.SpentThisMonth = current.Total
	summary.ListsThisMonth = current.Lists

	dist, err := s.storage.PaymentDistribution(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary.Distribution = dist

	return summary, nil
}

// ProductHistory returns recent prices paid for matching products.
func (s *AnalyticsService) ProductHistory(ctx context.Context, userID int64, query string) ([]core.ProductRecord, error) {
	return s.storage.ProductHistory(ctx, userID, query)
}
