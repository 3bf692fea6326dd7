package core

import "time"

// MonthTotal is one entry of the trailing monthly history, keyed by the
// completion timestamp's calendar month.
type MonthTotal struct {
	Year  int
	Month int // 1-12
	Total Money
	Lists int
}

// MethodTotal is one slice of the per-payment-method spend distribution.
// When a list is associated with several methods its full total is counted
// for each of them, so the slices describe a distribution rather than a
// partition of spend.
type MethodTotal struct {
	MethodID int64
	Name     string
	Type     MethodType
	Total    Money
}

// AnalyticsSummary is the dashboard aggregate over a user's completed lists
// and active payment methods.
type AnalyticsSummary struct {
	SpentThisMonth Money
	ListsThisMonth int
	History        []MonthTotal // oldest first
	Distribution   []MethodTotal
}

// ProductRecord is one product-history hit: a priced item from a completed
// list, newest completion first.
type ProductRecord struct {
	Name        string
	ListName    string
	UnitPrice   Money
	Quantity    Quantity
	CompletedAt time.Time
}
