package sheets

import (
	"context"

	"smartcart/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerAppender writes a completed list to the external purchase
	// ledger, one row per item. Implementations must be safe to retry:
	// the caller may append the same list again after a partial failure.
	LedgerAppender interface {
		AppendList(ctx context.Context, list core.ShoppingList, items []core.ShoppingItem) (rowRef string, err error)
	}
)
