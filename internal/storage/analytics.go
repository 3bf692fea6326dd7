package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smartcart/internal/core"
)

// MonthSummary returns the spend total and completed-list count for the
// half-open interval [from, to), keyed on completion time.
func (r *Repository) MonthSummary(ctx context.Context, userID int64, from, to time.Time) (core.Money, int, error) {
	var (
		total core.Money
		count int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_spent_cents), 0), COUNT(*)
		 FROM shopping_lists
		 WHERE user_id = ? AND status = 'completed'
		   AND completed_at >= ? AND completed_at < ?`,
		userID, from, to).Scan(&total.Cents, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("month summary: %w", err)
	}
	return total, count, nil
}

// PaymentDistribution sums completed-list totals per associated active
// method. A list linked to several methods contributes its full total to
// each of them; deactivated methods and methods with nothing attributed
// are omitted.
func (r *Repository) PaymentDistribution(ctx context.Context, userID int64) ([]core.MethodTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.name, m.method_type, COALESCE(SUM(l.total_spent_cents), 0) AS total
		 FROM payment_methods m
		 JOIN list_payment_methods lm ON lm.method_id = m.id
		 JOIN shopping_lists l ON l.id = lm.list_id AND l.status = 'completed'
		 WHERE m.user_id = ? AND m.is_active = 1
		 GROUP BY m.id, m.name, m.method_type
		 HAVING total > 0
		 ORDER BY total DESC, m.id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("payment distribution: %w", err)
	}
	defer rows.Close()

	var dist []core.MethodTotal
	for rows.Next() {
		var mt core.MethodTotal
		if err := rows.Scan(&mt.MethodID, &mt.Name, &mt.Type, &mt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		dist = append(dist, mt)
	}
	return dist, rows.Err()
}

// ProductHistory looks up recent prices paid for a product by name prefix,
// case insensitively, across the user's completed lists. Queries shorter
// than two characters return nothing.
func (r *Repository) ProductHistory(ctx context.Context, userID int64, query string) ([]core.ProductRecord, error) {
	if len(query) < 2 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.name, l.name, i.unit_price_cents, i.quantity_milli, l.completed_at
		 FROM shopping_items i
		 JOIN shopping_lists l ON l.id = i.list_id
		 WHERE l.user_id = ? AND l.status = 'completed'
		   AND i.name LIKE ? COLLATE NOCASE
		 ORDER BY l.completed_at DESC, i.id DESC
		 LIMIT 5`,
		userID, query+"%")
	if err != nil {
		return nil, fmt.Errorf("product history: %w", err)
	}
	defer rows.Close()

	var records []core.ProductRecord
	for rows.Next() {
		var rec core.ProductRecord
		if err := rows.Scan(&rec.Name, &rec.ListName, &rec.UnitPrice.Cents, &rec.Quantity.Milli, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan product record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- export bookkeeping ---

// PendingExport is a completed list waiting to be appended to the ledger.
type PendingExport struct {
	List  core.ShoppingList
	Items []core.ShoppingItem
}

// PendingExports returns up to limit completed lists still marked
// export_state = 'pending', oldest completion first, with their items.
func (r *Repository) PendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists
		 WHERE export_state = 'pending' AND status = 'completed'
		 ORDER BY completed_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending exports: %w", err)
	}
	defer rows.Close()

	var exports []PendingExport
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		exports = append(exports, PendingExport{List: l})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range exports {
		items, err := r.ListItems(ctx, exports[i].List.UserID, exports[i].List.ID)
		if err != nil {
			return nil, err
		}
		exports[i].Items = items
	}
	return exports, nil
}

// PendingExportByID loads one list still awaiting export. ErrNotFound
// covers both unknown ids and lists already exported, which makes message
// redelivery a no-op for consumers.
func (r *Repository) PendingExportByID(ctx context.Context, listID int64) (*PendingExport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists
		 WHERE id = ? AND export_state = 'pending' AND status = 'completed'`, listID)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pending export %d: %w", listID, err)
	}
	items, err := r.ListItems(ctx, l.UserID, l.ID)
	if err != nil {
		return nil, err
	}
	return &PendingExport{List: l, Items: items}, nil
}

// MarkExported records a successful ledger append.
func (r *Repository) MarkExported(ctx context.Context, listID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shopping_lists SET export_state = 'exported', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND export_state = 'pending'`, listID)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark exported affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "List exported to ledger", "list_id", listID)
	return nil
}

// MarkExportError flags a list whose ledger append failed. The periodic
// sweep does not retry errored lists automatically; they need operator
// attention.
func (r *Repository) MarkExportError(ctx context.Context, listID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE shopping_lists SET export_state = 'error', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, listID)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "List export failed", "list_id", listID)
	return nil
}
