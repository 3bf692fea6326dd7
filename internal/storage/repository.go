// Package storage persists the shopping engine in SQLite. Every item
// mutation recomputes the owning list's total inside the same transaction,
// and list rows carry an optimistic version so concurrent writers to the
// same list are serialized rather than silently miscounting the total.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"smartcart/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at dbPath and runs
// migrations.
func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ItemPatch is a partial item update; nil fields are left untouched.
type ItemPatch struct {
	Name      *string
	UnitPrice *core.Money
	Quantity  *core.Quantity
	Notes     *string
	IsChecked *bool
}

// CompletionResult reports what settlement did during list completion.
// InsufficientFunds mirrors the degraded settlement path: the list is
// completed and the method associated, but no debit happened.
type CompletionResult struct {
	List              core.ShoppingList
	MethodLinked      bool
	Debited           bool
	InsufficientFunds bool
}

// --- users ---

// EnsureUser creates the settings row for an externally-authenticated user
// on first contact, with the default alert threshold.
func (r *Repository) EnsureUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, alert_percentage) VALUES (?, 80)`, userID)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

func (r *Repository) GetUserSettings(ctx context.Context, userID int64) (core.UserSettings, error) {
	if err := r.EnsureUser(ctx, userID); err != nil {
		return core.UserSettings{}, err
	}
	settings := core.UserSettings{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT alert_percentage FROM users WHERE id = ?`, userID).
		Scan(&settings.AlertPercentage)
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("get user settings: %w", err)
	}
	return settings, nil
}

func (r *Repository) UpdateAlertPercentage(ctx context.Context, userID int64, pct int) (core.UserSettings, error) {
	if err := r.EnsureUser(ctx, userID); err != nil {
		return core.UserSettings{}, err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET alert_percentage = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		pct, userID)
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("update alert percentage: %w", err)
	}
	return core.UserSettings{UserID: userID, AlertPercentage: pct}, nil
}

// --- lists ---

const listColumns = `id, user_id, name, planned_budget_cents, total_spent_cents,
	status, notes, version, created_at, updated_at, completed_at`

func scanList(row interface{ Scan(...any) error }) (core.ShoppingList, error) {
	var (
		l           core.ShoppingList
		completedAt sql.NullTime
	)
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.PlannedBudget.Cents, &l.TotalSpent.Cents,
		&l.Status, &l.Notes, &l.Version, &l.CreatedAt, &l.UpdatedAt, &completedAt)
	if err != nil {
		return core.ShoppingList{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		l.CompletedAt = &t
	}
	return l, nil
}

func (r *Repository) CreateList(ctx context.Context, userID int64, name string, budget core.Money, notes string, now time.Time) (*core.ShoppingList, error) {
	if err := r.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (user_id, name, planned_budget_cents, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, name, budget.Cents, notes, now, now)
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create list id: %w", err)
	}

	slog.InfoContext(ctx, "Shopping list created",
		"list_id", id, "user_id", userID, "planned_budget_cents", budget.Cents)

	return r.GetList(ctx, userID, id)
}

// GetList returns a single list owned by userID, with its items count.
func (r *Repository) GetList(ctx context.Context, userID, listID int64) (*core.ShoppingList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists WHERE id = ? AND user_id = ?`,
		listID, userID)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get list %d: %w", listID, err)
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_items WHERE list_id = ?`, listID).
		Scan(&l.ItemsCount); err != nil {
		return nil, fmt.Errorf("count items for list %d: %w", listID, err)
	}
	return &l, nil
}

// Lists returns the user's lists, newest first, optionally filtered by
// status. Each row carries its items count.
func (r *Repository) Lists(ctx context.Context, userID int64, status core.ListStatus) ([]core.ShoppingList, error) {
	query := `SELECT ` + listColumns + `,
		(SELECT COUNT(*) FROM shopping_items i WHERE i.list_id = shopping_lists.id)
		FROM shopping_lists WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []core.ShoppingList
	for rows.Next() {
		var (
			l           core.ShoppingList
			completedAt sql.NullTime
		)
		err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.PlannedBudget.Cents, &l.TotalSpent.Cents,
			&l.Status, &l.Notes, &l.Version, &l.CreatedAt, &l.UpdatedAt, &completedAt, &l.ItemsCount)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			l.CompletedAt = &t
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// ActiveList returns the user's most recent active list.
func (r *Repository) ActiveList(ctx context.Context, userID int64) (*core.ShoppingList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists
		 WHERE user_id = ? AND status = 'active'
		 ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active list: %w", err)
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_items WHERE list_id = ?`, l.ID).
		Scan(&l.ItemsCount); err != nil {
		return nil, fmt.Errorf("count items for list %d: %w", l.ID, err)
	}
	return &l, nil
}

// --- items ---

const itemColumns = `id, list_id, name, unit_price_cents, quantity_milli,
	is_checked, notes, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (core.ShoppingItem, error) {
	var it core.ShoppingItem
	err := row.Scan(&it.ID, &it.ListID, &it.Name, &it.UnitPrice.Cents, &it.Quantity.Milli,
		&it.IsChecked, &it.Notes, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// ListItems returns the items of a list owned by userID, oldest first.
func (r *Repository) ListItems(ctx context.Context, userID, listID int64) ([]core.ShoppingItem, error) {
	if _, err := r.GetList(ctx, userID, listID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM shopping_items WHERE list_id = ? ORDER BY created_at ASC, id ASC`,
		listID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []core.ShoppingItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem returns a single item resolved through its owning list, enforcing
// ownership. The list may be in any status.
func (r *Repository) GetItem(ctx context.Context, userID, itemID int64) (*core.ShoppingItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT i.id, i.list_id, i.name, i.unit_price_cents, i.quantity_milli, i.is_checked, i.notes, i.created_at, i.updated_at
		 FROM shopping_items i
		 JOIN shopping_lists l ON l.id = i.list_id
		 WHERE i.id = ? AND l.user_id = ?`,
		itemID, userID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	return &it, nil
}

// listForUpdate loads the list header inside tx and enforces ownership.
func listForUpdate(ctx context.Context, tx *sql.Tx, userID, listID int64) (core.ShoppingList, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists WHERE id = ? AND user_id = ?`,
		listID, userID)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ShoppingList{}, core.ErrNotFound
	}
	if err != nil {
		return core.ShoppingList{}, fmt.Errorf("load list %d: %w", listID, err)
	}
	return l, nil
}

// recomputeTotal rewrites total_spent from the item set and bumps the
// optimistic version. Rounding of each subtotal happens in SQL exactly as
// core.Subtotal does it: half-up at the cent.
func recomputeTotal(ctx context.Context, tx *sql.Tx, listID, version int64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists SET
			total_spent_cents = (
				SELECT COALESCE(SUM((unit_price_cents * quantity_milli + 500) / 1000), 0)
				FROM shopping_items WHERE list_id = ?
			),
			version = version + 1,
			updated_at = ?
		 WHERE id = ? AND version = ?`,
		listID, now, listID, version)
	if err != nil {
		return fmt.Errorf("recompute total: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recompute total affected: %w", err)
	}
	if affected == 0 {
		return core.ErrVersionConflict
	}
	return nil
}

// AddItem inserts an item and recomputes the list total as one transaction.
func (r *Repository) AddItem(ctx context.Context, userID, listID int64, item core.ShoppingItem, now time.Time) (*core.ShoppingItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add item: %w", err)
	}
	defer tx.Rollback()

	list, err := listForUpdate(ctx, tx, userID, listID)
	if err != nil {
		return nil, err
	}
	if list.Status != core.StatusActive {
		return nil, core.ErrListNotActive
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO shopping_items (list_id, name, unit_price_cents, quantity_milli, is_checked, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		listID, item.Name, item.UnitPrice.Cents, item.Quantity.Milli, item.IsChecked, item.Notes, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert item id: %w", err)
	}

	if err := recomputeTotal(ctx, tx, listID, list.Version, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add item: %w", err)
	}

	item.ID = itemID
	item.ListID = listID
	item.CreatedAt = now
	item.UpdatedAt = now
	return &item, nil
}

// itemForUpdate resolves an item through its owning list, enforcing both
// ownership and the active-list guard.
func itemForUpdate(ctx context.Context, tx *sql.Tx, userID, itemID int64) (core.ShoppingItem, core.ShoppingList, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT i.id, i.list_id, i.name, i.unit_price_cents, i.quantity_milli, i.is_checked, i.notes, i.created_at, i.updated_at
		 FROM shopping_items i
		 JOIN shopping_lists l ON l.id = i.list_id
		 WHERE i.id = ? AND l.user_id = ?`,
		itemID, userID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ShoppingItem{}, core.ShoppingList{}, core.ErrNotFound
	}
	if err != nil {
		return core.ShoppingItem{}, core.ShoppingList{}, fmt.Errorf("load item %d: %w", itemID, err)
	}
	list, err := listForUpdate(ctx, tx, userID, it.ListID)
	if err != nil {
		return core.ShoppingItem{}, core.ShoppingList{}, err
	}
	if list.Status != core.StatusActive {
		return core.ShoppingItem{}, core.ShoppingList{}, core.ErrListNotActive
	}
	return it, list, nil
}

// UpdateItem applies a partial update and recomputes the list total as one
// transaction.
func (r *Repository) UpdateItem(ctx context.Context, userID, itemID int64, patch ItemPatch, now time.Time) (*core.ShoppingItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update item: %w", err)
	}
	defer tx.Rollback()

	it, list, err := itemForUpdate(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.UnitPrice != nil {
		it.UnitPrice = *patch.UnitPrice
	}
	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
	}
	if patch.Notes != nil {
		it.Notes = *patch.Notes
	}
	if patch.IsChecked != nil {
		it.IsChecked = *patch.IsChecked
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}

	it.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		`UPDATE shopping_items SET name = ?, unit_price_cents = ?, quantity_milli = ?, is_checked = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		it.Name, it.UnitPrice.Cents, it.Quantity.Milli, it.IsChecked, it.Notes, now, itemID)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if err := recomputeTotal(ctx, tx, it.ListID, list.Version, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update item: %w", err)
	}
	return &it, nil
}

// ToggleItemChecked flips is_checked. The subtotal is unchanged but the
// operation still runs under the list guard and version bump: checking off
// items on a terminal list is rejected like any other mutation. Read and
// flip share one transaction so concurrent toggles cannot both observe the
// same flag.
func (r *Repository) ToggleItemChecked(ctx context.Context, userID, itemID int64, now time.Time) (*core.ShoppingItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin toggle item: %w", err)
	}
	defer tx.Rollback()

	it, list, err := itemForUpdate(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}

	it.IsChecked = !it.IsChecked
	it.UpdatedAt = now
	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_items SET is_checked = ?, updated_at = ? WHERE id = ?`,
		it.IsChecked, now, itemID); err != nil {
		return nil, fmt.Errorf("toggle item: %w", err)
	}

	if err := recomputeTotal(ctx, tx, it.ListID, list.Version, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit toggle item: %w", err)
	}
	return &it, nil
}

// RemoveItem deletes an item and recomputes the list total as one
// transaction.
func (r *Repository) RemoveItem(ctx context.Context, userID, itemID int64, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove item: %w", err)
	}
	defer tx.Rollback()

	it, list, err := itemForUpdate(ctx, tx, userID, itemID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_items WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := recomputeTotal(ctx, tx, it.ListID, list.Version, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove item: %w", err)
	}
	return nil
}

// RecalculateTotal re-derives total_spent from the current item set. Item
// mutations already do this in their own transactions; this is the explicit
// entry point for orchestration and repair.
func (r *Repository) RecalculateTotal(ctx context.Context, userID, listID int64, now time.Time) (*core.ShoppingList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin recalculate: %w", err)
	}
	defer tx.Rollback()

	list, err := listForUpdate(ctx, tx, userID, listID)
	if err != nil {
		return nil, err
	}
	if err := recomputeTotal(ctx, tx, listID, list.Version, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recalculate: %w", err)
	}
	return r.GetList(ctx, userID, listID)
}

// --- lifecycle ---

// CompleteList transitions an active list to completed and settles against
// the given payment method, all in one transaction. The debit is a
// compare-and-swap on the balance so two completions racing for the same
// method cannot both succeed on stale reads. An underfunded method is still
// associated but not debited; callers receive InsufficientFunds instead of
// an error.
func (r *Repository) CompleteList(ctx context.Context, userID, listID int64, methodID *int64, now time.Time) (*CompletionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback()

	list, err := listForUpdate(ctx, tx, userID, listID)
	if err != nil {
		return nil, err
	}
	if !list.Status.CanTransition(core.StatusCompleted) {
		return nil, core.ErrListNotActive
	}

	result := &CompletionResult{}

	if methodID != nil {
		var available int64
		err := tx.QueryRowContext(ctx,
			`SELECT available_cents FROM payment_methods
			 WHERE id = ? AND user_id = ? AND is_active = 1`,
			*methodID, userID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load payment method %d: %w", *methodID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO list_payment_methods (list_id, method_id) VALUES (?, ?)`,
			listID, *methodID); err != nil {
			return nil, fmt.Errorf("link payment method: %w", err)
		}
		result.MethodLinked = true

		res, err := tx.ExecContext(ctx,
			`UPDATE payment_methods
			 SET available_cents = available_cents - ?, updated_at = ?
			 WHERE id = ? AND available_cents >= ?`,
			list.TotalSpent.Cents, now, *methodID, list.TotalSpent.Cents)
		if err != nil {
			return nil, fmt.Errorf("debit payment method: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("debit affected: %w", err)
		}
		result.Debited = affected == 1
		result.InsufficientFunds = !result.Debited
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists
		 SET status = 'completed', completed_at = ?, export_state = 'pending',
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		now, now, listID, list.Version)
	if err != nil {
		return nil, fmt.Errorf("complete list: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete affected: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit complete: %w", err)
	}

	completed, err := r.GetList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	result.List = *completed

	slog.InfoContext(ctx, "Shopping list completed",
		"list_id", listID,
		"user_id", userID,
		"total_spent_cents", completed.TotalSpent.Cents,
		"debited", result.Debited,
		"insufficient_funds", result.InsufficientFunds)

	return result, nil
}

// CancelList transitions an active list to cancelled; no ledger effects.
func (r *Repository) CancelList(ctx context.Context, userID, listID int64, now time.Time) (*core.ShoppingList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback()

	list, err := listForUpdate(ctx, tx, userID, listID)
	if err != nil {
		return nil, err
	}
	if !list.Status.CanTransition(core.StatusCancelled) {
		return nil, core.ErrListNotActive
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists SET status = 'cancelled', version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		now, listID, list.Version)
	if err != nil {
		return nil, fmt.Errorf("cancel list: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("cancel affected: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return r.GetList(ctx, userID, listID)
}

// DuplicateList clones a list of any status into a fresh active one: same
// budget, items copied with is_checked reset, total recomputed from the
// clones.
func (r *Repository) DuplicateList(ctx context.Context, userID, listID int64, now time.Time) (*core.ShoppingList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin duplicate: %w", err)
	}
	defer tx.Rollback()

	original, err := listForUpdate(ctx, tx, userID, listID)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO shopping_lists (user_id, name, planned_budget_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, core.DuplicateName(original.Name), original.PlannedBudget.Cents, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert duplicate: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("duplicate id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shopping_items (list_id, name, unit_price_cents, quantity_milli, is_checked, notes, created_at, updated_at)
		 SELECT ?, name, unit_price_cents, quantity_milli, 0, notes, ?, ?
		 FROM shopping_items WHERE list_id = ? ORDER BY created_at ASC, id ASC`,
		newID, now, now, listID); err != nil {
		return nil, fmt.Errorf("copy items: %w", err)
	}

	// version 1 is the row just inserted
	if err := recomputeTotal(ctx, tx, newID, 1, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit duplicate: %w", err)
	}

	slog.InfoContext(ctx, "Shopping list duplicated",
		"list_id", listID, "new_list_id", newID, "user_id", userID)

	return r.GetList(ctx, userID, newID)
}
