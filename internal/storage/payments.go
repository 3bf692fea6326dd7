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

const methodColumns = `id, user_id, name, method_type, available_cents, is_active, created_at, updated_at`

func scanMethod(row interface{ Scan(...any) error }) (core.PaymentMethod, error) {
	var m core.PaymentMethod
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Type, &m.Available.Cents,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// CreateMethod registers a payment method with an opening balance.
func (r *Repository) CreateMethod(ctx context.Context, userID int64, name string, methodType core.MethodType, opening core.Money, now time.Time) (*core.PaymentMethod, error) {
	if err := r.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_methods (user_id, name, method_type, available_cents, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		userID, name, methodType, opening.Cents, now, now)
	if err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create payment method id: %w", err)
	}

	slog.InfoContext(ctx, "Payment method created",
		"method_id", id, "user_id", userID, "method_type", string(methodType))

	return r.GetMethod(ctx, userID, id)
}

// GetMethod returns a method owned by userID, active or not.
func (r *Repository) GetMethod(ctx context.Context, userID, methodID int64) (*core.PaymentMethod, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+methodColumns+` FROM payment_methods WHERE id = ? AND user_id = ?`,
		methodID, userID)
	m, err := scanMethod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment method %d: %w", methodID, err)
	}
	return &m, nil
}

// ListMethods returns the user's active methods, oldest first.
func (r *Repository) ListMethods(ctx context.Context, userID int64) ([]core.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+methodColumns+` FROM payment_methods
		 WHERE user_id = ? AND is_active = 1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []core.PaymentMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// AddFunds credits a method's balance.
func (r *Repository) AddFunds(ctx context.Context, userID, methodID int64, amount core.Money, now time.Time) (*core.PaymentMethod, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET available_cents = available_cents + ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_active = 1`,
		amount.Cents, now, methodID, userID)
	if err != nil {
		return nil, fmt.Errorf("add funds: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("add funds affected: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Funds added to payment method",
		"method_id", methodID, "user_id", userID, "amount_cents", amount.Cents)

	return r.GetMethod(ctx, userID, methodID)
}

// DeactivateMethod soft-deletes a method. Settlement history through
// list_payment_methods stays intact for analytics.
func (r *Repository) DeactivateMethod(ctx context.Context, userID, methodID int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET is_active = 0, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_active = 1`,
		now, methodID, userID)
	if err != nil {
		return fmt.Errorf("deactivate payment method: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AttachMethod associates an extra payment method with a completed list
// without debiting it. Settlement inside CompleteList links the paying
// method; this records that more than one method funded the purchase.
func (r *Repository) AttachMethod(ctx context.Context, userID, listID, methodID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attach method: %w", err)
	}
	defer tx.Rollback()

	var status core.ListStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM shopping_lists WHERE id = ? AND user_id = ?`,
		listID, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load list %d: %w", listID, err)
	}
	if status != core.StatusCompleted {
		return core.ErrListNotCompleted
	}

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM payment_methods WHERE id = ? AND user_id = ? AND is_active = 1`,
		methodID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load payment method %d: %w", methodID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO list_payment_methods (list_id, method_id) VALUES (?, ?)`,
		listID, methodID); err != nil {
		return fmt.Errorf("link method %d to list %d: %w", methodID, listID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attach method: %w", err)
	}

	slog.InfoContext(ctx, "Payment method attached to list",
		"list_id", listID, "method_id", methodID, "user_id", userID)
	return nil
}

// TotalAvailable sums the balances of the user's active methods and
// returns how many methods contributed.
func (r *Repository) TotalAvailable(ctx context.Context, userID int64) (core.Money, int, error) {
	var (
		total core.Money
		count int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(available_cents), 0), COUNT(*) FROM payment_methods
		 WHERE user_id = ? AND is_active = 1`, userID).Scan(&total.Cents, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("total available: %w", err)
	}
	return total, count, nil
}
