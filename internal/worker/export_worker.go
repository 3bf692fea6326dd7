// Package worker moves completed lists from SQLite to the external purchase
// ledger. Completions arrive as AMQP events; a periodic sweep over lists
// still marked pending backstops lost messages and worker downtime.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"smartcart/internal/amqp"
	"smartcart/internal/core"
	"smartcart/internal/sheets"
	"smartcart/internal/storage"
)

type ExportWorker struct {
	storage   *storage.Repository
	ledger    sheets.LedgerAppender
	client    *amqp.Client
	batchSize int
	interval  time.Duration
}

// NewExportWorker builds a worker. client may be nil, in which case only
// the periodic sweep runs.
func NewExportWorker(storage *storage.Repository, ledger sheets.LedgerAppender, client *amqp.Client, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		ledger:    ledger,
		client:    client,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run consumes list events and sweeps pending exports until ctx is
// cancelled.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.ProcessPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.client != nil {
		g.Go(func() error {
			err := w.client.Consume(ctx, func(msg *amqp.Message) error {
				return w.HandleMessage(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Export sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleMessage processes one list event. Budget alerts are logged only;
// notification delivery belongs to an external system.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeListCompleted:
		return w.exportList(ctx, msg.ListID)
	case amqp.TypeBudgetAlert:
		slog.InfoContext(ctx, "Budget alert received",
			"list_id", msg.ListID,
			"user_id", msg.UserID,
			"budget_percent_tenths", msg.BudgetPercentTenths)
		return nil
	default:
		slog.WarnContext(ctx, "Dropping message of unknown type", "type", msg.Type)
		return nil
	}
}

// exportList appends one pending list to the ledger. A list that is no
// longer pending is skipped, so redelivered messages cannot duplicate rows.
func (w *ExportWorker) exportList(ctx context.Context, listID int64) error {
	pending, err := w.storage.PendingExportByID(ctx, listID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "List already exported or unknown, skipping", "list_id", listID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load pending export: %w", err)
	}
	return w.appendAndMark(ctx, pending)
}

// ProcessPending exports lists the event stream missed, oldest first.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.appendAndMark(ctx, &pending[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to export list",
				"list_id", pending[i].List.ID, "error", err)
		}
	}
	return nil
}

func (w *ExportWorker) appendAndMark(ctx context.Context, pending *storage.PendingExport) error {
	ref, err := w.ledger.AppendList(ctx, pending.List, pending.Items)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, pending.List.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"list_id", pending.List.ID, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkExported(ctx, pending.List.ID); err != nil {
		// The append worked; losing the bookmark only risks a duplicate
		// row on the next sweep, so surface it loudly.
		slog.ErrorContext(ctx, "Failed to mark list exported",
			"list_id", pending.List.ID, "error", err)
	}

	slog.InfoContext(ctx, "List exported",
		"list_id", pending.List.ID,
		"user_id", pending.List.UserID,
		"total_cents", pending.List.TotalSpent.Cents,
		"ledger_ref", ref)
	return nil
}
