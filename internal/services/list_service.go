// Package services orchestrates the shopping engine across SQLite and AMQP.
// Storage is the source of truth; event publishing is best effort and never
// fails a request.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"smartcart/internal/amqp"
	"smartcart/internal/core"
	"smartcart/internal/storage"
)

// maxRetries bounds the retries on a lost optimistic-version race.
const maxRetries = 3

// eventPublisher is the slice of the AMQP client the list service needs.
type eventPublisher interface {
	PublishListCompleted(ctx context.Context, listID, userID, version int64) error
	PublishBudgetAlert(ctx context.Context, listID, userID, version, percentTenths int64) error
}

// ListService orchestrates list and item operations.
type ListService struct {
	storage *storage.Repository
	events  eventPublisher
	now     func() time.Time
}

func NewListService(storage *storage.Repository, amqpClient *amqp.Client) *ListService {
	s := &ListService{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
	// keep the interface nil when no client is configured
	if amqpClient != nil {
		s.events = amqpClient
	}
	return s
}

// ListDetail is a list with its items loaded.
type ListDetail struct {
	List  core.ShoppingList
	Items []core.ShoppingItem
}

// BudgetStatus is the alert evaluator's verdict for one list.
type BudgetStatus struct {
	List            core.ShoppingList
	Remaining       core.Money
	PercentTenths   int64
	AlertPercentage int
	ShouldAlert     bool
}

// Completion is the outcome of completing a list.
type Completion struct {
	List              core.ShoppingList
	InsufficientFunds bool
}

// withRetry reruns fn while it loses the optimistic-version race, up to
// maxRetries attempts.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if !errors.Is(err, core.ErrVersionConflict) {
			return err
		}
		slog.WarnContext(ctx, "Retrying after version conflict", "attempt", attempt+1)
	}
	return err
}

func (s *ListService) CreateList(ctx context.Context, userID int64, name string, budget core.Money, notes string) (*core.ShoppingList, error) {
	draft := core.ShoppingList{Name: name, PlannedBudget: budget, Status: core.StatusActive, Notes: notes}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return s.storage.CreateList(ctx, userID, name, budget, notes, s.now())
}

func (s *ListService) GetList(ctx context.Context, userID, listID int64) (*ListDetail, error) {
	list, err := s.storage.GetList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	items, err := s.storage.ListItems(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	return &ListDetail{List: *list, Items: items}, nil
}

// Lists returns the user's lists; status filtering is validated at the
// transport boundary.
func (s *ListService) Lists(ctx context.Context, userID int64, status core.ListStatus) ([]core.ShoppingList, error) {
	return s.storage.Lists(ctx, userID, status)
}

func (s *ListService) ActiveList(ctx context.Context, userID int64) (*ListDetail, error) {
	list, err := s.storage.ActiveList(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.storage.ListItems(ctx, userID, list.ID)
	if err != nil {
		return nil, err
	}
	return &ListDetail{List: *list, Items: items}, nil
}

// AddItem validates and inserts an item, then checks whether the list just
// crossed the owner's budget alert threshold.
func (s *ListService) AddItem(ctx context.Context, userID, listID int64, item core.ShoppingItem) (*core.ShoppingItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	before, err := s.storage.GetList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	var created *core.ShoppingItem
	err = withRetry(ctx, func() error {
		var err error
		created, err = s.storage.AddItem(ctx, userID, listID, item, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.checkBudgetCrossing(ctx, userID, *before)
	return created, nil
}

// UpdateItem applies a partial update, then checks the alert threshold the
// same way AddItem does: against the pre-mutation snapshot, so a list
// already over the line does not re-alert on every edit.
func (s *ListService) UpdateItem(ctx context.Context, userID, itemID int64, patch storage.ItemPatch) (*core.ShoppingItem, error) {
	item, err := s.storage.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	before, err := s.storage.GetList(ctx, userID, item.ListID)
	if err != nil {
		return nil, err
	}

	var updated *core.ShoppingItem
	err = withRetry(ctx, func() error {
		var err error
		updated, err = s.storage.UpdateItem(ctx, userID, itemID, patch, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.checkBudgetCrossing(ctx, userID, *before)
	return updated, nil
}

func (s *ListService) ToggleItem(ctx context.Context, userID, itemID int64) (*core.ShoppingItem, error) {
	var toggled *core.ShoppingItem
	err := withRetry(ctx, func() error {
		var err error
		toggled, err = s.storage.ToggleItemChecked(ctx, userID, itemID, s.now())
		return err
	})
	return toggled, err
}

func (s *ListService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return withRetry(ctx, func() error {
		return s.storage.RemoveItem(ctx, userID, itemID, s.now())
	})
}

func (s *ListService) RecalculateTotal(ctx context.Context, userID, listID int64) (*core.ShoppingList, error) {
	var list *core.ShoppingList
	err := withRetry(ctx, func() error {
		var err error
		list, err = s.storage.RecalculateTotal(ctx, userID, listID, s.now())
		return err
	})
	return list, err
}

// BudgetStatus evaluates the list against the owner's alert threshold.
func (s *ListService) BudgetStatus(ctx context.Context, userID, listID int64) (*BudgetStatus, error) {
	list, err := s.storage.GetList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	settings, err := s.storage.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BudgetStatus{
		List:            *list,
		Remaining:       list.RemainingBudget(),
		PercentTenths:   list.BudgetPercentTenths(),
		AlertPercentage: settings.AlertPercentage,
		ShouldAlert:     core.ShouldAlert(*list, settings),
	}, nil
}

// Complete transitions the list to completed, settles against the optional
// payment method, and announces the completion for ledger export. An
// underfunded method completes the list anyway; the caller is told no debit
// happened.
func (s *ListService) Complete(ctx context.Context, userID, listID int64, methodID *int64) (*Completion, error) {
	var result *storage.CompletionResult
	err := withRetry(ctx, func() error {
		var err error
		result, err = s.storage.CompleteList(ctx, userID, listID, methodID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping completion event",
			"list_id", listID)
	} else if err := s.events.PublishListCompleted(ctx, listID, userID, result.List.Version); err != nil {
		// The periodic worker sweep picks the list up anyway.
		slog.ErrorContext(ctx, "Failed to publish completion event",
			"list_id", listID, "error", err)
	}

	return &Completion{List: result.List, InsufficientFunds: result.InsufficientFunds}, nil
}

func (s *ListService) Cancel(ctx context.Context, userID, listID int64) (*core.ShoppingList, error) {
	var list *core.ShoppingList
	err := withRetry(ctx, func() error {
		var err error
		list, err = s.storage.CancelList(ctx, userID, listID, s.now())
		return err
	})
	return list, err
}

func (s *ListService) Duplicate(ctx context.Context, userID, listID int64) (*core.ShoppingList, error) {
	return s.storage.DuplicateList(ctx, userID, listID, s.now())
}

// AttachMethod records an additional payment method against a completed
// list. No balance is debited; settlement happened at completion.
func (s *ListService) AttachMethod(ctx context.Context, userID, listID, methodID int64) error {
	return s.storage.AttachMethod(ctx, userID, listID, methodID)
}

func (s *ListService) Settings(ctx context.Context, userID int64) (core.UserSettings, error) {
	return s.storage.GetUserSettings(ctx, userID)
}

// UpdateAlertPercentage moves the user's alert threshold within the
// permitted band.
func (s *ListService) UpdateAlertPercentage(ctx context.Context, userID int64, pct int) (core.UserSettings, error) {
	draft := core.UserSettings{UserID: userID, AlertPercentage: pct}
	if err := draft.Validate(); err != nil {
		return core.UserSettings{}, err
	}
	return s.storage.UpdateAlertPercentage(ctx, userID, pct)
}

// checkBudgetCrossing publishes a budget alert when the list moved from
// below the owner's threshold to at-or-above it.
func (s *ListService) checkBudgetCrossing(ctx context.Context, userID int64, before core.ShoppingList) {
	settings, err := s.storage.GetUserSettings(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load settings for alert check", "error", err)
		return
	}
	if core.ShouldAlert(before, settings) {
		return // already above, no new crossing
	}
	after, err := s.storage.GetList(ctx, userID, before.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload list for alert check", "error", err)
		return
	}
	if !core.ShouldAlert(*after, settings) {
		return
	}
	s.publishBudgetAlert(ctx, *after)
}

func (s *ListService) publishBudgetAlert(ctx context.Context, list core.ShoppingList) {
	slog.WarnContext(ctx, "Budget alert threshold crossed",
		"list_id", list.ID,
		"user_id", list.UserID,
		"total_cents", list.TotalSpent.Cents,
		"budget_cents", list.PlannedBudget.Cents,
		"budget_percent_tenths", list.BudgetPercentTenths())

	if s.events == nil {
		return
	}
	if err := s.events.PublishBudgetAlert(ctx, list.ID, list.UserID, list.Version, list.BudgetPercentTenths()); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget alert",
			"list_id", list.ID, "error", err)
	}
}
