package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smartcart/internal/core"
	"smartcart/internal/storage"
)

func newServiceFixture(t *testing.T) (*ListService, *storage.Repository) {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewListService(repo, nil), repo
}

func TestCreateListValidation(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateList(ctx, 1, "Groceries", core.Money{Cents: -1}, ""); !errors.Is(err, core.ErrNegativeBudget) {
		t.Errorf("negative budget err = %v, want ErrNegativeBudget", err)
	}

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{Cents: 10000}, "weekly run")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if list.Status != core.StatusActive || list.Notes != "weekly run" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{Cents: 10000}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}

	cases := []struct {
		name string
		item core.ShoppingItem
		want error
	}{
		{"empty name", core.ShoppingItem{UnitPrice: core.Money{Cents: 100}, Quantity: core.Quantity{Milli: 1000}}, core.ErrEmptyItemName},
		{"zero price", core.ShoppingItem{Name: "Rice", Quantity: core.Quantity{Milli: 1000}}, core.ErrInvalidAmount},
		{"zero quantity", core.ShoppingItem{Name: "Rice", UnitPrice: core.Money{Cents: 100}}, core.ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddItem(ctx, 1, list.ID, tc.item); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	item, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Rice", UnitPrice: core.Money{Cents: 2590}, Quantity: core.Quantity{Milli: 1000},
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Error("expected item id to be assigned")
	}
}

func TestBudgetStatus(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{Cents: 10000}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Rice", UnitPrice: core.Money{Cents: 2590}, Quantity: core.Quantity{Milli: 1000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Beans", UnitPrice: core.Money{Cents: 850}, Quantity: core.Quantity{Milli: 2000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	status, err := svc.BudgetStatus(ctx, 1, list.ID)
	if err != nil {
		t.Fatalf("BudgetStatus failed: %v", err)
	}
	if status.List.TotalSpent.Cents != 4290 {
		t.Errorf("total = %d, want 4290", status.List.TotalSpent.Cents)
	}
	if status.Remaining.Cents != 5710 {
		t.Errorf("remaining = %d, want 5710", status.Remaining.Cents)
	}
	if status.PercentTenths != 429 {
		t.Errorf("percent tenths = %d, want 429", status.PercentTenths)
	}
	if status.AlertPercentage != 80 {
		t.Errorf("alert percentage = %d, want default 80", status.AlertPercentage)
	}
	if status.ShouldAlert {
		t.Error("42.9%% of budget must not alert at the 80%% threshold")
	}

	// push past the threshold
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Roast", UnitPrice: core.Money{Cents: 4000}, Quantity: core.Quantity{Milli: 1000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	status, err = svc.BudgetStatus(ctx, 1, list.ID)
	if err != nil {
		t.Fatalf("BudgetStatus failed: %v", err)
	}
	if !status.ShouldAlert {
		t.Errorf("82.9%% of budget must alert at the 80%% threshold, got %+v", status)
	}
}

func TestCompleteWithSettlement(t *testing.T) {
	svc, repo := newServiceFixture(t)
	payments := NewPaymentService(repo)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Rice", UnitPrice: core.Money{Cents: 3000}, Quantity: core.Quantity{Milli: 1000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	method, err := payments.CreateMethod(ctx, 1, "", core.MethodDebit, core.Money{Cents: 10000})
	if err != nil {
		t.Fatalf("CreateMethod failed: %v", err)
	}
	if method.Name != "Debit Card" {
		t.Errorf("blank name should fall back to display name, got %q", method.Name)
	}

	completion, err := svc.Complete(ctx, 1, list.ID, &method.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completion.InsufficientFunds {
		t.Error("unexpected insufficient funds")
	}
	if completion.List.Status != core.StatusCompleted {
		t.Errorf("status = %s, want completed", completion.List.Status)
	}

	after, err := payments.GetMethod(ctx, 1, method.ID)
	if err != nil {
		t.Fatalf("GetMethod failed: %v", err)
	}
	if after.Available.Cents != 7000 {
		t.Errorf("balance = %d, want 7000", after.Available.Cents)
	}

	// second completion of the same list is rejected
	if _, err := svc.Complete(ctx, 1, list.ID, nil); !errors.Is(err, core.ErrListNotActive) {
		t.Errorf("double complete err = %v, want ErrListNotActive", err)
	}
}

func TestCompleteInsufficientFunds(t *testing.T) {
	svc, repo := newServiceFixture(t)
	payments := NewPaymentService(repo)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Roast", UnitPrice: core.Money{Cents: 9000}, Quantity: core.Quantity{Milli: 1000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	method, err := payments.CreateMethod(ctx, 1, "Cash", core.MethodCash, core.Money{Cents: 500})
	if err != nil {
		t.Fatalf("CreateMethod failed: %v", err)
	}

	completion, err := svc.Complete(ctx, 1, list.ID, &method.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !completion.InsufficientFunds {
		t.Error("expected insufficient funds to be flagged")
	}
	if completion.List.Status != core.StatusCompleted {
		t.Errorf("status = %s, want completed despite shortfall", completion.List.Status)
	}

	after, _ := payments.GetMethod(ctx, 1, method.ID)
	if after.Available.Cents != 500 {
		t.Errorf("balance = %d, want untouched 500", after.Available.Cents)
	}
}

func TestDuplicateList(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Weekly", core.Money{Cents: 5000}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Rice", UnitPrice: core.Money{Cents: 1000}, Quantity: core.Quantity{Milli: 1000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	clone, err := svc.Duplicate(ctx, 1, list.ID)
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	if clone.Name != "Copy of Weekly" || clone.TotalSpent.Cents != 1000 {
		t.Errorf("unexpected clone: %+v", clone)
	}

	// duplicating the copy does not stack prefixes
	second, err := svc.Duplicate(ctx, 1, clone.ID)
	if err != nil {
		t.Fatalf("second Duplicate failed: %v", err)
	}
	if second.Name != "Copy of Weekly" {
		t.Errorf("second clone name = %q", second.Name)
	}
}

func TestUpdateAlertPercentage(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	for _, pct := range []int{49, 101, 0, -1} {
		if _, err := svc.UpdateAlertPercentage(ctx, 1, pct); !errors.Is(err, core.ErrInvalidAlert) {
			t.Errorf("UpdateAlertPercentage(%d) err = %v, want ErrInvalidAlert", pct, err)
		}
	}

	settings, err := svc.UpdateAlertPercentage(ctx, 1, 85)
	if err != nil {
		t.Fatalf("UpdateAlertPercentage failed: %v", err)
	}
	if settings.AlertPercentage != 85 {
		t.Errorf("alert = %d, want 85", settings.AlertPercentage)
	}
}

// recordingPublisher captures published events for inspection.
type recordingPublisher struct {
	completed []int64
	alerts    []int64
}

func (p *recordingPublisher) PublishListCompleted(ctx context.Context, listID, userID, version int64) error {
	p.completed = append(p.completed, listID)
	return nil
}

func (p *recordingPublisher) PublishBudgetAlert(ctx context.Context, listID, userID, version, percentTenths int64) error {
	p.alerts = append(p.alerts, listID)
	return nil
}

func TestBudgetAlertFiresOnceOnCrossing(t *testing.T) {
	svc, _ := newServiceFixture(t)
	events := &recordingPublisher{}
	svc.events = events
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{Cents: 10000}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}

	// well below the default 80% threshold
	item, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Rice", UnitPrice: core.Money{Cents: 3000}, Quantity: core.Quantity{Milli: 1000},
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if len(events.alerts) != 0 {
		t.Fatalf("alert below threshold: %v", events.alerts)
	}

	// 30% -> 90% crosses the line
	price := core.Money{Cents: 9000}
	if _, err := svc.UpdateItem(ctx, 1, item.ID, storage.ItemPatch{UnitPrice: &price}); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if len(events.alerts) != 1 {
		t.Fatalf("alerts after crossing = %v, want exactly one", events.alerts)
	}

	// further edits while already over the line stay quiet
	price = core.Money{Cents: 9500}
	if _, err := svc.UpdateItem(ctx, 1, item.ID, storage.ItemPatch{UnitPrice: &price}); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, list.ID, core.ShoppingItem{
		Name: "Beans", UnitPrice: core.Money{Cents: 100}, Quantity: core.Quantity{Milli: 1000},
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if len(events.alerts) != 1 {
		t.Errorf("alerts after edits above threshold = %v, want still one", events.alerts)
	}

	if _, err := svc.Complete(ctx, 1, list.ID, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(events.completed) != 1 || events.completed[0] != list.ID {
		t.Errorf("completed events = %v, want [%d]", events.completed, list.ID)
	}
}

func TestAttachMethodRequiresCompletedList(t *testing.T) {
	svc, repo := newServiceFixture(t)
	payments := NewPaymentService(repo)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	method, err := payments.CreateMethod(ctx, 1, "Cash", core.MethodCash, core.Money{Cents: 5000})
	if err != nil {
		t.Fatalf("CreateMethod failed: %v", err)
	}

	if err := svc.AttachMethod(ctx, 1, list.ID, method.ID); !errors.Is(err, core.ErrListNotCompleted) {
		t.Errorf("attach to active list err = %v, want ErrListNotCompleted", err)
	}

	if _, err := svc.Complete(ctx, 1, list.ID, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := svc.AttachMethod(ctx, 1, list.ID, method.ID); err != nil {
		t.Fatalf("AttachMethod failed: %v", err)
	}
	// attaching twice is a no-op
	if err := svc.AttachMethod(ctx, 1, list.ID, method.ID); err != nil {
		t.Fatalf("repeat AttachMethod failed: %v", err)
	}

	if err := svc.AttachMethod(ctx, 1, list.ID, method.ID+99); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("attach unknown method err = %v, want ErrNotFound", err)
	}
}

func TestServiceClockInjection(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	fixed := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	list, err := svc.CreateList(ctx, 1, "Groceries", core.Money{}, "")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	completion, err := svc.Complete(ctx, 1, list.ID, nil)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completion.List.CompletedAt == nil || !completion.List.CompletedAt.Equal(fixed) {
		t.Errorf("CompletedAt = %v, want %v", completion.List.CompletedAt, fixed)
	}
}
