package core

import (
	"strings"
	"testing"
)

func TestItemValidate(t *testing.T) {
	good := ShoppingItem{Name: "Rice", UnitPrice: Money{Cents: 2590}, Quantity: Quantity{Milli: 1000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []ShoppingItem{
		{Name: "", UnitPrice: Money{Cents: 100}, Quantity: Quantity{Milli: 1000}},
		{Name: "   ", UnitPrice: Money{Cents: 100}, Quantity: Quantity{Milli: 1000}},
		{Name: "Rice", UnitPrice: Money{Cents: 0}, Quantity: Quantity{Milli: 1000}},
		{Name: "Rice", UnitPrice: Money{Cents: -1}, Quantity: Quantity{Milli: 1000}},
		{Name: "Rice", UnitPrice: Money{Cents: 100}, Quantity: Quantity{Milli: 0}},
		{Name: "Rice", UnitPrice: Money{Cents: 100}, Quantity: Quantity{Milli: -500}},
		{Name: strings.Repeat("x", 201), UnitPrice: Money{Cents: 100}, Quantity: Quantity{Milli: 1000}},
	}
	for i, it := range bads {
		if err := it.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
}

func TestListValidate(t *testing.T) {
	if err := (ShoppingList{PlannedBudget: Money{Cents: 10000}, Status: StatusActive}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (ShoppingList{PlannedBudget: Money{Cents: -1}, Status: StatusActive}).Validate(); err == nil {
		t.Fatal("expected error for negative budget")
	}
	if err := (ShoppingList{Status: ListStatus("archived")}).Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ListStatus
		ok       bool
	}{
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusActive, false},
		{StatusActive, StatusActive, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
	if StatusActive.Terminal() {
		t.Error("active must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() {
		t.Error("completed and cancelled must be terminal")
	}
}

func TestMethodTypeValid(t *testing.T) {
	for _, typ := range []MethodType{MethodCash, MethodDebit, MethodCredit, MethodInstantTransfer, MethodVoucher, MethodWallet} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
		if typ.DisplayName() == "" {
			t.Errorf("%s should have a display name", typ)
		}
	}
	if MethodType("cheque").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestUserSettingsValidate(t *testing.T) {
	cases := []struct {
		pct int
		ok  bool
	}{
		{50, true}, {80, true}, {100, true},
		{49, false}, {101, false}, {0, false}, {-1, false},
	}
	for _, tc := range cases {
		err := (UserSettings{AlertPercentage: tc.pct}).Validate()
		if tc.ok && err != nil {
			t.Errorf("alert %d expected ok, got %v", tc.pct, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("alert %d expected error", tc.pct)
		}
	}
}

func TestIsValidation(t *testing.T) {
	for _, err := range []error{ErrInvalidAmount, ErrInvalidQuantity, ErrNegativeBudget, ErrEmptyItemName, ErrInvalidMethodType, ErrInvalidAlert} {
		if !IsValidation(err) {
			t.Errorf("%v should be a validation error", err)
		}
	}
	for _, err := range []error{ErrNotFound, ErrListNotActive, ErrListNotCompleted, ErrVersionConflict} {
		if IsValidation(err) {
			t.Errorf("%v should not be a validation error", err)
		}
	}
}
