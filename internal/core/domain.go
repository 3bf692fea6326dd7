package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusActive    ListStatus = "active"
	StatusCompleted ListStatus = "completed"
	StatusCancelled ListStatus = "cancelled"
)

const (
	MethodCash            MethodType = "cash"
	MethodDebit           MethodType = "debit"
	MethodCredit          MethodType = "credit"
	MethodInstantTransfer MethodType = "instant-transfer"
	MethodVoucher         MethodType = "voucher"
	MethodWallet          MethodType = "wallet"
)

// Alert percentage bounds enforced at the user-settings boundary.
const (
	MinAlertPercentage = 50
	MaxAlertPercentage = 100
)

type (
	ListStatus string

	MethodType string

	// ShoppingList is the budget-tracked aggregate. TotalSpent is derived:
	// it always equals the sum of the items' subtotals and is only written
	// by a recompute inside the same transaction as the item mutation.
	ShoppingList struct {
		ID            int64
		UserID        int64
		Name          string
		PlannedBudget Money
		TotalSpent    Money
		Status        ListStatus
		Notes         string
		Version       int64
		ItemsCount    int
		CreatedAt     time.Time
		UpdatedAt     time.Time
		CompletedAt   *time.Time
	}

	// ShoppingItem belongs to exactly one list.
	ShoppingItem struct {
		ID        int64
		ListID    int64
		Name      string
		UnitPrice Money
		Quantity  Quantity
		IsChecked bool
		Notes     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// PaymentMethod holds a spendable balance. Deactivation is a soft
	// delete: the row stays but is excluded from totals and settlement.
	PaymentMethod struct {
		ID        int64
		UserID    int64
		Type      MethodType
		Name      string
		Available Money
		IsActive  bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// UserSettings is the slice of the external user identity this engine
	// consumes: the id and the budget alert threshold.
	UserSettings struct {
		UserID          int64
		AlertPercentage int
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrNegativeBudget    = errors.New("planned budget cannot be negative")
	ErrEmptyItemName     = errors.New("empty item name")
	ErrInvalidMethodType = errors.New("invalid payment method type")
	ErrInvalidAlert      = errors.New("alert percentage must be between 50 and 100")

	ErrNotFound         = errors.New("not found")
	ErrListNotActive    = errors.New("list is not active")
	ErrListNotCompleted = errors.New("list is not completed")

	// ErrVersionConflict signals a lost optimistic-version race on a list
	// row. Callers retry the whole transaction a bounded number of times.
	ErrVersionConflict = errors.New("list version conflict")
)

// IsValidation reports whether err belongs to the validation class
// (rejected before any mutation; list and ledger left unchanged).
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrInvalidAmount,
		ErrInvalidQuantity,
		ErrNegativeBudget,
		ErrEmptyItemName,
		ErrInvalidMethodType,
		ErrInvalidAlert,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func (s ListStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s ListStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition implements the list state machine: active may move to
// completed or cancelled, both of which are terminal.
func (s ListStatus) CanTransition(to ListStatus) bool {
	return s == StatusActive && (to == StatusCompleted || to == StatusCancelled)
}

func (t MethodType) Valid() bool {
	switch t {
	case MethodCash, MethodDebit, MethodCredit, MethodInstantTransfer, MethodVoucher, MethodWallet:
		return true
	}
	return false
}

// DisplayName is the fallback used when a method is created without a name.
func (t MethodType) DisplayName() string {
	switch t {
	case MethodCash:
		return "Cash"
	case MethodDebit:
		return "Debit Card"
	case MethodCredit:
		return "Credit Card"
	case MethodInstantTransfer:
		return "Instant Transfer"
	case MethodVoucher:
		return "Voucher"
	case MethodWallet:
		return "Wallet"
	}
	return string(t)
}

func (i ShoppingItem) Validate() error {
	if len(strings.TrimSpace(i.Name)) == 0 {
		return ErrEmptyItemName
	}
	if len(i.Name) > 200 {
		return errors.New("item name too long (max 200 characters)")
	}
	if i.UnitPrice.Cents <= 0 {
		return ErrInvalidAmount
	}
	if i.Quantity.Milli <= 0 {
		return ErrInvalidQuantity
	}
	if len(i.Notes) > 200 {
		return errors.New("item notes too long (max 200 characters)")
	}
	return nil
}

func (l ShoppingList) Validate() error {
	if l.PlannedBudget.Cents < 0 {
		return ErrNegativeBudget
	}
	if len(l.Name) > 100 {
		return errors.New("list name too long (max 100 characters)")
	}
	if !l.Status.Valid() {
		return errors.New("invalid list status")
	}
	return nil
}

func (m PaymentMethod) Validate() error {
	if !m.Type.Valid() {
		return ErrInvalidMethodType
	}
	if len(m.Name) > 100 {
		return errors.New("payment method name too long (max 100 characters)")
	}
	if m.Available.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u UserSettings) Validate() error {
	if u.AlertPercentage < MinAlertPercentage || u.AlertPercentage > MaxAlertPercentage {
		return ErrInvalidAlert
	}
	return nil
}
