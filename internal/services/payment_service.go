package services

import (
	"context"
	"strings"
	"time"

	"smartcart/internal/core"
	"smartcart/internal/storage"
)

// PaymentService orchestrates the payment method ledger.
type PaymentService struct {
	storage *storage.Repository
	now     func() time.Time
}

func NewPaymentService(storage *storage.Repository) *PaymentService {
	return &PaymentService{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateMethod registers a method. A blank name falls back to the type's
// display name.
func (s *PaymentService) CreateMethod(ctx context.Context, userID int64, name string, methodType core.MethodType, opening core.Money) (*core.PaymentMethod, error) {
	if strings.TrimSpace(name) == "" {
		name = methodType.DisplayName()
	}
	draft := core.PaymentMethod{Name: name, Type: methodType, Available: opening}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return s.storage.CreateMethod(ctx, userID, name, methodType, opening, s.now())
}

func (s *PaymentService) GetMethod(ctx context.Context, userID, methodID int64) (*core.PaymentMethod, error) {
	return s.storage.GetMethod(ctx, userID, methodID)
}

func (s *PaymentService) ListMethods(ctx context.Context, userID int64) ([]core.PaymentMethod, error) {
	return s.storage.ListMethods(ctx, userID)
}

// AddFunds credits the method. A zero or negative amount is rejected.
func (s *PaymentService) AddFunds(ctx context.Context, userID, methodID int64, amount core.Money) (*core.PaymentMethod, error) {
	if amount.Cents <= 0 {
		return nil, core.ErrInvalidAmount
	}
	return s.storage.AddFunds(ctx, userID, methodID, amount, s.now())
}

func (s *PaymentService) DeactivateMethod(ctx context.Context, userID, methodID int64) error {
	return s.storage.DeactivateMethod(ctx, userID, methodID, s.now())
}

// TotalAvailable returns the combined balance of the user's active methods
// and how many methods it spans.
func (s *PaymentService) TotalAvailable(ctx context.Context, userID int64) (core.Money, int, error) {
	return s.storage.TotalAvailable(ctx, userID)
}
