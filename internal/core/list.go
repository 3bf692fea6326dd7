package core

import "strings"

const copyPrefix = "Copy of "

// SumSubtotals is the one definition of a list's running total: the exact
// sum of every item's subtotal.
func SumSubtotals(items []ShoppingItem) Money {
	var total Money
	for _, it := range items {
		total = total.Add(Subtotal(it.UnitPrice, it.Quantity))
	}
	return total
}

// RemainingBudget may be negative; overspend is signalled, not rejected.
func (l ShoppingList) RemainingBudget() Money {
	return l.PlannedBudget.Sub(l.TotalSpent)
}

// BudgetPercentTenths returns the budget consumption in tenths of a percent
// (429 means 42.9%), rounded half-up. A zero planned budget yields 0 by
// policy rather than a division error.
func (l ShoppingList) BudgetPercentTenths() int64 {
	if l.PlannedBudget.Cents == 0 {
		return 0
	}
	return (l.TotalSpent.Cents*1000 + l.PlannedBudget.Cents/2) / l.PlannedBudget.Cents
}

// BudgetPercentage is BudgetPercentTenths as a one-decimal float for
// presentation.
func (l ShoppingList) BudgetPercentage() float64 {
	return float64(l.BudgetPercentTenths()) / 10
}

// ShouldAlert compares the list's budget consumption against the user's
// threshold. Pure; the threshold is validated at the settings boundary,
// no clamping happens here.
func ShouldAlert(l ShoppingList, u UserSettings) bool {
	return l.BudgetPercentTenths() >= int64(u.AlertPercentage)*10
}

// DuplicateName names the copy of a list, avoiding stacked prefixes on
// repeated duplication.
func DuplicateName(original string) string {
	name := strings.TrimSpace(original)
	if name == "" {
		name = "New List"
	}
	if strings.HasPrefix(name, copyPrefix) {
		return name
	}
	return copyPrefix + name
}

// CloneItems produces the item set for a duplicated list: same name, unit
// price, quantity and notes, is_checked reset, no ids carried over.
func CloneItems(items []ShoppingItem) []ShoppingItem {
	clones := make([]ShoppingItem, len(items))
	for i, it := range items {
		clones[i] = ShoppingItem{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		}
	}
	return clones
}
