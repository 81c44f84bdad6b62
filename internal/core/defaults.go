package core

// DefaultSettings returns the settings a new ledger starts with.
func DefaultSettings() UserSettings {
	return UserSettings{
		CategoryLimits: map[string]Money{},
		ExpenseCategories: []string{
			"Food", "Housing", "Transport", "Leisure", "Health",
			"Education", "Shopping", "Services", "Subscriptions",
		},
		IncomeCategories:     []string{"Salary", "Freelance", "Other Income", "Previous Balance"},
		InvestmentCategories: []string{"Savings", "Stocks", "Funds"},
	}
}

// DefaultCards returns the two starter cards of a new ledger.
func DefaultCards() []Card {
	return []Card{
		{ID: "card-1", Name: "Main Card", Holder: "Holder", Limit: Money{Cents: 500000}, ClosingDay: 1, DueDay: 8, Color: "#8A05BE"},
		{ID: "card-2", Name: "Second Card", Holder: "Holder", Limit: Money{Cents: 300000}, ClosingDay: 10, DueDay: 17, Color: "#EC7000"},
	}
}

// Clone returns a deep copy of the settings document.
func (s UserSettings) Clone() UserSettings {
	out := s
	out.Goals = append([]Goal(nil), s.Goals...)
	out.ExpenseCategories = append([]string(nil), s.ExpenseCategories...)
	out.IncomeCategories = append([]string(nil), s.IncomeCategories...)
	out.InvestmentCategories = append([]string(nil), s.InvestmentCategories...)
	out.CategoryLimits = make(map[string]Money, len(s.CategoryLimits))
	for k, v := range s.CategoryLimits {
		out.CategoryLimits[k] = v
	}
	return out
}
