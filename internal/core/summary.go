package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string  `json:"name"`
	Amount  Money   `json:"amount"`
	Percent float64 `json:"percent"`
}

// MonthTotals is the flow summary for one month key.
type MonthTotals struct {
	Month       MonthKey `json:"month"`
	Income      Money    `json:"income"`
	Expenses    Money    `json:"expenses"`
	Investments Money    `json:"investments"`
	Balance     Money    `json:"balance"`
}
