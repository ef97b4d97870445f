package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Amount   `json:"amount"`
}

// TrendPoint is the summed amount spent on a single date.
type TrendPoint struct {
	Date   Date   `json:"date"`
	Amount Amount `json:"amount"`
}
