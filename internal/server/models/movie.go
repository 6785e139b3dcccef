package models

// Movie is a rentable catalog entry. CostCents is the rental price.
type Movie struct {
	ID        int64
	Title     string
	Genre     string
	Year      int
	CostCents int64
	Available bool
}
