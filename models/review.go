package models

import "time"

// Review is a customer review as served by the remote API.
type Review struct {
	ID        uint64    `json:"id"`
	ProductID ProductID `json:"product_id,omitempty"`
	Name      string    `json:"name"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewStats is the summary returned by /reviews/stats/summary.
type ReviewStats struct {
	TotalReviews  int64   `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
}
