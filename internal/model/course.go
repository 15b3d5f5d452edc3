package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Course is the catalog entry a purchase item points at.  Only the
// fields the purchase and provisioning pipeline reads are modelled
// here; catalog authoring lives outside this service.
//
// TotalStudents, AverageRating and TotalReviews are denormalized
// aggregates.  Each must equal a pure function of the current
// enrollment/review rows and is rewritten by the stats service right
// after the operation that changed the source rows.
type Course struct {
    ID            uint64          `json:"id"`
    Title         string          `json:"title"`
    Price         decimal.Decimal `json:"price"`
    TotalStudents int             `json:"total_students"`
    AverageRating float64         `json:"average_rating"`
    TotalReviews  int             `json:"total_reviews"`
    CreatedAt     time.Time       `json:"created_at"`
    UpdatedAt     time.Time       `json:"updated_at"`
}
