package models

import "time"

// Receipt records one successful checkout.
type Receipt struct {
	Author      string    `json:"author"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Total returns the amount spent on this receipt.
func (r Receipt) Total() float64 {
	return r.UnitPrice * float64(r.Quantity)
}
