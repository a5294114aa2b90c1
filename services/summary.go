package services

import (
	"sort"

	"github.com/Al10s/pupperteer-test/models"
)

type SellerCount struct {
	Author  string
	Tickets int
}

// RunSummary aggregates the receipts of one acquisition run.
type RunSummary struct {
	TotalTickets int
	TotalSpend   float64
	MinUnitPrice float64
	MaxUnitPrice float64
	AvgUnitPrice float64
	PerSeller    []SellerCount
}

// BuildRunSummary folds the run's receipts into a printable summary.
func BuildRunSummary(receipts []models.Receipt) RunSummary {
	summary := RunSummary{}
	if len(receipts) == 0 {
		return summary
	}

	perSeller := make(map[string]int)
	minPrice := receipts[0].UnitPrice
	maxPrice := receipts[0].UnitPrice

	for _, r := range receipts {
		summary.TotalTickets += r.Quantity
		summary.TotalSpend += r.Total()
		perSeller[r.Author] += r.Quantity
		if r.UnitPrice < minPrice {
			minPrice = r.UnitPrice
		}
		if r.UnitPrice > maxPrice {
			maxPrice = r.UnitPrice
		}
	}

	summary.MinUnitPrice = minPrice
	summary.MaxUnitPrice = maxPrice
	if summary.TotalTickets > 0 {
		summary.AvgUnitPrice = summary.TotalSpend / float64(summary.TotalTickets)
	}

	sellers := make([]SellerCount, 0, len(perSeller))
	for author, tickets := range perSeller {
		sellers = append(sellers, SellerCount{Author: author, Tickets: tickets})
	}
	sort.Slice(sellers, func(i, j int) bool {
		if sellers[i].Tickets == sellers[j].Tickets {
			return sellers[i].Author < sellers[j].Author
		}
		return sellers[i].Tickets > sellers[j].Tickets
	})
	summary.PerSeller = sellers

	return summary
}
