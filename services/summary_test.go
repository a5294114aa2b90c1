package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Al10s/pupperteer-test/models"
)

func TestBuildRunSummaryEmpty(t *testing.T) {
	summary := BuildRunSummary(nil)
	require.Zero(t, summary.TotalTickets)
	require.Zero(t, summary.TotalSpend)
	require.Empty(t, summary.PerSeller)
}

func TestBuildRunSummaryAggregates(t *testing.T) {
	receipts := []models.Receipt{
		{Author: "Marie", UnitPrice: 6, Quantity: 2},
		{Author: "Paul", UnitPrice: 8, Quantity: 1},
		{Author: "Marie", UnitPrice: 5, Quantity: 1},
	}

	summary := BuildRunSummary(receipts)
	require.Equal(t, 4, summary.TotalTickets)
	require.Equal(t, 25.0, summary.TotalSpend)
	require.Equal(t, 5.0, summary.MinUnitPrice)
	require.Equal(t, 8.0, summary.MaxUnitPrice)
	require.Equal(t, 6.25, summary.AvgUnitPrice)

	require.Equal(t, []SellerCount{
		{Author: "Marie", Tickets: 3},
		{Author: "Paul", Tickets: 1},
	}, summary.PerSeller)
}

func TestBuildRunSummaryBreaksSellerTiesByName(t *testing.T) {
	receipts := []models.Receipt{
		{Author: "Zoe", UnitPrice: 6, Quantity: 1},
		{Author: "Anna", UnitPrice: 6, Quantity: 1},
	}

	summary := BuildRunSummary(receipts)
	require.Equal(t, []SellerCount{
		{Author: "Anna", Tickets: 1},
		{Author: "Zoe", Tickets: 1},
	}, summary.PerSeller)
}
