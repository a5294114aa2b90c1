package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Al10s/pupperteer-test/browser/browsertest"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"€1.234,56", 1234.56},
		{"€56", 56},
		{"€6,50", 6.5},
		{" €120,00 ", 120},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.text)
		require.NoError(t, err, tc.text)
		require.Equal(t, tc.want, got, tc.text)
	}
}

func TestParsePriceRejectsMissingGlyph(t *testing.T) {
	for _, text := range []string{"12,00", "$12,00", "", "EUR 12"} {
		_, err := ParsePrice(text)
		require.ErrorIs(t, err, ErrPriceFormat, text)
	}
}

func newTestSale(b *browsertest.Browser, handle *browsertest.Element) *Sale {
	return newSale(b, handle, nil, time.Second, time.Second)
}

func saleHandle(author, price string) *browsertest.Element {
	return browsertest.NewElement("").
		WithAttr("href", "https://ts.example/sale/1").
		WithChildren(SaleFooterFieldSelector,
			browsertest.NewElement(author),
			browsertest.NewElement(price),
		)
}

func TestSaleAuthorAndPriceAreCached(t *testing.T) {
	ctx := context.Background()
	handle := saleHandle("Marie", "€42,50")
	sale := newTestSale(&browsertest.Browser{}, handle)

	author, err := sale.Author(ctx)
	require.NoError(t, err)
	require.Equal(t, "Marie", author)

	price, err := sale.Price(ctx)
	require.NoError(t, err)
	require.Equal(t, 42.5, price)

	// Mutating the live fields must not show through the memoized values.
	handle.Children[SaleFooterFieldSelector][0].TextValue = "Paul"
	handle.Children[SaleFooterFieldSelector][1].TextValue = "€99,99"

	author, err = sale.Author(ctx)
	require.NoError(t, err)
	require.Equal(t, "Marie", author)

	price, err = sale.Price(ctx)
	require.NoError(t, err)
	require.Equal(t, 42.5, price)
}

func TestSaleRejectsUnexpectedFooterShape(t *testing.T) {
	ctx := context.Background()
	handle := browsertest.NewElement("").WithChildren(SaleFooterFieldSelector,
		browsertest.NewElement("only one field"),
	)
	sale := newTestSale(&browsertest.Browser{}, handle)

	_, err := sale.Author(ctx)
	require.ErrorIs(t, err, ErrStructuralMismatch)
	_, err = sale.Price(ctx)
	require.ErrorIs(t, err, ErrStructuralMismatch)
}

func ticketRows(n int) []*browsertest.Element {
	rows := make([]*browsertest.Element, n)
	for i := range rows {
		rows[i] = browsertest.NewElement("ticket")
	}
	return rows
}

func TestSelectTicketsGrantsAllWhenAskingForMore(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	rows := ticketRows(3)
	page.SetElements(TicketRowSelector, rows...)

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	granted, err := sale.SelectTickets(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 3, granted)
	for i, row := range rows {
		require.Zero(t, row.Clicks, "row %d must stay selected", i)
	}
}

func TestSelectTicketsDeselectsFromTheFront(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	rows := ticketRows(5)
	page.SetElements(TicketRowSelector, rows...)

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	granted, err := sale.SelectTickets(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, granted)

	// The first len-granted rows get clicked off, the tail stays.
	for i := 0; i < 3; i++ {
		require.Equal(t, 1, rows[i].Clicks, "row %d should be deselected", i)
	}
	for i := 3; i < 5; i++ {
		require.Zero(t, rows[i].Clicks, "row %d should stay selected", i)
	}
}

func TestSelectTicketsFailsOnEmptySale(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	_, err := sale.SelectTickets(ctx, 1)
	require.ErrorIs(t, err, ErrNoTickets)
}

func TestSaleOpensItsPageOnce(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	page.SetElements(TicketRowSelector, ticketRows(2)...)

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	_, err := sale.SelectTickets(ctx, 1)
	require.NoError(t, err)
	_, err = sale.SelectTickets(ctx, 1)
	require.NoError(t, err)

	require.Len(t, b.Opened, 1)
	require.Equal(t, []string{"https://ts.example/sale/1"}, page.Navigated)
}

func TestCheckoutClicksAndWaitsForNavigation(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	page.SetElements(TicketRowSelector, ticketRows(2)...)
	btn := browsertest.NewElement("Add to cart")
	page.SetElements(CheckoutButtonSelector, btn)

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	_, err := sale.SelectTickets(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, sale.Checkout(ctx))
	require.Equal(t, 1, btn.Clicks)
}

func TestCheckoutFailsWithoutButton(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	page.SetElements(TicketRowSelector, ticketRows(2)...)

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	err := sale.Checkout(ctx)
	require.ErrorIs(t, err, ErrControlMissing)
}

func TestCheckoutTimesOutWhenPageDoesNotMove(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	page.SetElements(TicketRowSelector, ticketRows(2)...)
	page.SetElements(CheckoutButtonSelector, browsertest.NewElement("Add to cart"))
	page.NavigationErr = context.DeadlineExceeded

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	err := sale.Checkout(ctx)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSaleCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage()
	page.SetElements(TicketRowSelector, ticketRows(1)...)
	closes := 0
	page.CloseFunc = func() { closes++ }

	b := &browsertest.Browser{Queue: []*browsertest.Page{page}}
	sale := newTestSale(b, saleHandle("Marie", "€10,00"))

	_, err := sale.SelectTickets(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, sale.Close())
	require.NoError(t, sale.Close())
	require.Equal(t, 1, closes)
	require.True(t, page.Closed)
}

func TestSaleCloseWithoutPageIsNoop(t *testing.T) {
	sale := newTestSale(&browsertest.Browser{}, saleHandle("Marie", "€10,00"))
	require.NoError(t, sale.Close())
	require.NoError(t, sale.Close())
}
