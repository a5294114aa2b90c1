package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Al10s/pupperteer-test/browser/browsertest"
	"github.com/Al10s/pupperteer-test/config"
	"github.com/Al10s/pupperteer-test/market"
	"github.com/Al10s/pupperteer-test/models"
)

const (
	homeURL  = "https://ts.example/event"
	connLink = "https://ts.example/connect/abc"
)

// testConfig keeps both retry delays at zero so Run never sleeps.
func testConfig(tickets int, maxPrice float64) config.Config {
	return config.Config{
		HomeURL:        homeURL,
		AccountCreated: true,
		ConnectionLink: connLink,
		MaxPrice:       maxPrice,
		TicketCount:    tickets,
		WaitTimeout:    time.Second,
		NavTimeout:     time.Second,
	}
}

func newHomePage() *browsertest.Page {
	p := browsertest.NewPage()
	p.SetElements(market.CookieButtonSelector, browsertest.NewElement("Accepter"))
	p.SetElements(market.CookieButtonIconSelector, browsertest.NewElement(""))
	return p
}

func listSales(p *browsertest.Page, cards ...*browsertest.Element) {
	p.SetElements(market.AvailableMarkerSelector, browsertest.NewElement("Tickets disponibles"))
	container := browsertest.NewElement("").WithChildren(market.SaleAnchorSelector, cards...)
	p.SetElements(market.SalesContainerSelector, container)
}

func clearSales(p *browsertest.Page) {
	p.SetElements(market.AvailableMarkerSelector)
	p.SetElements(market.SalesContainerSelector)
}

func saleCard(author, price, href string) *browsertest.Element {
	return browsertest.NewElement("").
		WithAttr("href", href).
		WithChildren(market.SaleFooterFieldSelector,
			browsertest.NewElement(author),
			browsertest.NewElement(price),
		)
}

// salePage scripts the page behind a sale card: n ticket rows plus a
// working checkout button.
func salePage(n int) (*browsertest.Page, []*browsertest.Element) {
	p := browsertest.NewPage()
	rows := make([]*browsertest.Element, n)
	for i := range rows {
		rows[i] = browsertest.NewElement("ticket")
	}
	p.SetElements(market.TicketRowSelector, rows...)
	p.SetElements(market.CheckoutButtonSelector, browsertest.NewElement("Add to cart"))
	return p, rows
}

type recordingSink struct {
	saved []models.Receipt
	err   error
}

func (s *recordingSink) SaveReceipt(ctx context.Context, r models.Receipt) error {
	s.saved = append(s.saved, r)
	return s.err
}

func TestRunBuysFromTheCheapestAcceptableSale(t *testing.T) {
	home := newHomePage()
	listSales(home,
		saleCard("Paul", "€8,00", "https://ts.example/sale/1"),
		saleCard("Marie", "€6,00", "https://ts.example/sale/2"),
	)
	sale, rows := salePage(5)

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, browsertest.NewPage(), sale}}
	sink := &recordingSink{}
	cfg := testConfig(2, 7)
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), sink, nil)

	require.NoError(t, buyer.Run(context.Background()))

	receipts := buyer.Receipts()
	require.Len(t, receipts, 1)
	require.Equal(t, "Marie", receipts[0].Author)
	require.Equal(t, 6.0, receipts[0].UnitPrice)
	require.Equal(t, 2, receipts[0].Quantity)
	require.Equal(t, receipts, sink.saved)

	// Five rows came preselected; only the first three get clicked off.
	for i := 0; i < 3; i++ {
		require.Equal(t, 1, rows[i].Clicks, "row %d", i)
	}
	for i := 3; i < 5; i++ {
		require.Zero(t, rows[i].Clicks, "row %d", i)
	}
}

func TestRunUsesConnectionLinkForExistingAccounts(t *testing.T) {
	home := newHomePage()
	listSales(home, saleCard("Marie", "€6,00", "https://ts.example/sale/1"))
	sale, _ := salePage(1)
	connPage := browsertest.NewPage()

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, connPage, sale}}
	cfg := testConfig(1, 10)
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), nil, nil)

	require.NoError(t, buyer.Run(context.Background()))
	require.Equal(t, []string{connLink}, connPage.Navigated)
	require.True(t, connPage.Closed)
}

func TestRunCreatesAccountWhenNoneExists(t *testing.T) {
	home := newHomePage()
	home.SetElements(market.NavMenuButtonSelector,
		browsertest.NewElement("Vendre"),
		browsertest.NewElement(market.ConnectMenuLabel),
	)
	home.SetElements(market.EmailFieldSelector, browsertest.NewElement(""))
	home.SetElements(market.FirstNameFieldSelector, browsertest.NewElement(""))
	home.SetElements(market.LastNameFieldSelector, browsertest.NewElement(""))
	home.SetElements(market.DialogSubmitSelector, browsertest.NewElement("Valider"))
	listSales(home, saleCard("Marie", "€6,00", "https://ts.example/sale/1"))
	sale, _ := salePage(1)

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, sale}}
	cfg := testConfig(1, 10)
	cfg.AccountCreated = false
	cfg.ConnectionLink = ""
	cfg.Email = "marie@example.org"
	cfg.GivenName = "Marie"
	cfg.FamilyName = "Curie"
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), nil, nil)

	require.NoError(t, buyer.Run(context.Background()))
	require.Equal(t, "marie@example.org", home.Typed[market.EmailFieldSelector])
	require.Equal(t, "Marie", home.Typed[market.FirstNameFieldSelector])
	require.Equal(t, "Curie", home.Typed[market.LastNameFieldSelector])
}

func TestRunRetriesWhenNothingIsListed(t *testing.T) {
	home := newHomePage()
	clearSales(home)
	home.OnReload = func() {
		listSales(home, saleCard("Marie", "€6,00", "https://ts.example/sale/1"))
	}
	sale, _ := salePage(1)

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, browsertest.NewPage(), sale}}
	cfg := testConfig(1, 10)
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), nil, nil)

	require.NoError(t, buyer.Run(context.Background()))
	require.Equal(t, 1, home.Reloads)
	require.Len(t, buyer.Receipts(), 1)
}

func TestRunSkipsSalesAboveTheCap(t *testing.T) {
	home := newHomePage()
	listSales(home, saleCard("Paul", "€10,00", "https://ts.example/sale/1"))
	home.OnReload = func() {
		listSales(home, saleCard("Marie", "€6,00", "https://ts.example/sale/2"))
	}
	sale, _ := salePage(2)

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, browsertest.NewPage(), sale}}
	cfg := testConfig(2, 7)
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), nil, nil)

	require.NoError(t, buyer.Run(context.Background()))

	receipts := buyer.Receipts()
	require.Len(t, receipts, 1)
	require.Equal(t, "Marie", receipts[0].Author)
	require.Equal(t, 2, receipts[0].Quantity)
}

func TestRunAccumulatesPartialFulfillments(t *testing.T) {
	home := newHomePage()
	listSales(home, saleCard("Paul", "€5,00", "https://ts.example/sale/1"))
	home.OnReload = func() {
		listSales(home, saleCard("Marie", "€6,00", "https://ts.example/sale/2"))
	}
	firstSale, _ := salePage(2)
	secondSale, secondRows := salePage(3)

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, browsertest.NewPage(), firstSale, secondSale}}
	cfg := testConfig(3, 10)
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), nil, nil)

	require.NoError(t, buyer.Run(context.Background()))

	receipts := buyer.Receipts()
	require.Len(t, receipts, 2)
	require.Equal(t, 2, receipts[0].Quantity)
	require.Equal(t, 5.0, receipts[0].UnitPrice)
	require.Equal(t, 1, receipts[1].Quantity)
	require.Equal(t, 6.0, receipts[1].UnitPrice)

	// One ticket was still needed on the second pass, so two of the
	// three rows get deselected.
	require.Equal(t, 1, secondRows[0].Clicks)
	require.Equal(t, 1, secondRows[1].Clicks)
	require.Zero(t, secondRows[2].Clicks)
}

func TestRunStopsOnTheFirstUnrecoveredError(t *testing.T) {
	// No cookie banner icon: consent fails before any purchase.
	home := browsertest.NewPage()
	home.SetElements(market.CookieButtonSelector, browsertest.NewElement("Accepter"))

	b := &browsertest.Browser{Queue: []*browsertest.Page{home}}
	cfg := testConfig(1, 10)
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), nil, nil)

	err := buyer.Run(context.Background())
	require.ErrorIs(t, err, market.ErrControlMissing)
	require.ErrorContains(t, err, "acquisition run")
	require.Empty(t, buyer.Receipts())
}

func TestRunToleratesReceiptSinkFailures(t *testing.T) {
	home := newHomePage()
	listSales(home, saleCard("Marie", "€6,00", "https://ts.example/sale/1"))
	sale, _ := salePage(1)

	b := &browsertest.Browser{Queue: []*browsertest.Page{home, browsertest.NewPage(), sale}}
	cfg := testConfig(1, 10)
	sink := &recordingSink{err: context.DeadlineExceeded}
	buyer := NewBuyer(cfg, market.NewClient(b, nil, cfg), sink, nil)

	require.NoError(t, buyer.Run(context.Background()))
	require.Len(t, buyer.Receipts(), 1)
}
