package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Al10s/pupperteer-test/config"
	"github.com/Al10s/pupperteer-test/eventlog"
	"github.com/Al10s/pupperteer-test/market"
	"github.com/Al10s/pupperteer-test/models"
)

// ReceiptSink persists receipts of successful checkouts.
type ReceiptSink interface {
	SaveReceipt(ctx context.Context, r models.Receipt) error
}

// Buyer drives the acquisition loop: authenticate once, then poll the
// marketplace, pick the cheapest acceptable sale and buy tickets until
// the configured count is reached.
//
// The Buyer owns the remaining-ticket accounting exclusively. The
// count only ever decreases, by the granted amount of a successful
// checkout, so the run can never buy more than was asked for in total
// across all sales.
type Buyer struct {
	cfg      config.Config
	client   *market.Client
	receipts ReceiptSink
	events   *eventlog.Writer

	bought []models.Receipt
}

func NewBuyer(cfg config.Config, client *market.Client, receipts ReceiptSink, events *eventlog.Writer) *Buyer {
	return &Buyer{
		cfg:      cfg,
		client:   client,
		receipts: receipts,
		events:   events,
	}
}

// Receipts returns the receipts collected during Run, in purchase order.
func (b *Buyer) Receipts() []models.Receipt {
	return b.bought
}

// Run executes the acquisition loop until the ticket target is reached
// or the first unrecovered error. Errors are never retried in place;
// the only retry is the sleep-then-reload between incomplete cycles.
func (b *Buyer) Run(ctx context.Context) error {
	eventlog.Emit(b.events, eventlog.Event{
		Event:       eventlog.EventRunStart,
		TicketsLeft: b.cfg.TicketCount,
		MaxPrice:    b.cfg.MaxPrice,
	})

	// Accept cookies to clear space and allow authentication.
	if err := b.client.AcceptCookies(ctx); err != nil {
		return b.fail(err)
	}

	if !b.cfg.AccountCreated {
		log.Printf("Creating account")
		if err := b.client.CreateAccount(ctx, b.cfg.Email, b.cfg.GivenName, b.cfg.FamilyName); err != nil {
			return b.fail(err)
		}
	} else {
		log.Printf("Using connection link")
		if err := b.client.OpenConnectionLink(ctx, b.cfg.ConnectionLink); err != nil {
			return b.fail(err)
		}
	}

	ticketsLeft := b.cfg.TicketCount
	for ticketsLeft > 0 {
		log.Printf("There are %d ticket(s) left to buy", ticketsLeft)

		bought, err := b.cycle(ctx, ticketsLeft)
		if err != nil {
			return b.fail(err)
		}
		ticketsLeft -= bought

		if ticketsLeft > 0 {
			delay := b.cfg.RandomDelay()
			log.Printf("Next try in %s", delay)
			eventlog.Emit(b.events, eventlog.Event{
				Event:       eventlog.EventBackoff,
				TicketsLeft: ticketsLeft,
				DelayMs:     delay.Milliseconds(),
			})
			time.Sleep(delay)
			if err := b.client.Reload(ctx); err != nil {
				return b.fail(err)
			}
		}
	}

	log.Printf("✓ All %d ticket(s) bought", b.cfg.TicketCount)
	eventlog.Emit(b.events, eventlog.Event{Event: eventlog.EventRunDone})
	return nil
}

// cycle runs one acquisition pass and returns how many tickets were
// bought in it. A pass that legitimately finds nothing to buy returns
// (0, nil); backing off is the caller's business.
func (b *Buyer) cycle(ctx context.Context, ticketsLeft int) (int, error) {
	available, err := b.client.SalesAvailable(ctx)
	if err != nil {
		return 0, err
	}
	if !available {
		log.Printf("There are no sales available")
		eventlog.Emit(b.events, eventlog.Event{Event: eventlog.EventNoSales, TicketsLeft: ticketsLeft})
		return 0, nil
	}

	// CheapestSale resolves every sale's price concurrently; the loop
	// below only reads the memoized values back for reporting.
	cheapest, err := b.client.CheapestSale(ctx)
	if err != nil {
		return 0, err
	}
	sales, err := b.client.Sales(ctx)
	if err != nil {
		return 0, err
	}
	prices := make([]float64, len(sales))
	log.Printf("There are %d available sales:", len(sales))
	for i, sale := range sales {
		price, err := sale.Price(ctx)
		if err != nil {
			return 0, err
		}
		prices[i] = price
		log.Printf("%g€", price)
	}
	cheapestPrice, err := cheapest.Price(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("Cheapest sale: %g€", cheapestPrice)
	eventlog.Emit(b.events, eventlog.Event{
		Event:       eventlog.EventPriced,
		TicketsLeft: ticketsLeft,
		Prices:      prices,
		Cheapest:    cheapestPrice,
		MaxPrice:    b.cfg.MaxPrice,
	})

	if cheapestPrice > b.cfg.MaxPrice {
		log.Printf("The tickets are too expensive")
		eventlog.Emit(b.events, eventlog.Event{
			Event:       eventlog.EventTooExpensive,
			TicketsLeft: ticketsLeft,
			Cheapest:    cheapestPrice,
			MaxPrice:    b.cfg.MaxPrice,
		})
		return 0, nil
	}

	// The author comes from the home page card, so it must be read
	// before checkout navigates the flow forward.
	author, err := cheapest.Author(ctx)
	if err != nil {
		return 0, err
	}

	granted, err := cheapest.SelectTickets(ctx, ticketsLeft)
	if err != nil {
		return 0, err
	}
	if err := cheapest.Checkout(ctx); err != nil {
		return 0, err
	}
	log.Printf("%d ticket(s) bought in this sale", granted)

	receipt := models.Receipt{
		Author:      author,
		UnitPrice:   cheapestPrice,
		Quantity:    granted,
		PurchasedAt: time.Now(),
	}
	b.bought = append(b.bought, receipt)
	if b.receipts != nil {
		if err := b.receipts.SaveReceipt(ctx, receipt); err != nil {
			log.Printf("⚠ receipt not persisted: %v", err)
		}
	}
	eventlog.Emit(b.events, eventlog.Event{
		Event:       eventlog.EventPurchase,
		TicketsLeft: ticketsLeft - granted,
		Author:      author,
		Cheapest:    cheapestPrice,
		Granted:     granted,
	})
	return granted, nil
}

func (b *Buyer) fail(err error) error {
	eventlog.Emit(b.events, eventlog.Event{Event: eventlog.EventRunError, Err: err.Error()})
	return fmt.Errorf("acquisition run: %w", err)
}
