package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Al10s/pupperteer-test/browser"
	"github.com/Al10s/pupperteer-test/diagnostics"
)

// Sale is one purchasable offer discovered on the home page.
//
// It is backed by a handle to the sale's card element, so an instance
// is only valid for the page render that produced it — after a reload
// a fresh enumeration must produce fresh instances. Author and price
// are resolved once and cached for the instance's lifetime; a new
// price means a new Sale.
type Sale struct {
	browser     browser.Browser
	handle      browser.Element
	rec         *diagnostics.Recorder
	waitTimeout time.Duration
	navTimeout  time.Duration

	fields []browser.Element

	author    string
	authorSet bool

	price    float64
	priceSet bool

	page   browser.Page
	closed bool
}

func newSale(b browser.Browser, handle browser.Element, rec *diagnostics.Recorder, waitTimeout, navTimeout time.Duration) *Sale {
	return &Sale{
		browser:     b,
		handle:      handle,
		rec:         rec,
		waitTimeout: waitTimeout,
		navTimeout:  navTimeout,
	}
}

// footerFields resolves the two-field footer beneath the sale card
// (seller label, price label) and caches it.
func (s *Sale) footerFields(ctx context.Context) ([]browser.Element, error) {
	if s.fields != nil {
		return s.fields, nil
	}
	fields, err := s.handle.QueryAll(ctx, SaleFooterFieldSelector)
	if err != nil {
		return nil, fmt.Errorf("read sale footer: %w", err)
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("sale footer has %d fields, expected 2: %w", len(fields), ErrStructuralMismatch)
	}
	s.fields = fields
	return s.fields, nil
}

// Author returns the seller label of the sale.
func (s *Sale) Author(ctx context.Context) (string, error) {
	if s.authorSet {
		return s.author, nil
	}
	fields, err := s.footerFields(ctx)
	if err != nil {
		return "", err
	}
	author, err := fields[0].Text(ctx)
	if err != nil {
		return "", fmt.Errorf("read sale author: %w", err)
	}
	s.author = strings.TrimSpace(author)
	s.authorSet = true
	return s.author, nil
}

// Price returns the per-ticket price of the sale in euros.
func (s *Sale) Price(ctx context.Context) (float64, error) {
	if s.priceSet {
		return s.price, nil
	}
	fields, err := s.footerFields(ctx)
	if err != nil {
		return 0, err
	}
	text, err := fields[1].Text(ctx)
	if err != nil {
		return 0, fmt.Errorf("read sale price: %w", err)
	}
	price, err := ParsePrice(text)
	if err != nil {
		return 0, err
	}
	s.price = price
	s.priceSet = true
	return s.price, nil
}

// ParsePrice parses a euro-prefixed, European-formatted amount such as
// "€1.234,56" into 1234.56. The text must begin with the euro glyph;
// the remainder uses "." as thousands separator and "," as decimal
// point.
func ParsePrice(text string) (float64, error) {
	text = strings.TrimSpace(text)
	first, size := utf8.DecodeRuneInString(text)
	if first != '€' {
		return 0, fmt.Errorf("price %q does not start with \"€\": %w", text, ErrPriceFormat)
	}
	raw := text[size:]
	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.Replace(raw, ",", ".", 1)
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("price %q is not a number: %w", text, ErrPriceFormat)
	}
	return price, nil
}

// salePage lazily opens the sale's dedicated tab, navigating to the
// card's link target.
func (s *Sale) salePage(ctx context.Context) (browser.Page, error) {
	if s.page != nil {
		return s.page, nil
	}
	href, ok, err := s.handle.Attribute(ctx, "href")
	if err != nil {
		return nil, fmt.Errorf("read sale link: %w", err)
	}
	if !ok || strings.TrimSpace(href) == "" {
		return nil, fmt.Errorf("sale link has no href: %w", ErrStructuralMismatch)
	}
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open sale tab: %w", err)
	}
	if err := page.Navigate(ctx, href); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("open sale %s: %w", href, err)
	}
	s.page = page
	return s.page, nil
}

// SelectTickets keeps at most want tickets selected in the sale and
// returns how many ended up selected.
//
// All rows start selected. When the sale offers more tickets than
// needed, the excess rows are clicked off starting from the front of
// the enumeration, keeping the tail selected. That ordering is an
// arbitrary but fixed tie-break, not a preference over seats.
func (s *Sale) SelectTickets(ctx context.Context, want int) (int, error) {
	page, err := s.salePage(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := page.QueryAll(ctx, TicketRowSelector)
	if err != nil {
		return 0, fmt.Errorf("enumerate tickets: %w", err)
	}
	if len(rows) == 0 {
		s.rec.Debug(ctx, page, "SelectError")
		return 0, fmt.Errorf("sale offers zero tickets: %w", ErrNoTickets)
	}

	granted := len(rows)
	if granted > want {
		granted = want
	}
	for i := 0; i < len(rows)-granted; i++ {
		if err := rows[i].Click(ctx); err != nil {
			return 0, fmt.Errorf("deselect ticket %d: %w", i, err)
		}
	}
	return granted, nil
}

// Checkout submits the current ticket selection and waits for the
// navigation away from the selection page that confirms acceptance. On
// success a timestamped audit screenshot is captured.
func (s *Sale) Checkout(ctx context.Context) error {
	page, err := s.salePage(ctx)
	if err != nil {
		return err
	}

	btn, err := page.Query(ctx, CheckoutButtonSelector)
	if err != nil {
		return fmt.Errorf("find checkout button: %w", err)
	}
	if btn == nil {
		s.rec.Debug(ctx, page, "CheckoutError")
		return fmt.Errorf("checkout button: %w", ErrControlMissing)
	}

	from, err := page.Location(ctx)
	if err != nil {
		return fmt.Errorf("read sale page location: %w", err)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("click checkout button: %w", err)
	}
	if err := page.WaitNavigation(ctx, from, s.navTimeout); err != nil {
		s.rec.Debug(ctx, page, "CheckoutTimeoutError")
		return fmt.Errorf("waiting for checkout confirmation: %w: %v", ErrTimeout, err)
	}

	s.rec.Audit(ctx, page)
	return nil
}

// Close releases the sale's dedicated tab if one was opened. Idempotent.
func (s *Sale) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.page == nil {
		return nil
	}
	return s.page.Close()
}
