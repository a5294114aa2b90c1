package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Al10s/pupperteer-test/browser"
	"github.com/Al10s/pupperteer-test/diagnostics"
)

// Catalog is the marketplace landing surface: one shared tab on the
// home page, the cookie consent state, and the set of sales produced
// by the last enumeration. One Catalog lives for the whole run; the
// sale cache is cleared (and every cached sale's tab closed) on each
// Reload.
type Catalog struct {
	browser     browser.Browser
	rec         *diagnostics.Recorder
	homeURL     string
	waitTimeout time.Duration
	navTimeout  time.Duration

	page            browser.Page
	cookiesAccepted bool
	sales           []*Sale
}

func NewCatalog(b browser.Browser, rec *diagnostics.Recorder, homeURL string, waitTimeout, navTimeout time.Duration) *Catalog {
	return &Catalog{
		browser:     b,
		rec:         rec,
		homeURL:     homeURL,
		waitTimeout: waitTimeout,
		navTimeout:  navTimeout,
	}
}

// homePage lazily opens the shared tab and navigates it to the home
// page. The tab lives for the run's duration.
func (c *Catalog) homePage(ctx context.Context) (browser.Page, error) {
	if c.page != nil {
		return c.page, nil
	}
	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open home tab: %w", err)
	}
	if err := page.Navigate(ctx, c.homeURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("open home page %s: %w", c.homeURL, err)
	}
	c.page = page
	return c.page, nil
}

// AcceptCookies activates the consent control once per run. Subsequent
// calls are no-ops.
func (c *Catalog) AcceptCookies(ctx context.Context) error {
	if c.cookiesAccepted {
		return nil
	}
	page, err := c.homePage(ctx)
	if err != nil {
		return err
	}

	btn, err := page.Query(ctx, CookieButtonSelector)
	if err != nil {
		return fmt.Errorf("find cookie button: %w", err)
	}
	icon, err := page.Query(ctx, CookieButtonIconSelector)
	if err != nil {
		return fmt.Errorf("find cookie button icon: %w", err)
	}
	if btn == nil || icon == nil {
		c.rec.Debug(ctx, page, "CookiesError")
		return fmt.Errorf("cookie consent button: %w", ErrControlMissing)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("click cookie button: %w", err)
	}
	c.cookiesAccepted = true
	if err := page.WaitHidden(ctx, CookieButtonIconSelector, c.waitTimeout); err != nil {
		c.rec.Debug(ctx, page, "CookiesTimeoutError")
		return fmt.Errorf("waiting for cookie banner to close: %w: %v", ErrTimeout, err)
	}
	return nil
}

// CreateAccount drives the registration modal: open it from the nav
// menu, submit the email step, then the name step, and wait for the
// modal to close. Each step fails fast on its own missing control or
// expired wait; nothing is retried here.
func (c *Catalog) CreateAccount(ctx context.Context, email, givenName, familyName string) error {
	page, err := c.homePage(ctx)
	if err != nil {
		return err
	}

	buttons, err := page.QueryAll(ctx, NavMenuButtonSelector)
	if err != nil {
		return fmt.Errorf("read nav menu: %w", err)
	}
	var connect browser.Element
	for _, b := range buttons {
		label, err := b.Text(ctx)
		if err != nil {
			return fmt.Errorf("read nav menu label: %w", err)
		}
		if label == ConnectMenuLabel {
			connect = b
			break
		}
	}
	if connect == nil {
		return fmt.Errorf("connection menu button: %w", ErrControlMissing)
	}
	if err := connect.Click(ctx); err != nil {
		return fmt.Errorf("open connection modal: %w", err)
	}
	if err := page.WaitVisible(ctx, EmailFieldSelector, c.waitTimeout); err != nil {
		c.rec.Debug(ctx, page, "CreateAccountOpenModalTimeoutError")
		return fmt.Errorf("waiting for registration modal: %w: %v", ErrTimeout, err)
	}

	emailField, err := page.Query(ctx, EmailFieldSelector)
	if err != nil {
		return fmt.Errorf("find email field: %w", err)
	}
	if emailField == nil {
		return fmt.Errorf("email field: %w", ErrControlMissing)
	}
	if err := page.Type(ctx, EmailFieldSelector, email); err != nil {
		return fmt.Errorf("type email: %w", err)
	}
	emailBtn, err := page.Query(ctx, DialogSubmitSelector)
	if err != nil {
		return fmt.Errorf("find email validation button: %w", err)
	}
	if emailBtn == nil {
		return fmt.Errorf("email validation button: %w", ErrControlMissing)
	}
	if err := emailBtn.Click(ctx); err != nil {
		return fmt.Errorf("submit email: %w", err)
	}
	if err := page.WaitHidden(ctx, EmailFieldSelector, c.waitTimeout); err != nil {
		c.rec.Debug(ctx, page, "CreateAccountHideEmailTimeoutError")
		return fmt.Errorf("waiting for email step to finish: %w: %v", ErrTimeout, err)
	}

	if err := page.WaitVisible(ctx, FirstNameFieldSelector, c.waitTimeout); err != nil {
		c.rec.Debug(ctx, page, "CreateAccountShowFirstNameTimeoutError")
		return fmt.Errorf("waiting for the name step: %w: %v", ErrTimeout, err)
	}
	firstName, err := page.Query(ctx, FirstNameFieldSelector)
	if err != nil {
		return fmt.Errorf("find first name field: %w", err)
	}
	if firstName == nil {
		return fmt.Errorf("first name field: %w", ErrControlMissing)
	}
	lastName, err := page.Query(ctx, LastNameFieldSelector)
	if err != nil {
		return fmt.Errorf("find family name field: %w", err)
	}
	if lastName == nil {
		return fmt.Errorf("family name field: %w", ErrControlMissing)
	}
	if err := page.Type(ctx, FirstNameFieldSelector, givenName); err != nil {
		return fmt.Errorf("type first name: %w", err)
	}
	if err := page.Type(ctx, LastNameFieldSelector, familyName); err != nil {
		return fmt.Errorf("type family name: %w", err)
	}

	subscribe, err := page.Query(ctx, DialogSubmitSelector)
	if err != nil {
		return fmt.Errorf("find subscribe button: %w", err)
	}
	if subscribe == nil {
		return fmt.Errorf("subscribe button: %w", ErrControlMissing)
	}
	if err := subscribe.Click(ctx); err != nil {
		return fmt.Errorf("submit registration: %w", err)
	}
	if err := page.WaitHidden(ctx, DialogOverlaySelector, c.waitTimeout); err != nil {
		c.rec.Debug(ctx, page, "ValidateTimeoutError")
		return fmt.Errorf("waiting for registration modal to close: %w: %v", ErrTimeout, err)
	}
	return nil
}

// SalesAvailable is a cheap pre-check: true iff the "available" marker
// is present on the home page.
func (c *Catalog) SalesAvailable(ctx context.Context) (bool, error) {
	page, err := c.homePage(ctx)
	if err != nil {
		return false, err
	}
	marker, err := page.Query(ctx, AvailableMarkerSelector)
	if err != nil {
		return false, fmt.Errorf("check sales availability: %w", err)
	}
	return marker != nil, nil
}

// Sales enumerates the sales currently visible on the home page. The
// result is cached until Reload.
func (c *Catalog) Sales(ctx context.Context) ([]*Sale, error) {
	if c.sales != nil {
		return c.sales, nil
	}
	page, err := c.homePage(ctx)
	if err != nil {
		return nil, err
	}

	container, err := page.Query(ctx, SalesContainerSelector)
	if err != nil {
		return nil, fmt.Errorf("find sales container: %w", err)
	}
	if container == nil {
		c.rec.Debug(ctx, page, "SalesContainerError")
		return nil, fmt.Errorf("sales container: %w", ErrNoContainer)
	}
	children, err := container.QueryAll(ctx, SaleAnchorSelector)
	if err != nil {
		return nil, fmt.Errorf("enumerate sales: %w", err)
	}
	if len(children) == 0 {
		c.rec.Debug(ctx, page, "SalesChildrenError")
		return nil, fmt.Errorf("home page sales: %w", ErrNoSales)
	}

	sales := make([]*Sale, len(children))
	for i, child := range children {
		sales[i] = newSale(c.browser, child, c.rec, c.waitTimeout, c.navTimeout)
	}
	c.sales = sales
	return c.sales, nil
}

// CheapestSale resolves the prices of all cached sales concurrently
// and returns the first sale carrying the minimum price, in
// enumeration order. The fan-out is safe: each sale only writes its
// own cache and each result lands in its own slot.
func (c *Catalog) CheapestSale(ctx context.Context) (*Sale, error) {
	sales, err := c.Sales(ctx)
	if err != nil {
		return nil, err
	}

	prices := make([]float64, len(sales))
	errs := make([]error, len(sales))
	var wg sync.WaitGroup
	for i, sale := range sales {
		wg.Add(1)
		go func(i int, sale *Sale) {
			defer wg.Done()
			prices[i], errs[i] = sale.Price(ctx)
		}(i, sale)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("resolve price of sale %d: %w", i, err)
		}
	}

	cheapest := 0
	for i := 1; i < len(prices); i++ {
		// Strict < keeps the first minimum on ties.
		if prices[i] < prices[cheapest] {
			cheapest = i
		}
	}
	return sales[cheapest], nil
}

// Reload closes every cached sale's tab, clears the cache and reloads
// the home page. It must complete before the next enumeration so no
// stale handle survives into the next cycle.
func (c *Catalog) Reload(ctx context.Context) error {
	page, err := c.homePage(ctx)
	if err != nil {
		return err
	}

	var closeErr error
	for i, sale := range c.sales {
		if err := sale.Close(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("close sale %d: %w", i, err)
		}
	}
	c.sales = nil

	if err := page.Reload(ctx); err != nil {
		return fmt.Errorf("reload home page: %w", err)
	}
	return closeErr
}

// Close releases every cached sale and the shared home tab.
func (c *Catalog) Close() error {
	var firstErr error
	for _, sale := range c.sales {
		if err := sale.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.sales = nil
	if c.page != nil {
		if err := c.page.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.page = nil
	}
	return firstErr
}
