package market

import (
	"context"
	"fmt"

	"github.com/Al10s/pupperteer-test/browser"
	"github.com/Al10s/pupperteer-test/config"
	"github.com/Al10s/pupperteer-test/diagnostics"
)

// Client is the single surface the buyer talks to: catalog operations
// plus session handling on one marketplace instance.
type Client struct {
	browser browser.Browser
	catalog *Catalog
}

func NewClient(b browser.Browser, rec *diagnostics.Recorder, cfg config.Config) *Client {
	return &Client{
		browser: b,
		catalog: NewCatalog(b, rec, cfg.HomeURL, cfg.WaitTimeout, cfg.NavTimeout),
	}
}

// AcceptCookies accepts the cookie consent banner on the home page.
func (c *Client) AcceptCookies(ctx context.Context) error {
	return c.catalog.AcceptCookies(ctx)
}

// CreateAccount registers a new account through the home page modal.
func (c *Client) CreateAccount(ctx context.Context, email, givenName, familyName string) error {
	return c.catalog.CreateAccount(ctx, email, givenName, familyName)
}

// OpenConnectionLink opens an authenticated link in a throwaway tab to
// pick up an existing session's cookies, then closes it.
func (c *Client) OpenConnectionLink(ctx context.Context, link string) error {
	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("open connection tab: %w", err)
	}
	defer page.Close()
	if err := page.Navigate(ctx, link); err != nil {
		return fmt.Errorf("open connection link: %w", err)
	}
	return nil
}

// SalesAvailable reports whether any sale is currently listed.
func (c *Client) SalesAvailable(ctx context.Context) (bool, error) {
	return c.catalog.SalesAvailable(ctx)
}

// Sales returns the sales visible on the home page.
func (c *Client) Sales(ctx context.Context) ([]*Sale, error) {
	return c.catalog.Sales(ctx)
}

// CheapestSale returns the cheapest currently listed sale.
func (c *Client) CheapestSale(ctx context.Context) (*Sale, error) {
	return c.catalog.CheapestSale(ctx)
}

// Reload discards the current sales and refreshes the home page.
func (c *Client) Reload(ctx context.Context) error {
	return c.catalog.Reload(ctx)
}

// Close releases all browsing contexts held by the client.
func (c *Client) Close() error {
	return c.catalog.Close()
}
