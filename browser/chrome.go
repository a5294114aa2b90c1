package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/Al10s/pupperteer-test/config"
)

// NewAllocator creates a Chrome exec allocator context from the given Config.
func NewAllocator(parent context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	return chromedp.NewExecAllocator(parent, opts...)
}

// Chrome implements Browser on top of a chromedp exec allocator.
// Each Page is its own chromedp context, i.e. its own browser tab.
type Chrome struct {
	allocCtx context.Context
}

// NewChrome wraps an allocator context produced by NewAllocator.
func NewChrome(allocCtx context.Context) *Chrome {
	return &Chrome{allocCtx: allocCtx}
}

func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.allocCtx)
	// Run with no actions forces the tab to actually open, so a broken
	// Chrome install fails here instead of on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// run executes actions on the tab's own context. chromedp binds every
// tab to the context that created it, so the caller's ctx only
// contributes its deadline and cancellation signal.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tctx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(tctx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Reload(ctx context.Context) error {
	return p.run(ctx, chromedp.Reload())
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var url string
	err := p.run(ctx, chromedp.Location(&url))
	return url, err
}

func (p *chromePage) Query(ctx context.Context, selector string) (Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &chromeElement{page: p, node: nodes[0]}, nil
}

func (p *chromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query all %q: %w", selector, err)
	}
	els := make([]Element, len(nodes))
	for i, n := range nodes {
		els[i] = &chromeElement{page: p, node: n}
	}
	return els, nil
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitNotPresent(selector, chromedp.ByQuery))
}

// WaitNavigation polls the tab's location until it differs from the
// URL the interaction started on. chromedp has no direct equivalent of
// a navigation listener, and comparing before/after locations is how
// chromedp scrapers detect a page change anyway.
func (p *chromePage) WaitNavigation(ctx context.Context, from string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-tctx.Done():
			return tctx.Err()
		case <-ticker.C:
			var url string
			if err := chromedp.Run(tctx, chromedp.Location(&url)); err != nil {
				return err
			}
			if url != "" && url != from {
				return nil
			}
		}
	}
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.FullScreenshot(&buf, 90))
	return buf, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) PDF(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
		return err
	}))
	return buf, err
}

func (p *chromePage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

type chromeElement struct {
	page *chromePage
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.page.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	err := e.page.run(ctx, chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromeElement) Query(ctx context.Context, selector string) (Element, error) {
	var nodes []*cdp.Node
	err := e.page.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %q under node: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &chromeElement{page: e.page, node: nodes[0]}, nil
}

func (e *chromeElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := e.page.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query all %q under node: %w", selector, err)
	}
	els := make([]Element, len(nodes))
	for i, n := range nodes {
		els[i] = &chromeElement{page: e.page, node: n}
	}
	return els, nil
}
