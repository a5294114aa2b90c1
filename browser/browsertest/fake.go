// Package browsertest provides scripted in-memory implementations of
// the browser interfaces for package tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Al10s/pupperteer-test/browser"
)

// Browser hands out fake pages. Pages are served from Queue in order;
// once the queue is drained new blank pages are created.
type Browser struct {
	mu     sync.Mutex
	Queue  []*Page
	Opened []*Page
}

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var p *Page
	if len(b.Queue) > 0 {
		p = b.Queue[0]
		b.Queue = b.Queue[1:]
	} else {
		p = NewPage()
	}
	b.Opened = append(b.Opened, p)
	return p, nil
}

// Page is a scripted browsing context. Selector lookups are served
// from Elements; waits succeed unless an error is scripted for the
// selector.
type Page struct {
	mu sync.Mutex

	URL      string
	Elements map[string][]*Element

	// Scripted failures, keyed by selector.
	VisibleErr map[string]error
	HiddenErr  map[string]error

	NavigationErr error // returned by WaitNavigation
	NavigateErr   error

	// Hooks let tests mutate page state on lifecycle events.
	OnNavigate func(url string)
	OnReload   func()
	OnClick    func(selector string)

	Navigated []string
	Clicked   []string
	Typed     map[string]string
	Reloads   int

	ScreenshotData []byte
	HTMLData       string
	PDFData        []byte

	Closed    bool
	CloseFunc func()
}

func NewPage() *Page {
	return &Page{
		Elements:   map[string][]*Element{},
		VisibleErr: map[string]error{},
		HiddenErr:  map[string]error{},
		Typed:      map[string]string{},
	}
}

// SetElements replaces the elements served for a selector.
func (p *Page) SetElements(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Elements[selector] = els
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigated = append(p.Navigated, url)
	p.URL = url
	hook := p.OnNavigate
	err := p.NavigateErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(url)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.Reloads++
	hook := p.OnReload
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, nil
}

func (p *Page) Query(ctx context.Context, selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.Elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.Elements[selector]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.Clicked = append(p.Clicked, selector)
	hook := p.OnClick
	missing := len(p.Elements[selector]) == 0
	p.mu.Unlock()
	if missing {
		return fmt.Errorf("click %q: no element", selector)
	}
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Elements[selector]) == 0 {
		return fmt.Errorf("type into %q: no element", selector)
	}
	p.Typed[selector] += text
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.VisibleErr[selector]
}

func (p *Page) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HiddenErr[selector]
}

func (p *Page) WaitNavigation(ctx context.Context, from string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NavigationErr != nil {
		return p.NavigationErr
	}
	if p.URL == from {
		p.URL = from + "#moved"
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.ScreenshotData, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.HTMLData, nil
}

func (p *Page) PDF(ctx context.Context) ([]byte, error) {
	return p.PDFData, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	already := p.Closed
	p.Closed = true
	fn := p.CloseFunc
	p.mu.Unlock()
	if !already && fn != nil {
		fn()
	}
	return nil
}

// Element is a scripted DOM element handle.
type Element struct {
	mu sync.Mutex

	TextValue string
	TextErr   error
	Attrs     map[string]string
	Children  map[string][]*Element

	Clicks  int
	OnClick func()
}

func NewElement(text string) *Element {
	return &Element{
		TextValue: text,
		Attrs:     map[string]string{},
		Children:  map[string][]*Element{},
	}
}

// WithAttr sets an attribute and returns the element for chaining.
func (e *Element) WithAttr(name, value string) *Element {
	e.Attrs[name] = value
	return e
}

// WithChildren sets the elements served for a relative selector.
func (e *Element) WithChildren(selector string, els ...*Element) *Element {
	e.Children[selector] = els
	return e
}

func (e *Element) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.TextValue, e.TextErr
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Click(ctx context.Context) error {
	e.mu.Lock()
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) Query(ctx context.Context, selector string) (browser.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	els := e.Children[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (e *Element) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	els := e.Children[selector]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}
