package testbrowser

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"
)

type Manager struct {
	baseBrowser *rod.Browser
	sem         *semaphore.Weighted

	Timeout time.Duration
}

type ManagerConfig struct {
	// ControlURL is the DevTools websocket URL of a running browser. When empty a local browser is launched.
	ControlURL         string
	MaxConcurrentTests int64
	Timeout            time.Duration
}

func NewManager(config ManagerConfig) (*Manager, error) {
	browser := rod.New()
	if config.ControlURL != "" {
		browser = browser.ControlURL(config.ControlURL)
	}
	err := browser.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to browser failed: %w", err)
	}

	maxConcurrentTests := int64(1)
	if config.MaxConcurrentTests != 0 {
		maxConcurrentTests = config.MaxConcurrentTests
	} else if n, err := strconv.ParseInt(os.Getenv("TESTBROWSER_MAX_CONCURRENT_TESTS"), 10, 32); err == nil {
		maxConcurrentTests = n
	}
	if maxConcurrentTests <= 0 {
		return nil, fmt.Errorf("invalid MaxConcurrentTests: %v", maxConcurrentTests)
	}

	timeout := 5 * time.Second
	if config.Timeout != 0 {
		timeout = config.Timeout
	}

	manager := &Manager{
		baseBrowser: browser,
		sem:         semaphore.NewWeighted(maxConcurrentTests),
		Timeout:     timeout,
	}

	return manager, nil
}

// Acquire returns a TestBrowser. Resources are automatically cleaned up at the end of the test.
func (m *Manager) Acquire(t testing.TB) *Browser {
	err := m.sem.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { m.sem.Release(1) })

	browser := m.baseBrowser.MustIncognito()
	t.Cleanup(browser.MustClose)

	testBrowser := &Browser{
		t:       t,
		Browser: browser,
		Timeout: m.Timeout,
	}

	return testBrowser
}

type Browser struct {
	t testing.TB
	*rod.Browser
	Timeout time.Duration
}

func (b *Browser) Page() *Page {
	page, err := b.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.t.Fatal(err)
	}

	return &Page{
		t:       b.t,
		Page:    page,
		Timeout: b.Timeout,
	}
}

type Page struct {
	t testing.TB
	*rod.Page
	Timeout time.Duration
}

// Visit navigates to url and waits for the page's scripts to finish loading.
func (p *Page) Visit(url string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)
	err := page.Navigate(url)
	if err != nil {
		p.t.Fatalf("failed to navigate to %s: %v", url, err)
	}

	err = page.WaitLoad()
	if err != nil {
		p.t.Fatalf("failed to load %s: %v", url, err)
	}
}

func (p *Page) ClickOn(jsRegex string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)

	el, err := page.ElementR(`a, button, input[type="submit"]`, jsRegex)
	if err != nil {
		p.t.Fatalf("failed to find clickable element: %s", jsRegex)
	}

	err = el.Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		p.t.Fatalf("failed to click element")
	}
}

func (p *Page) ClickOnSelector(selector string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)

	el, err := page.Element(selector)
	if err != nil {
		p.t.Fatalf("failed to find element by selector %q", selector)
	}

	err = el.Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		p.t.Fatalf("failed to click element %q", selector)
	}
}

func (p *Page) HasContent(selector, jsRegex string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)
	_, err := page.ElementR(selector, jsRegex)
	if err != nil {
		p.t.Fatalf("failed to find element by selector %q with content matching %q", selector, jsRegex)
	}
}

// HasClass reports whether the first element matching selector has class.
func (p *Page) HasClass(selector, class string) bool {
	p.t.Helper()

	result, err := p.Page.Timeout(p.Timeout).Eval(`(s, c) => document.querySelector(s).classList.contains(c)`, selector, class)
	if err != nil {
		p.t.Fatalf("failed to read class list of %q: %v", selector, err)
	}

	return result.Value.Bool()
}

// Count returns the number of elements matching selector.
func (p *Page) Count(selector string) int {
	p.t.Helper()

	result, err := p.Page.Timeout(p.Timeout).Eval(`(s) => document.querySelectorAll(s).length`, selector)
	if err != nil {
		p.t.Fatalf("failed to count elements matching %q: %v", selector, err)
	}

	return result.Value.Int()
}

// InnerHTML returns the inner HTML of the first element matching selector.
func (p *Page) InnerHTML(selector string) string {
	p.t.Helper()

	result, err := p.Page.Timeout(p.Timeout).Eval(`(s) => document.querySelector(s).innerHTML`, selector)
	if err != nil {
		p.t.Fatalf("failed to read inner HTML of %q: %v", selector, err)
	}

	return result.Value.Str()
}

// Await evaluates js, which must return a promise, and waits for the promise to settle.
func (p *Page) Await(js string, args ...any) {
	p.t.Helper()

	_, err := p.Page.Timeout(p.Timeout).Eval(js, args...)
	if err != nil {
		p.t.Fatalf("failed to await %s: %v", js, err)
	}
}

// WaitFor waits until js returns true.
func (p *Page) WaitFor(js string, args ...any) {
	p.t.Helper()

	err := p.Page.Timeout(p.Timeout).Wait(rod.Eval(js, args...))
	if err != nil {
		p.t.Fatalf("timed out waiting for %s: %v", js, err)
	}
}
