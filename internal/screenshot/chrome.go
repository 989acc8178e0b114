package screenshot

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/Goraved/aqareport/internal/record"
)

// JPEGQuality is the compression quality of failure screenshots.
const JPEGQuality = 60

// ChromePage is a Page backed by a chromedp browser tab.
type ChromePage struct {
	ctx context.Context
}

// NewChromePage wraps a context created with chromedp.NewContext.
func NewChromePage(tabCtx context.Context) *ChromePage {
	return &ChromePage{ctx: tabCtx}
}

// Context returns the chromedp tab context for driving the page.
func (p *ChromePage) Context() context.Context {
	return p.ctx
}

// URL returns the current location of the tab.
func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read page url: %w", err)
	}
	return url, nil
}

// Screenshot captures the visible viewport as a JPEG in CSS pixels.
func (p *ChromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(JPEGQuality).
			WithFromSurface(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// BrowserInfo reads the browser product from the DevTools protocol.
func (p *ChromePage) BrowserInfo(ctx context.Context) (record.BrowserInfo, error) {
	var product string
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		_, product, _, _, _, err = browser.GetVersion().Do(ctx)
		return err
	}))
	if err != nil {
		return record.BrowserInfo{}, fmt.Errorf("get browser version: %w", err)
	}
	return parseProduct(product), nil
}

// run executes actions on the tab, cancelling them when ctx is done.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(p.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LaunchOptions configures a local Chrome instance.
type LaunchOptions struct {
	Headless bool
	Width    int
	Height   int
}

// Launch starts a browser and opens a tab. The returned cancel function
// closes the tab and the browser.
func Launch(ctx context.Context, opts LaunchOptions) (*ChromePage, context.CancelFunc, error) {
	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		width, height = 1280, 720
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(width, height),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}
	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	return NewChromePage(tabCtx), cancel, nil
}
