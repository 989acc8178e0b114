// Package screenshot captures failure screenshots from the browser a test
// drove, and describes that browser for the result environment.
package screenshot

import (
	"context"
	"encoding/base64"
	"strings"
	"sync/atomic"

	"github.com/Goraved/aqareport/internal/record"
)

// DefaultLimit is the number of screenshots a process captures before it
// stops attaching them to failed records.
const DefaultLimit = 5

// Page is the browser page attached to a test.
type Page interface {
	// URL returns the address the page currently shows.
	URL(ctx context.Context) (string, error)
	// Screenshot returns a JPEG image of the visible viewport.
	Screenshot(ctx context.Context) ([]byte, error)
	// BrowserInfo describes the browser that owns the page.
	BrowserInfo(ctx context.Context) (record.BrowserInfo, error)
}

// Budget limits the number of screenshots per process.
type Budget struct {
	limit int64
	taken atomic.Int64
}

// NewBudget creates a budget for limit screenshots. A limit below zero
// disables the cap.
func NewBudget(limit int) *Budget {
	return &Budget{limit: int64(limit)}
}

// Take reserves one screenshot. It reports false once the budget is spent.
func (b *Budget) Take() bool {
	if b.limit < 0 {
		b.taken.Add(1)
		return true
	}
	for {
		n := b.taken.Load()
		if n >= b.limit {
			return false
		}
		if b.taken.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release returns a slot reserved by Take whose capture failed.
func (b *Budget) Release() {
	b.taken.Add(-1)
}

// Taken returns the number of screenshots reserved so far.
func (b *Budget) Taken() int {
	return int(b.taken.Load())
}

// Encode returns the base64 text stored in result records.
func Encode(img []byte) string {
	return base64.StdEncoding.EncodeToString(img)
}

// Describe probes the page's browser. Probing failures are reported as
// an unknown browser rather than an error.
func Describe(ctx context.Context, p Page) *record.BrowserInfo {
	if p == nil {
		return nil
	}
	info, err := p.BrowserInfo(ctx)
	if err != nil || info.Name == "" {
		unknown := record.UnknownBrowser
		return &unknown
	}
	return &info
}

// parseProduct splits a DevTools product string such as
// "HeadlessChrome/120.0.6099.28" into browser name and version.
func parseProduct(product string) record.BrowserInfo {
	name, version, ok := strings.Cut(product, "/")
	if !ok || name == "" {
		return record.UnknownBrowser
	}
	name = strings.TrimPrefix(name, "Headless")
	return record.BrowserInfo{Name: strings.ToLower(name), Version: version}
}
