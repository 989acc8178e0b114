package screenshot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Goraved/aqareport/internal/record"
)

type stubPage struct {
	info record.BrowserInfo
	err  error
}

func (p stubPage) URL(context.Context) (string, error)        { return "https://shop.example.com", nil }
func (p stubPage) Screenshot(context.Context) ([]byte, error) { return []byte{0xff, 0xd8}, nil }
func (p stubPage) BrowserInfo(context.Context) (record.BrowserInfo, error) {
	return p.info, p.err
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	assert.True(t, b.Take())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
	assert.Equal(t, 2, b.Taken())
}

func TestBudget_Unlimited(t *testing.T) {
	b := NewBudget(-1)
	for i := 0; i < 10; i++ {
		assert.True(t, b.Take())
	}
	assert.Equal(t, 10, b.Taken())
}

func TestBudget_Concurrent(t *testing.T) {
	b := NewBudget(DefaultLimit)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Take() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, DefaultLimit, granted)
}

func TestParseProduct(t *testing.T) {
	tests := []struct {
		product string
		want    record.BrowserInfo
	}{
		{"HeadlessChrome/120.0.6099.28", record.BrowserInfo{Name: "chrome", Version: "120.0.6099.28"}},
		{"Chrome/119.0.0.0", record.BrowserInfo{Name: "chrome", Version: "119.0.0.0"}},
		{"garbage", record.UnknownBrowser},
		{"", record.UnknownBrowser},
	}
	for _, tt := range tests {
		t.Run(tt.product, func(t *testing.T) {
			assert.Equal(t, tt.want, parseProduct(tt.product))
		})
	}
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, Describe(ctx, nil))

	info := Describe(ctx, stubPage{info: record.BrowserInfo{Name: "chromium", Version: "120"}})
	assert.Equal(t, &record.BrowserInfo{Name: "chromium", Version: "120"}, info)

	info = Describe(ctx, stubPage{err: errors.New("target closed")})
	assert.Equal(t, "Unknown", info.Name)
	assert.Equal(t, "Unknown", info.Version)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "/9g=", Encode([]byte{0xff, 0xd8}))
}

func TestBudget_Release(t *testing.T) {
	b := NewBudget(1)
	assert.True(t, b.Take())
	b.Release()
	assert.Equal(t, 0, b.Taken())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
}
