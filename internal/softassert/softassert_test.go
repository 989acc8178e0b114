package softassert

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Check(t *testing.T) {
	c := New()

	assert.True(t, c.Check(true, "never recorded"))
	assert.False(t, c.HasFailures())

	_, _, line, _ := runtime.Caller(0)
	assert.False(t, c.Check(1+1 == 3, "math is %s", "broken"))

	require.True(t, c.HasFailures())
	failures := c.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, fmt.Sprintf("1. Line: %d. \nmath is broken ", line+1), failures[0])
}

func TestCollector_Numbering(t *testing.T) {
	var c Collector
	c.Check(false, "first")
	c.Equal("Cart (1)", "Cart (0)", "cart badge")
	c.NoError(errors.New("timeout"), "open checkout")

	failures := c.Failures()
	require.Len(t, failures, 3)
	assert.True(t, strings.HasPrefix(failures[0], "1. Line: "))
	assert.True(t, strings.HasPrefix(failures[1], "2. Line: "))
	assert.Contains(t, failures[1], "cart badge")
	assert.Contains(t, failures[1], "diff (-expected +actual)")
	assert.True(t, strings.HasPrefix(failures[2], "3. Line: "))
	assert.Contains(t, failures[2], "open checkout: timeout")
}

func TestCollector_EqualPasses(t *testing.T) {
	c := New()
	assert.True(t, c.Equal([]string{"a"}, []string{"a"}, "slices"))
	assert.True(t, c.NoError(nil, "nothing"))
	assert.False(t, c.HasFailures())
	assert.Empty(t, c.Failures())
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Check(false, "check %d", i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, c.Failures(), 20)
}
