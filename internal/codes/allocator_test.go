package codes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePrefersWords(t *testing.T) {
	a := NewAllocator([]string{"alpha", "Beta"})

	first := a.Allocate()
	second := a.Allocate()

	assert.ElementsMatch(t, []string{"ALPHA", "BETA"}, []string{first, second})
	assert.True(t, a.InUse("alpha"), "lookups are case-insensitive")
	assert.Equal(t, 2, a.Len())
}

func TestAllocateFallsBackWhenWordsExhausted(t *testing.T) {
	a := NewAllocator([]string{"ONLY"})
	require.Equal(t, "ONLY", a.Allocate())

	code := a.Allocate()
	assert.Len(t, code, FallbackLength)
	assert.Regexp(t, `^[A-Z0-9]{4}$`, code)
	assert.NotEqual(t, "ONLY", code)
}

func TestReleaseMakesWordAvailableAgain(t *testing.T) {
	a := NewAllocator([]string{"ONLY"})
	code := a.Allocate()
	a.Release(code)
	assert.False(t, a.InUse(code))
	assert.Equal(t, "ONLY", a.Allocate())
}

func TestReleaseIsIdempotent(t *testing.T) {
	a := NewAllocator(nil)
	code := a.Allocate()

	a.Release(code)
	a.Release(code)
	a.Release("NEVER-ISSUED")

	assert.Equal(t, 0, a.Len())
}

func TestDuplicateWordsAreCollapsed(t *testing.T) {
	a := NewAllocator([]string{"echo", "ECHO", " echo ", ""})
	require.Equal(t, "ECHO", a.Allocate())
	assert.Len(t, a.Allocate(), FallbackLength)
}

func TestConcurrentAllocateNeverCollides(t *testing.T) {
	a := NewAllocator(nil)
	const n = 300

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := a.Allocate()
			mu.Lock()
			got[code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, got, n)
	assert.Equal(t, n, a.Len())
}
