// internal/codes/allocator.go
package codes

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
)

// FallbackLength is the length of the random codes issued once every word is taken.
const FallbackLength = 4

const fallbackChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Allocator issues session codes that are unique among live sessions.
// Words are preferred; random alphanumeric codes are used when the list is exhausted.
type Allocator struct {
	mu    sync.Mutex
	words []string
	inUse map[string]struct{}
}

// NewAllocator builds an allocator over the given word list. A nil list uses DefaultWords.
func NewAllocator(words []string) *Allocator {
	if words == nil {
		words = DefaultWords
	}
	normalized := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = Normalize(w)
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		normalized = append(normalized, w)
	}
	return &Allocator{
		words: normalized,
		inUse: make(map[string]struct{}),
	}
}

// Normalize maps user input onto the canonical code form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Allocate reserves and returns a code not held by any live session.
func (a *Allocator) Allocate() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	available := make([]string, 0, len(a.words))
	for _, w := range a.words {
		if _, taken := a.inUse[w]; !taken {
			available = append(available, w)
		}
	}
	if len(available) > 0 {
		code := available[randomIndex(len(available))]
		a.inUse[code] = struct{}{}
		return code
	}

	for {
		code := randomCode(FallbackLength)
		if _, taken := a.inUse[code]; !taken {
			a.inUse[code] = struct{}{}
			return code
		}
	}
}

// Release returns a code to the pool. Releasing an unknown code is a no-op.
func (a *Allocator) Release(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inUse, Normalize(code))
}

// InUse reports whether code is currently reserved.
func (a *Allocator) InUse(code string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inUse[Normalize(code)]
	return ok
}

// Len is the number of reserved codes.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inUse)
}

func randomCode(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = fallbackChars[randomIndex(len(fallbackChars))]
	}
	return string(out)
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}
