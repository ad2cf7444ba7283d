// internal/content/fallback.go
package content

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FallbackProvider serves canned prompts in a fixed rotation per category.
// It never fails and its output depends only on call order and player names.
//
// The rotation is process-wide: one cursor per category is shared by every
// session using the provider, so a session sees the lines other sessions left.
// Sessions guard against repeats themselves through their prompt attempts.
type FallbackProvider struct {
	mu      sync.Mutex
	cursors map[string]int
}

func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{cursors: make(map[string]int)}
}

// GeneratePrompt returns the next canned prompt for category.
func (f *FallbackProvider) GeneratePrompt(_ context.Context, category string, names []string) string {
	c, ok := Categories[category]
	if !ok || len(c.Fallbacks) == 0 {
		return DefaultFallback
	}

	f.mu.Lock()
	n := f.cursors[category]
	f.cursors[category] = n + 1
	f.mu.Unlock()

	line := c.Fallbacks[n%len(c.Fallbacks)]
	if !strings.Contains(line, "%s") {
		return line
	}
	name := "Player"
	if len(names) > 0 {
		name = names[n%len(names)]
	}
	return fmt.Sprintf(line, name)
}
