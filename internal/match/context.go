package match

import (
	"errors"
	"sync"
	"time"

	"github.com/TheFortz/combat/pkg/core"
)

// ErrNoMatch is returned when match-scoped work arrives outside a match.
var ErrNoMatch = errors.New("no match in progress")

// Context holds the match currently being recorded.
type Context struct {
	mu     sync.RWMutex
	match  *core.Match
	active bool
}

// NewContext creates a Context with a placeholder match.
func NewContext() *Context {
	return &Context{
		match: &core.Match{Name: "No match loaded", MapName: "No map loaded"},
	}
}

// GetMatch returns the current match.
func (c *Context) GetMatch() *core.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match
}

// Start makes m the current match.
func (c *Context) Start(m *core.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = m
	c.active = true
}

// End marks the current match finished and returns it with its duration.
func (c *Context) End(now time.Time) (*core.Match, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return c.match, 0, false
	}
	c.active = false
	return c.match, now.Sub(c.match.StartTime), true
}

// Active reports whether a match is being recorded.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}
