// Package theme holds the dark/light display mode. It is independent of the
// refresh cycle.
package theme

import (
	"fmt"
	"io"
	"sync"

	"campwatch/pkg/render"

	"github.com/charmbracelet/log"
)

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// Key is the store key holding the theme.
const Key = "theme"

func Parse(s string) (Theme, error) {
	switch Theme(s) {
	case Dark, Light:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Controller reads, toggles and persists the theme and keeps the desktop and
// mobile indicator pairs on the sink in agreement with it.
type Controller struct {
	store  Store
	sink   render.Sink
	logger *log.Logger

	mu      sync.Mutex
	current Theme
}

func NewController(store Store, sink render.Sink, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{store: store, sink: sink, logger: logger, current: Dark}
}

// Init loads the persisted theme, defaulting to Dark when unset or invalid.
// The result is shown even when writing it back fails.
func (c *Controller) Init() Theme {
	t := Dark
	if v, ok, err := c.store.Get(Key); err != nil {
		c.logger.Warn("theme store unreadable, using dark", "err", err)
	} else if ok {
		if parsed, err := Parse(v); err == nil {
			t = parsed
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	c.applyLocked()
	if err := c.store.Set(Key, string(t)); err != nil {
		c.logger.Warn("persist theme", "err", err)
	}
	return t
}

// Set persists t, then updates the indicators. If persisting fails nothing
// changes.
func (c *Controller) Set(t Theme) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(t)
}

// Toggle flips between dark and light.
func (c *Controller) Toggle() (Theme, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := Dark
	if c.current == Dark {
		next = Light
	}
	if err := c.setLocked(next); err != nil {
		return c.current, err
	}
	return next, nil
}

func (c *Controller) setLocked(t Theme) error {
	if err := c.store.Set(Key, string(t)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	c.current = t
	c.applyLocked()
	return nil
}

func (c *Controller) Current() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// applyLocked shows the sun icons in dark mode and the moon icons in light.
func (c *Controller) applyLocked() {
	if c.sink == nil {
		return
	}
	dark := c.current == Dark
	c.sink.SetVisible(render.TargetSunIcon, dark)
	c.sink.SetVisible(render.TargetMobileSunIcon, dark)
	c.sink.SetVisible(render.TargetMoonIcon, !dark)
	c.sink.SetVisible(render.TargetMobileMoonIcon, !dark)
}
