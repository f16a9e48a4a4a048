// Package theme binds a single toggle control to the light/dark visual mode
// and keeps the applied mode consistent with a durable key-value store.
package theme

import (
	"fmt"

	"github.com/autodev/shade/app/enum"
)

// PreferenceKey is the store key holding the persisted theme name.
const PreferenceKey = "autodev-theme"

// Store is the key-value persistence collaborator.
// Get returns an error when the key is absent; the controller treats any
// failed read the same as a missing value.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Root is the presentation root collaborator: the top-level scope the visual
// mode applies to, plus the presence check for the designated toggle control.
type Root interface {
	HasControl() bool
	Dark() bool
	SetDark(dark bool)
}

// Controller keeps exactly one visual mode flag consistent between the
// presentation root, an in-memory value and the store. Both entry points run
// to completion synchronously; callers serialize invocations.
type Controller struct {
	root  Root
	store Store
}

// NewController creates a controller bound to the given presentation root and
// store. Neither may be nil.
func NewController(root Root, store Store) *Controller {
	return &Controller{root: root, store: store}
}

// Initialize restores the persisted preference onto the presentation root and
// returns the applied mode. If the root has no designated control the whole
// setup is skipped, including the store read, and the root stays light.
// A stored value of exactly "dark" applies dark mode; absence or any other
// value leaves the default light presentation. Read-only and idempotent.
func (c *Controller) Initialize() enum.Theme {
	if !c.root.HasControl() {
		return enum.ThemeLight
	}
	value, err := c.store.Get(PreferenceKey)
	if err != nil || value != enum.ThemeDark.String() {
		// absent or malformed values degrade to light, no error surfaced
		return enum.ThemeLight
	}
	c.root.SetDark(true)
	return enum.ThemeDark
}

// Toggle inverts the presentation root's current mode and persists the
// post-toggle mode under PreferenceKey. The write always reflects the state
// after the inversion. Returns the new mode.
func (c *Controller) Toggle() (enum.Theme, error) {
	mode := enum.ThemeLight
	if c.root.Dark() {
		mode = enum.ThemeDark
	}
	if !c.root.HasControl() {
		// no control means no listener was ever attached, nothing to do
		return mode, nil
	}

	mode = mode.Toggle()
	c.root.SetDark(mode.Dark())

	if err := c.store.Set(PreferenceKey, mode.String()); err != nil {
		return mode, fmt.Errorf("failed to persist theme %q: %w", mode, err)
	}
	return mode, nil
}
