// Package store provides persistent storage for per-profile UI preferences.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a preference is not found in the store.
var ErrNotFound = errors.New("preference not found")

// PrefInfo holds a single stored preference with its metadata.
type PrefInfo struct {
	Profile   string    `db:"profile" json:"profile"`
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Interface defines preference storage operations.
// Implemented by Store and the Cached wrapper.
type Interface interface {
	Get(profile, key string) (string, error)
	Set(profile, key, value string) error
	Delete(profile, key string) error
	List(profile string) ([]PrefInfo, error)
	Close() error
}

// RWLocker is a subset of sync.RWMutex, allows no-op implementation for
// databases with proper concurrent writer support.
type RWLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// noopLocker does nothing, used for postgres which handles concurrency itself.
type noopLocker struct{}

func (noopLocker) Lock()    {}
func (noopLocker) Unlock()  {}
func (noopLocker) RLock()   {}
func (noopLocker) RUnlock() {}

// ProfileView exposes a single profile's preferences as plain key-value
// access, hiding the profile dimension from callers.
type ProfileView struct {
	store   Interface
	profile string
}

// NewProfileView creates a view over the given profile.
func NewProfileView(s Interface, profile string) ProfileView {
	return ProfileView{store: s, profile: profile}
}

// Get retrieves the value for the key within the profile.
func (v ProfileView) Get(key string) (string, error) {
	return v.store.Get(v.profile, key)
}

// Set stores the value for the key within the profile.
func (v ProfileView) Set(key, value string) error {
	return v.store.Set(v.profile, key, value)
}
