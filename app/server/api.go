package server

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/autodev/shade/app/enum"
	"github.com/autodev/shade/app/store"
	"github.com/autodev/shade/app/theme"
)

// themeResponse is the JSON payload for theme endpoints.
type themeResponse struct {
	Theme  string `json:"theme"`
	Stored bool   `json:"stored"` // false when the profile has no persisted preference
}

// themeRequest is the JSON payload accepted by the set endpoint.
type themeRequest struct {
	Theme string `json:"theme"`
}

// handleAPIThemeGet returns the effective theme for the calling profile.
// GET /api/v1/theme
func (s *Server) handleAPIThemeGet(w http.ResponseWriter, r *http.Request) {
	profile := s.profileID(w, r)

	value, err := s.store.Get(profile, theme.PreferenceKey)
	if errors.Is(err, store.ErrNotFound) {
		rest.RenderJSON(w, themeResponse{Theme: enum.ThemeLight.String()})
		return
	}
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to get theme")
		return
	}

	// anything but the exact "dark" degrades to the default light
	mode := enum.ThemeLight
	if value == enum.ThemeDark.String() {
		mode = enum.ThemeDark
	}
	rest.RenderJSON(w, themeResponse{Theme: mode.String(), Stored: true})
}

// handleAPIThemeSet stores an explicit theme for the calling profile.
// PUT /api/v1/theme
func (s *Server) handleAPIThemeSet(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusBadRequest, err, "failed to decode request")
		return
	}

	mode, err := enum.ParseTheme(req.Theme)
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusBadRequest, err, "invalid theme")
		return
	}

	profile := s.profileID(w, r)
	if err := s.store.Set(profile, theme.PreferenceKey, mode.String()); err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to set theme")
		return
	}

	log.Printf("[INFO] theme set to %s for %s", mode, profile)
	rest.RenderJSON(w, themeResponse{Theme: mode.String(), Stored: true})
}

// handleAPIThemeToggle inverts the theme for the calling profile through the
// controller, so the persisted value always reflects the post-toggle state.
// POST /api/v1/theme/toggle
func (s *Server) handleAPIThemeToggle(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.controller(w, r)
	ctrl.Initialize()

	mode, err := ctrl.Toggle()
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to toggle theme")
		return
	}

	log.Printf("[DEBUG] theme toggled to %s via api", mode)
	rest.RenderJSON(w, themeResponse{Theme: mode.String(), Stored: true})
}

// handleAPIThemeDelete forgets the stored preference for the calling profile.
// DELETE /api/v1/theme
func (s *Server) handleAPIThemeDelete(w http.ResponseWriter, r *http.Request) {
	profile := s.profileID(w, r)

	err := s.store.Delete(profile, theme.PreferenceKey)
	if errors.Is(err, store.ErrNotFound) {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, err, "no stored preference")
		return
	}
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to delete theme")
		return
	}

	log.Printf("[INFO] theme preference removed for %s", profile)
	w.WriteHeader(http.StatusNoContent)
}

// handleAPIPreferences lists all stored preferences for the calling profile.
// GET /api/v1/preferences
func (s *Server) handleAPIPreferences(w http.ResponseWriter, r *http.Request) {
	profile := s.profileID(w, r)

	prefs, err := s.store.List(profile)
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to list preferences")
		return
	}
	if prefs == nil {
		prefs = []store.PrefInfo{}
	}
	rest.RenderJSON(w, prefs)
}
