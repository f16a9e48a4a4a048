package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/autodev/shade/app/store"
	"github.com/autodev/shade/app/theme"
)

// profileCookie identifies an anonymous visitor, minted on first visit.
const profileCookie = "shade-profile"

//go:embed static
var staticFS embed.FS

//go:embed templates
var templatesFS embed.FS

// templateData holds data passed to templates.
type templateData struct {
	Theme          string
	Dark           bool
	ControlEnabled bool
	AuthEnabled    bool
	Username       string
	Error          string
	BaseURL        string
	Version        string
}

// pageRoot is the presentation root for a single rendered page: the scope the
// visual mode applies to, with the toggle control present or not.
type pageRoot struct {
	control bool
	dark    bool
}

func (p *pageRoot) HasControl() bool  { return p.control }
func (p *pageRoot) Dark() bool        { return p.dark }
func (p *pageRoot) SetDark(dark bool) { p.dark = dark }

// parseTemplates parses all templates from embedded filesystem.
func parseTemplates() (*template.Template, error) {
	tmpl := template.New("")

	for _, name := range []string{"base.html", "login.html"} {
		content, err := templatesFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	return tmpl, nil
}

// staticHandler returns a handler for static files.
func staticHandler() http.Handler {
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static sub filesystem: %v", err)
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(staticContent)))
}

// profileID returns the preference profile for the request: the logged-in
// username when a session is active, otherwise the visitor uuid from the
// profile cookie, minting a new one if absent.
func (s *Server) profileID(w http.ResponseWriter, r *http.Request) string {
	if username := s.currentUser(r); username != "" {
		return "user:" + username
	}

	if cookie, err := r.Cookie(profileCookie); err == nil && cookie.Value != "" {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     profileCookie,
		Value:    id,
		Path:     s.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// controller builds a theme controller for the request's profile over a fresh
// presentation root, mirroring the per-page lifecycle of the toggle.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*theme.Controller, *pageRoot) {
	root := &pageRoot{control: s.cfg.ControlEnabled}
	view := store.NewProfileView(storeAdapter{s.store}, s.profileID(w, r))
	return theme.NewController(root, view), root
}

// storeAdapter adapts the consumer-side Store interface to store.Interface
// for ProfileView. Close and the unused operations never reach the adapter.
type storeAdapter struct {
	Store
}

func (storeAdapter) Close() error { return nil }

// handleIndex renders the main page with the visitor's restored theme.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl, root := s.controller(w, r)
	applied := ctrl.Initialize()

	data := templateData{
		Theme:          applied.String(),
		Dark:           root.Dark(),
		ControlEnabled: s.cfg.ControlEnabled,
		AuthEnabled:    s.auth.Enabled(),
		Username:       s.currentUser(r),
		BaseURL:        s.cfg.BaseURL,
		Version:        s.cfg.Version,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("[ERROR] failed to execute template: %v", err)
	}
}

// handleThemeToggle inverts the theme for the visitor's profile and persists
// the result, then sends the browser back to the page it came from.
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.controller(w, r)
	ctrl.Initialize()

	mode, err := ctrl.Toggle()
	if err != nil {
		log.Printf("[ERROR] failed to toggle theme: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Printf("[DEBUG] theme toggled to %s", mode)
	http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
}
