package server

import (
	"net/http"

	log "github.com/go-pkgz/lgr"
)

// handleLoginForm renders the login page.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	ctrl, root := s.controller(w, r)
	applied := ctrl.Initialize()

	data := templateData{
		Theme:   applied.String(),
		Dark:    root.Dark(),
		BaseURL: s.cfg.BaseURL,
		Version: s.cfg.Version,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "login.html", data); err != nil {
		log.Printf("[ERROR] failed to execute login template: %v", err)
	}
}

// handleLogin processes the login form submission.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		s.renderLoginError(w, r, "Username and password are required")
		return
	}

	if !s.auth.IsValidUser(username, password) {
		log.Printf("[WARN] failed login attempt for %q", username)
		s.renderLoginError(w, r, "Invalid username or password")
		return
	}

	token := s.auth.CreateSession(username)

	// set cookie - use __Host- prefix for enhanced security over HTTPS (only when no base URL)
	// __Host- prefix requires Path="/" which doesn't work with base URL
	cookieName := "shade-auth"
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	if secure && s.cfg.BaseURL == "" {
		cookieName = "__Host-shade-auth"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     s.cookiePath(),
		MaxAge:   int(s.auth.LoginTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	})

	log.Printf("[INFO] user %q logged in", username)
	http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
}

// handleLogout logs the user out by clearing the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// invalidate session
	for _, cookieName := range sessionCookieNames {
		if cookie, err := r.Cookie(cookieName); err == nil {
			s.auth.InvalidateSession(cookie.Value)
		}
	}

	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	// clear both cookies - need both paths for compatibility
	http.SetCookie(w, &http.Cookie{
		Name:     "shade-auth",
		Value:    "",
		Path:     s.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	})

	// clear __Host- cookie if baseURL is empty (it requires Path="/")
	if s.cfg.BaseURL == "" {
		http.SetCookie(w, &http.Cookie{
			Name:     "__Host-shade-auth",
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   true,
		})
	}

	http.Redirect(w, r, s.url("/login"), http.StatusSeeOther)
}

// renderLoginError renders the login page with an error message.
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errMsg string) {
	ctrl, root := s.controller(w, r)
	applied := ctrl.Initialize()

	data := templateData{
		Theme:   applied.String(),
		Dark:    root.Dark(),
		Error:   errMsg,
		BaseURL: s.cfg.BaseURL,
		Version: s.cfg.Version,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	if err := s.tmpl.ExecuteTemplate(w, "login.html", data); err != nil {
		log.Printf("[ERROR] failed to execute login template: %v", err)
	}
}
