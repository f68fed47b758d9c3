package api

import (
	"log/slog"
	"net/http"
)

const (
	// AdminSessionCookie carries the admin session token.
	AdminSessionCookie = "admin_session"
	// AdminCSRFCookie carries the double-submit CSRF token.
	AdminCSRFCookie = "admin_csrf"
	// CSRFHeader must echo the AdminCSRFCookie value on state-changing requests.
	CSRFHeader = "X-CSRF-Token"

	// AdminOffersLimit caps the admin offers listing.
	AdminOffersLimit = 200
)

// AdminGate decides whether an admin request is authorized. Session issuance
// lives outside this service.
type AdminGate interface {
	IsSessionValid(token string) bool
	IsCSRFValid(r *http.Request) bool
}

// Compile-time interface check
var _ AdminGate = (*TokenGate)(nil)

// TokenGate accepts a session cookie equal to a configured token and checks
// CSRF by double submission. An empty token rejects every session.
type TokenGate struct {
	sessionToken string
}

// NewTokenGate creates a gate for sessionToken.
func NewTokenGate(sessionToken string) *TokenGate {
	return &TokenGate{sessionToken: sessionToken}
}

// Configured reports whether a session token is set.
func (g *TokenGate) Configured() bool {
	return g.sessionToken != ""
}

// IsSessionValid compares token with the configured session token in
// constant time.
func (g *TokenGate) IsSessionValid(token string) bool {
	if g.sessionToken == "" || token == "" {
		return false
	}
	return constantTimeEqual(token, g.sessionToken)
}

// IsCSRFValid requires a non-empty X-CSRF-Token header equal to the
// admin_csrf cookie.
func (g *TokenGate) IsCSRFValid(r *http.Request) bool {
	cookie, err := r.Cookie(AdminCSRFCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	header := r.Header.Get(CSRFHeader)
	if header == "" {
		return false
	}
	return constantTimeEqual(cookie.Value, header)
}

// AdminSessionMiddleware rejects requests without a valid admin session.
func AdminSessionMiddleware(gate AdminGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(AdminSessionCookie); err == nil {
				token = cookie.Value
			}
			if !gate.IsSessionValid(token) {
				slog.Warn("admin session rejected",
					"component", "api",
					"path", r.URL.Path,
					"method", r.Method,
				)
				WriteProblemCode(w, r, http.StatusUnauthorized, "admin_session_missing", "Admin session required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ListAdminOffers handles GET /api/admin/offers
func (h *Handler) ListAdminOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.store.ListOffers(r.Context(), AdminOffersLimit)
	if err != nil {
		slog.Error("list offers failed", "component", "api", "error", err)
		MapStoreError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, offers)
}

// DeleteAdminSession handles DELETE /api/admin/session. The session itself
// is checked by AdminSessionMiddleware.
func (h *Handler) DeleteAdminSession(w http.ResponseWriter, r *http.Request) {
	if !h.gate.IsCSRFValid(r) {
		WriteProblemCode(w, r, http.StatusForbidden, "csrf_failed", "Invalid CSRF token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AdminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCSRFCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	writeData(w, http.StatusOK, map[string]bool{"ok": true})
}
