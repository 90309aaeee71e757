package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"expirygenie/internal/cache"
)

// CookieName is the session cookie set on successful login.
const CookieName = "genie_session"

// DefaultSessionTTL keeps users logged in for a week of inactivity.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Sessions maps opaque tokens to user emails with TTL + LRU eviction.
// Sessions are in-process only; restarting the server logs everyone out.
type Sessions struct {
	tokens *cache.LRUCache[string]
	ttl    time.Duration
}

// NewSessions creates a session store holding up to maxSessions live
// sessions.
func NewSessions(maxSessions int, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		tokens: cache.NewLRUCache[string](maxSessions, ttl),
		ttl:    ttl,
	}
}

// Start creates a session for the user and returns its token.
func (s *Sessions) Start(email string) string {
	token := uuid.NewString()
	s.tokens.Set(token, email)
	return token
}

// Lookup resolves a token to the logged-in user's email.
func (s *Sessions) Lookup(token string) (string, bool) {
	return s.tokens.Get(token)
}

// End invalidates a token.
func (s *Sessions) End(token string) {
	s.tokens.Delete(token)
}

// CleanExpired drops expired sessions (cache.Cleaner).
func (s *Sessions) CleanExpired() int {
	return s.tokens.CleanExpired()
}

// Cookie builds the session cookie for a token.
func (s *Sessions) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds an expired cookie that removes the session.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest extracts the logged-in user's email from a request, if a
// valid session cookie is present.
func (s *Sessions) FromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return s.Lookup(c.Value)
}
