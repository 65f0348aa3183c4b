package server

import (
	"net/http"
	"time"
)

const (
	// CookieName is the name of the session cookie
	CookieName = "advisor_session"
	// CookieMaxAge is the duration the cookie is valid
	CookieMaxAge = 30 * time.Minute
)

// SetSessionCookie sets an HTTP-only session cookie
func SetSessionCookie(w http.ResponseWriter, sessionID string) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false, // Set to true in production with HTTPS
	}
	http.SetCookie(w, cookie)
}

// GetSessionCookie reads the session ID from the cookie
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
