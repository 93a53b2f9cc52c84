package handler

import (
	"context"
	"net/http"

	"github.com/pavelanni/ielts-coach/internal/practice"
)

const practiceCookieName = "practice"

type practiceCtxKey struct{}

// practiceSession attaches the visitor's practice session, starting a new
// one when the cookie is missing or the session has expired.
func (h *Handler) practiceSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *practice.Session
		if c, err := r.Cookie(practiceCookieName); err == nil && c.Value != "" {
			sess, _ = h.sessions.Get(c.Value)
		}
		if sess == nil {
			sess = h.sessions.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     practiceCookieName,
				Value:    sess.ID,
				Path:     h.cookiePath(),
				HttpOnly: true,
				Secure:   h.config.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), practiceCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *practice.Session {
	sess, _ := r.Context().Value(practiceCtxKey{}).(*practice.Session)
	return sess
}
