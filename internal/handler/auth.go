package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/ielts-coach/internal/handler/views"
	appI18n "github.com/pavelanni/ielts-coach/internal/i18n"
	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/store"
)

const (
	accessCookieName = "access"
	csrfCookieName   = "csrf_token"
	csrfHeaderName   = "X-CSRF-Token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// csrfMiddleware implements the double-submit cookie pattern. The token lives
// for the browser session so that several background posts from one page
// stay valid.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		hasCookie := err == nil && cookie.Value != ""

		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token := ""
			if hasCookie {
				token = cookie.Value
			} else {
				token, err = generateCSRFToken()
				if err != nil {
					slog.Error("failed to generate CSRF token", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     h.cookiePath(),
					HttpOnly: false,
					Secure:   h.config.SecureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if !hasCookie {
			slog.Warn("CSRF cookie missing", "path", r.URL.Path)
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		token := r.Header.Get(csrfHeaderName)
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if token == "" {
			slog.Warn("CSRF form token missing", "path", r.URL.Path)
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(token) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch", "path", r.URL.Path)
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		ctx := model.ContextWithCSRFToken(r.Context(), cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAccess lets requests through only with a valid passcode login.
func (h *Handler) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		if _, err := h.store.TouchAccess(r.Context(), cookie.Value); err != nil {
			if !errors.Is(err, store.ErrAccessDenied) {
				slog.Error("failed to check access token", "error", err)
			}
			h.redirectToLogin(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(views.WithLogout(r.Context())))
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.LoginPage(""))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	passcode := r.FormValue("passcode")

	hash, err := h.store.PasscodeHash()
	if err != nil {
		slog.Error("failed to read passcode hash", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode)) != nil {
		h.render(w, r, http.StatusUnauthorized, views.LoginPage(appI18n.T(r.Context(), "InvalidPasscode")))
		return
	}

	tok, err := h.store.GrantAccess(r.Context())
	if err != nil {
		slog.Error("failed to grant access", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    tok.Token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(accessCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.store.RevokeAccess(r.Context(), cookie.Value); err != nil {
			slog.Warn("failed to revoke access token", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}
