package i18n

import (
	"net/http"
	"time"
)

// LangCookie holds a visitor's language choice.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. A "lang" query
// parameter switches language and is remembered in a cookie; otherwise the
// cookie, then defaultLang, is used.
func Middleware(defaultLang string, secure bool) func(http.Handler) http.Handler {
	defaultLang = Match(defaultLang)
	localizers := make(map[string]bool, len(Supported))
	for _, tag := range Supported {
		localizers[Match(tag.String())] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := defaultLang
			if q := r.URL.Query().Get("lang"); q != "" {
				lang = Match(q)
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    lang,
					Path:     "/",
					MaxAge:   int((365 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			} else if c, err := r.Cookie(LangCookie); err == nil && localizers[c.Value] {
				lang = c.Value
			}
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
			ctx = WithLang(ctx, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
