// Package views renders the HTML pages and fragments of the web UI.
//
// Pages and fragments are templ components; the _templ.go files are
// generated from the .templ sources.
package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/ielts-coach/internal/i18n"
	"github.com/pavelanni/ielts-coach/internal/model"
)

//go:embed static
var static embed.FS

// Assets returns the stylesheet and script served under /static.
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type logoutCtxKey struct{}

// WithLogout marks the request as passcode-authenticated so the layout
// shows a logout button.
func WithLogout(ctx context.Context) context.Context {
	return context.WithValue(ctx, logoutCtxKey{}, true)
}

func showLogout(ctx context.Context) bool {
	v, _ := ctx.Value(logoutCtxKey{}).(bool)
	return v
}

func t(ctx context.Context, key string) string {
	return appI18n.T(ctx, key)
}

func path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

func pageTitle(ctx context.Context, titleKey string) string {
	full := appI18n.T(ctx, "AppTitle")
	if titleKey != "" {
		full = appI18n.T(ctx, titleKey) + " · " + full
	}
	return full
}

// String renders c into a string. It is used for fragments pushed over the
// websocket feed.
func String(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// lines splits s for rendering with a <br> between lines.
func lines(s string) []string {
	return strings.Split(s, "\n")
}

// richText renders model output as escaped HTML. Every whitespace-separated
// token becomes a clickable word span; "**" toggles bold, leading "#" marks
// a heading line and "- " or "* " starts a bullet.
func richText(s string) string {
	var b strings.Builder
	for i, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if i > 0 {
			b.WriteString("<br>")
		}
		bold := false
		line = strings.TrimSpace(line)
		heading := false
		if strings.HasPrefix(line, "#") {
			line = strings.TrimSpace(strings.TrimLeft(line, "#"))
			heading = true
		}
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			b.WriteString("• ")
			line = line[2:]
		}
		for j, tok := range strings.Fields(line) {
			if j > 0 {
				b.WriteByte(' ')
			}
			for k, part := range strings.Split(tok, "**") {
				if k > 0 {
					bold = !bold
				}
				if part == "" {
					continue
				}
				class := "w"
				if bold || heading {
					class = "w b"
				}
				fmt.Fprintf(&b, `<span class="%s">%s</span>`, class, templ.EscapeString(part))
			}
		}
	}
	return b.String()
}
