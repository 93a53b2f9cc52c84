package handler

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/pavelanni/ielts-coach/internal/catalog"
	"github.com/pavelanni/ielts-coach/internal/handler/views"
	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/practice"
	"github.com/pavelanni/ielts-coach/internal/store"
)

const (
	// DefaultSessionTTL is how long an idle practice session is kept.
	DefaultSessionTTL = 12 * time.Hour

	maxRequestBytes = 16 << 20
	sweepInterval   = 10 * time.Minute
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog  *catalog.Catalog
	store    *store.Store
	gen      llm.Generator
	tts      llm.Synthesizer
	sessions *practice.Manager
	composer *practice.Composer
	config   model.AppConfig
	upgrader websocket.Upgrader
}

// New creates a new Handler.
func New(c *catalog.Catalog, s *store.Store, gen llm.Generator, tts llm.Synthesizer, cfg model.AppConfig) (*Handler, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	h := &Handler{
		catalog:  c,
		store:    s,
		gen:      gen,
		tts:      tts,
		sessions: practice.NewManager(cfg.SessionTTL),
		composer: practice.NewComposer(gen, s),
		config:   cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	return h, nil
}

// Run sweeps expired practice sessions, access tokens and speech cache
// entries until ctx is done, then waits for in-flight feedback generations.
func (h *Handler) Run(ctx context.Context) {
	go func() {
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.sweep(ctx)
			}
		}
	}()
	h.sessions.Run(ctx, sweepInterval)
	h.composer.Wait()
}

// sweep prunes the store tables that only grow.
func (h *Handler) sweep(ctx context.Context) {
	for _, p := range []struct {
		name  string
		prune func(context.Context) (int64, error)
	}{
		{"access tokens", h.store.PruneAccess},
		{"speech cache", func(ctx context.Context) (int64, error) { return h.store.PruneSpeech(ctx, speechCacheTTL) }},
	} {
		n, err := p.prune(ctx)
		if err != nil {
			slog.Warn("sweep failed", "table", p.name, "error", err)
			continue
		}
		if n > 0 {
			slog.Debug("swept expired rows", "table", p.name, "rows", n)
		}
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/static/*", h.handleStatic)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.cors().Handler)
		r.Get("/topics", h.handleAPITopics)
		r.Get("/topics/{topicID}/slides", h.handleAPISlides)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(maxRequestBytes))
		r.Use(h.csrfMiddleware)

		if h.config.Passcode {
			r.Get("/login", h.handleLoginPage)
			r.Post("/login", h.handleLogin)
		}

		r.Group(func(r chi.Router) {
			if h.config.Passcode {
				r.Use(h.requireAccess)
			}
			r.Use(h.practiceSession)

			if h.config.Passcode {
				r.Post("/logout", h.handleLogout)
			}
			r.Get("/", h.handleIndex)
			r.Get("/topics", h.handleTopics)
			r.Get("/speaking", h.handleSpeaking)

			r.Get("/practice/{topicID}", h.handlePractice)
			r.Get("/practice/{topicID}/{i}/transcript", h.handleTranscript)
			r.Post("/practice/{topicID}/{i}/answer", h.handleAnswer)
			r.Post("/practice/{topicID}/{i}/turns/{aiIndex}/regenerate", h.handleRegenerate)
			r.Post("/practice/{topicID}/{i}/turns/{aiIndex}/delete", h.handleDeletePair)
			r.Post("/practice/{topicID}/{i}/clear", h.handleClear)
			r.Get("/ws/practice", h.handleFeed)

			r.Get("/define", h.handleDefine)
			r.Post("/speech", h.handleSpeech)
			r.Post("/speech/done", h.handleSpeechDone)

			r.Get("/writing", h.handleWritingPage)
			r.Post("/writing", h.handleWriting)
		})
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if !fs.ValidPath(name) || name == "." {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFileFS(w, r, views.Assets(), name)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
