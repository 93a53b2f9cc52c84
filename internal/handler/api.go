package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/practice"
)

// apiTopic is a question bank entry in the JSON API.
type apiTopic struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Category model.Category `json:"category"`
	IsNew    bool           `json:"is_new"`
	Slides   int            `json:"slides"`
}

type apiDeck struct {
	Topic    model.Topic    `json:"topic"`
	Category model.Category `json:"category"`
	Slides   []model.Slide  `json:"slides"`
}

func (h *Handler) cors() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: h.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
}

// handleAPITopics lists topics, optionally limited to one category tab and
// filtered by a title query.
func (h *Handler) handleAPITopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cats := h.catalog.Categories()
	if tab := model.Category(q.Get("tab")); tab != "" {
		if !tab.IsValid() {
			writeJSONError(w, http.StatusBadRequest, "unknown tab")
			return
		}
		cats = []model.Category{tab}
	}

	out := []apiTopic{}
	for _, cat := range cats {
		for _, t := range h.catalog.Search(cat, q.Get("q")) {
			out = append(out, apiTopic{
				ID:       t.ID,
				Title:    t.Title,
				Category: cat,
				IsNew:    t.IsNew,
				Slides:   len(practice.Sequence(t)),
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAPISlides(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.catalog.Topic(chi.URLParam(r, "topicID"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "topic not found")
		return
	}
	cat, _ := h.catalog.CategoryOf(topic.ID)
	writeJSON(w, http.StatusOK, apiDeck{Topic: topic, Category: cat, Slides: practice.Sequence(topic)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
