package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/ielts-coach/internal/handler/views"
	"github.com/pavelanni/ielts-coach/internal/practice"
)

const (
	defineErrorText = "Error fetching definition."
	defineEmptyText = "No definition found."
	defineTimeout   = 30 * time.Second
)

// handleDefine looks up a clicked word and returns a popup fragment placed
// at the word's on-screen rectangle. Tokens with nothing to look up get an
// empty 204 response.
func (h *Handler) handleDefine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	word, ok := practice.ExtractWord(q.Get("word"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	rect := views.Rect{
		X: queryFloat(q.Get("x")),
		Y: queryFloat(q.Get("y")),
		W: queryFloat(q.Get("w")),
		H: queryFloat(q.Get("h")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), defineTimeout)
	defer cancel()
	definition, err := h.gen.Define(ctx, word)
	switch {
	case err != nil:
		slog.Warn("define failed", "word", word, "error", err)
		definition = defineErrorText
	case strings.TrimSpace(definition) == "":
		definition = defineEmptyText
	}
	h.render(w, r, http.StatusOK, views.DefinitionPopup(word, strings.TrimSpace(definition), rect))
}

func queryFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
