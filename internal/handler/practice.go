package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/ielts-coach/internal/handler/views"
	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/practice"
)

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.HomePage())
}

func (h *Handler) handleSpeaking(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.SpeakingPage())
}

func (h *Handler) handleTopics(w http.ResponseWriter, r *http.Request) {
	cats := h.catalog.Categories()
	tab := model.Category(r.URL.Query().Get("tab"))
	if !tab.IsValid() && len(cats) > 0 {
		tab = cats[0]
	}
	query := r.URL.Query().Get("q")
	h.render(w, r, http.StatusOK, views.TopicsPage(views.TopicsView{
		Tab:        tab,
		Query:      query,
		Categories: cats,
		Topics:     h.catalog.Search(tab, query),
	}))
}

// deck is a topic resolved from the URL together with its slides.
type deck struct {
	topic  model.Topic
	slides []model.Slide
}

func (h *Handler) loadDeck(w http.ResponseWriter, r *http.Request) (deck, bool) {
	topic, ok := h.catalog.Topic(chi.URLParam(r, "topicID"))
	if !ok {
		http.Error(w, "topic not found", http.StatusNotFound)
		return deck{}, false
	}
	slides := practice.Sequence(topic)
	if len(slides) == 0 {
		http.Error(w, "topic has no questions", http.StatusNotFound)
		return deck{}, false
	}
	return deck{topic: topic, slides: slides}, true
}

// loadSlide resolves the {i} path parameter to a slide of the deck.
func (h *Handler) loadSlide(w http.ResponseWriter, r *http.Request) (deck, int, bool) {
	d, ok := h.loadDeck(w, r)
	if !ok {
		return deck{}, 0, false
	}
	i, err := strconv.Atoi(chi.URLParam(r, "i"))
	if err != nil || i < 0 || i >= len(d.slides) {
		http.Error(w, "invalid slide index", http.StatusBadRequest)
		return deck{}, 0, false
	}
	return d, i, true
}

func (h *Handler) handlePractice(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDeck(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)

	index := 0
	if raw := r.URL.Query().Get("i"); raw != "" {
		index, _ = strconv.Atoi(raw)
	} else if topicID, last := sess.Position(); topicID == d.topic.ID {
		index = last
	}
	index = practice.ClampIndex(index, len(d.slides))
	sess.SetPosition(d.topic.ID, index)

	cat, _ := h.catalog.CategoryOf(d.topic.ID)
	slideID := d.slides[index].ID
	h.render(w, r, http.StatusOK, views.PracticePage(views.PracticeView{
		Topic:      d.topic,
		Category:   cat,
		Slides:     d.slides,
		Index:      index,
		Turns:      sess.Turns(slideID),
		Generating: sess.Generating(slideID),
	}))
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	d, i, ok := h.loadSlide(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	slideID := d.slides[i].ID
	ref := views.SlideRef{TopicID: d.topic.ID, Index: i, SlideID: slideID}
	h.render(w, r, http.StatusOK, views.Transcript(ref, sess.Turns(slideID), sess.Generating(slideID)))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	d, i, ok := h.loadSlide(w, r)
	if !ok {
		return
	}
	answer := strings.TrimSpace(r.FormValue("answer"))
	if answer == "" {
		http.Error(w, "answer cannot be empty", http.StatusBadRequest)
		return
	}

	sess := sessionFrom(r)
	if _, err := h.composer.Answer(sess, d.topic, d.slides[i], answer); err != nil {
		h.transcriptError(w, err)
		return
	}
	slog.Debug("answer submitted", "session", sess.ID, "slide", d.slides[i].ID)
	h.transcriptDone(w, r, d.topic.ID, i)
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	d, i, ok := h.loadSlide(w, r)
	if !ok {
		return
	}
	aiIndex, ok := turnIndex(w, r)
	if !ok {
		return
	}
	_, err := h.composer.Regenerate(sessionFrom(r), d.topic, d.slides[i], aiIndex)
	if err != nil && !errors.Is(err, practice.ErrNoAnswer) {
		h.transcriptError(w, err)
		return
	}
	h.transcriptDone(w, r, d.topic.ID, i)
}

func (h *Handler) handleDeletePair(w http.ResponseWriter, r *http.Request) {
	d, i, ok := h.loadSlide(w, r)
	if !ok {
		return
	}
	aiIndex, ok := turnIndex(w, r)
	if !ok {
		return
	}
	if _, err := sessionFrom(r).DeletePair(d.slides[i].ID, aiIndex); err != nil {
		h.transcriptError(w, err)
		return
	}
	h.transcriptDone(w, r, d.topic.ID, i)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	d, i, ok := h.loadSlide(w, r)
	if !ok {
		return
	}
	if err := sessionFrom(r).Clear(d.slides[i].ID); err != nil {
		h.transcriptError(w, err)
		return
	}
	h.transcriptDone(w, r, d.topic.ID, i)
}

func turnIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "aiIndex"))
	if err != nil || n < 0 {
		http.Error(w, "invalid turn index", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func (h *Handler) transcriptError(w http.ResponseWriter, err error) {
	if errors.Is(err, practice.ErrGenerating) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	slog.Error("transcript update failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// transcriptDone finishes a transcript mutation. htmx callers receive the
// change over the websocket feed; plain form posts are sent back to the page.
func (h *Handler) transcriptDone(w http.ResponseWriter, r *http.Request, topicID string, i int) {
	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.path(fmt.Sprintf("/practice/%s?i=%d", url.PathEscape(topicID), i)), http.StatusSeeOther)
}
