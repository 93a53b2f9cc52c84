package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pavelanni/ielts-coach/internal/audio"
	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/practice"
	"github.com/pavelanni/ielts-coach/internal/store"
)

const (
	speechErrorText = "Failed to play audio. Please try again."
	speechTimeout   = time.Minute
	speechCacheTTL  = 30 * 24 * time.Hour
)

// handleSpeech synthesizes one section of an AI turn and returns it as WAV.
// A request for the id that is already playing is a no-op.
func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.FormValue("id")
	index, err := strconv.Atoi(r.FormValue("index"))
	if id == "" || err != nil {
		http.Error(w, "invalid speech request", http.StatusBadRequest)
		return
	}
	text, ok := speechSource(sess.Turns(r.FormValue("slide")), index, r.FormValue("section"))
	if !ok {
		http.Error(w, "nothing to play", http.StatusBadRequest)
		return
	}

	if !sess.Playback.Start(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), speechTimeout)
	defer cancel()
	wav, err := h.speak(ctx, text)
	if err != nil {
		sess.Playback.Finish(id)
		slog.Error("speech synthesis failed", "id", id, "error", err)
		http.Error(w, speechErrorText, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	if _, err := w.Write(wav); err != nil {
		slog.Debug("write speech", "id", id, "error", err)
	}
}

func (h *Handler) handleSpeechDone(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Playback.Finish(r.FormValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// speechSource picks the text to read aloud from the AI turn at index.
func speechSource(turns []model.Turn, index int, section string) (string, bool) {
	if index < 0 || index >= len(turns) || turns[index].Role != model.RoleAI {
		return "", false
	}
	parsed := practice.ParseResponse(turns[index].Text)
	var text string
	switch section {
	case "band7":
		text = parsed.Band7
	case "band8":
		text = parsed.Band8
	case "feedback":
		text = parsed.Feedback
	default:
		return "", false
	}
	text = practice.PrepareSpeechText(text)
	return text, text != ""
}

// speak returns WAV audio for text, using the speech cache when possible.
func (h *Handler) speak(ctx context.Context, text string) ([]byte, error) {
	voice := h.config.Voice
	key := store.SpeechKey(voice, text)

	b64, cached, err := h.store.GetSpeech(ctx, key)
	if err != nil {
		slog.Warn("speech cache read", "error", err)
	}
	if !cached {
		b64, err = h.tts.Synthesize(ctx, text, voice)
		if err != nil {
			return nil, err
		}
		if err := h.store.PutSpeech(ctx, voice, text, b64); err != nil {
			slog.Warn("speech cache write", "error", err)
		}
	}

	pcm, err := audio.Decode(b64)
	if err != nil {
		return nil, fmt.Errorf("decode speech: %w", err)
	}
	slog.Debug("speech ready",
		"cached", cached,
		"seconds", audio.Duration(pcm, llm.SpeechSampleRate, 1),
		"peak", audio.Peak(audio.Frames(pcm)))
	return audio.WAV(pcm, llm.SpeechSampleRate, 1), nil
}
