package handler

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/pavelanni/ielts-coach/internal/handler/views"
	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/writing"
)

const recentReviews = 10

func (h *Handler) handleWritingPage(w http.ResponseWriter, r *http.Request) {
	view := views.WritingView{
		Task:   model.WritingTask(r.URL.Query().Get("task")),
		Recent: h.recentReviews(),
	}
	if raw := r.URL.Query().Get("review"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid review id", http.StatusBadRequest)
			return
		}
		review, err := h.store.GetWritingReview(id)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "review not found", http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to load writing review", "id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		view.Task, view.Topic, view.Text = review.Task, review.Topic, review.Essay
		view.Result = &review
	}
	h.render(w, r, http.StatusOK, views.WritingPage(view))
}

func (h *Handler) handleWriting(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(writing.MaxImageBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	sub := writing.Submission{
		Task:  model.WritingTask(r.FormValue("task")),
		Topic: r.FormValue("topic"),
		Text:  r.FormValue("text"),
	}
	sub.Normalize()
	view := views.WritingView{Task: sub.Task, Topic: sub.Topic, Text: sub.Text}

	if sub.Text == "" {
		if data, ok := formFile(r, "pdf", writing.MaxPDFBytes+1); ok {
			text, err := writing.PDFText(data)
			if errors.Is(err, writing.ErrPDFTooLarge) {
				h.writingAlert(w, r, view, err)
				return
			}
			if err != nil {
				slog.Warn("pdf extraction failed", "error", err)
			}
			sub.Text = text
			view.Text = text
		}
	}

	if sub.Task == model.WritingTask1 {
		if data, ok := formFile(r, "image", writing.MaxImageBytes+1); ok {
			img, err := writing.NewImage(data, fileType(r, "image"))
			if err != nil {
				h.writingAlert(w, r, view, err)
				return
			}
			sub.Image = img
		}
	}

	if err := sub.Validate(); err != nil {
		h.writingAlert(w, r, view, err)
		return
	}

	review := writing.Analyze(r.Context(), h.gen, sub)
	if id, err := h.store.InsertWritingReview(review); err != nil {
		slog.Warn("failed to store writing review", "error", err)
	} else {
		review.ID = id
	}

	view.Result = &review
	view.Recent = h.recentReviews()
	h.render(w, r, http.StatusOK, views.WritingPage(view))
}

func (h *Handler) writingAlert(w http.ResponseWriter, r *http.Request, view views.WritingView, err error) {
	var verr writing.ValidationError
	if !errors.As(err, &verr) {
		slog.Error("writing check failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	view.Alert = verr.Error()
	view.Recent = h.recentReviews()
	h.render(w, r, http.StatusBadRequest, views.WritingPage(view))
}

func (h *Handler) recentReviews() []model.WritingReview {
	reviews, err := h.store.ListWritingReviews(recentReviews)
	if err != nil {
		slog.Warn("failed to list writing reviews", "error", err)
	}
	return reviews
}

// formFile reads at most limit bytes of an uploaded file. It reports false
// when no file was sent.
func formFile(r *http.Request, field string, limit int64) ([]byte, bool) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func fileType(r *http.Request, field string) string {
	var hdr *multipart.FileHeader
	if r.MultipartForm != nil && len(r.MultipartForm.File[field]) > 0 {
		hdr = r.MultipartForm.File[field][0]
	}
	if hdr == nil {
		return ""
	}
	return hdr.Header.Get("Content-Type")
}
