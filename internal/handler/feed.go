package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pavelanni/ielts-coach/internal/handler/views"
	"github.com/pavelanni/ielts-coach/internal/practice"
)

const (
	feedWriteWait    = 10 * time.Second
	feedPingInterval = 30 * time.Second
)

// feedMessage is a transcript event as sent to the browser, with the
// affected turn pre-rendered.
type feedMessage struct {
	practice.TurnEvent
	HTML       string `json:"html,omitempty"`
	Generating bool   `json:"generating"`
}

// handleFeed streams the session's transcript events over a websocket. The
// optional topic query parameter names the deck the page is showing so
// turns can be rendered with working action links.
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	topicID := r.URL.Query().Get("topic")
	if topicID == "" {
		topicID, _ = sess.Position()
	}

	// Subscribe first so nothing published after the handshake is missed.
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg := h.renderEvent(r.Context(), sess, topicID, ev)
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("websocket write failed", "session", sess.ID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) renderEvent(ctx context.Context, sess *practice.Session, topicID string, ev practice.TurnEvent) feedMessage {
	msg := feedMessage{TurnEvent: ev, Generating: sess.Generating(ev.SlideID)}
	if ev.Kind != practice.EventAppend && ev.Kind != practice.EventUpdate {
		return msg
	}
	topic, ok := h.catalog.Topic(topicID)
	if !ok {
		return msg
	}
	_, index, ok := practice.FindSlide(practice.Sequence(topic), ev.SlideID)
	if !ok {
		return msg
	}
	ref := views.SlideRef{TopicID: topic.ID, Index: index, SlideID: ev.SlideID}
	html, err := views.String(ctx, views.Turn(ref, ev.Index, ev.Turn, msg.Generating))
	if err != nil {
		slog.Error("render turn", "slide", ev.SlideID, "error", err)
		return msg
	}
	msg.HTML = html
	return msg
}
