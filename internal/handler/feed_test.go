package handler

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/practice"
)

func TestFeed(t *testing.T) {
	e := newTestEnv(t, model.AppConfig{})
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	hc := &http.Client{Jar: jar}
	resp, err := hc.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	base, _ := url.Parse(srv.URL)
	header := http.Header{}
	var csrf string
	for _, ck := range jar.Cookies(base) {
		header.Add("Cookie", ck.Name+"="+ck.Value)
		if ck.Name == csrfCookieName {
			csrf = ck.Value
		}
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/practice?topic=" + testTopic
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/practice/"+testTopic+"/0/answer",
		strings.NewReader(url.Values{"answer": {"I teach."}, "csrf_token": {csrf}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	resp, err = hc.Do(req)
	if err != nil {
		t.Fatalf("POST answer: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}

	var got []feedMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (got %d messages)", err, len(got))
		}
		got = append(got, msg)
		if msg.Kind == practice.EventIdle {
			break
		}
	}

	if len(got) < 4 {
		t.Fatalf("got %d messages, want at least 4", len(got))
	}
	if got[0].Kind != practice.EventAppend || got[0].Index != 0 || !strings.Contains(got[0].HTML, "I teach.") {
		t.Errorf("first message = %+v", got[0])
	}
	if got[1].Kind != practice.EventAppend || !strings.Contains(got[1].HTML, "Generating feedback") {
		t.Errorf("placeholder message = %+v", got[1])
	}
	last := got[len(got)-2]
	if last.Kind != practice.EventUpdate || !strings.Contains(last.HTML, "Band 8.0 Version") {
		t.Errorf("final update = %+v", last)
	}
	if idle := got[len(got)-1]; idle.Generating || idle.SlideID != testSlide {
		t.Errorf("idle message = %+v", idle)
	}
}
