package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/ielts-coach/internal/model"
)

func TestPasscode(t *testing.T) {
	e := newTestEnv(t, model.AppConfig{Passcode: true, BasePath: ""})
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := e.store.SetPasscodeHash(string(hash)); err != nil {
		t.Fatalf("SetPasscodeHash: %v", err)
	}
	c := e.client(t)

	rec := c.get("/topics")
	assertStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("redirect = %q, want /login", loc)
	}

	rec = c.post("/practice/"+testTopic+"/0/answer", url.Values{"answer": {"x"}}, true)
	assertStatus(t, rec, http.StatusUnauthorized)
	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q", got)
	}

	assertStatus(t, c.get("/login"), http.StatusOK)

	rec = c.post("/login", url.Values{"passcode": {"wrong"}}, false)
	assertStatus(t, rec, http.StatusUnauthorized)
	assertContains(t, rec.Body.String(), "Invalid passcode")

	rec = c.post("/login", url.Values{"passcode": {"letmein"}}, false)
	assertStatus(t, rec, http.StatusSeeOther)
	if _, ok := c.cookies[accessCookieName]; !ok {
		t.Fatal("access cookie not set")
	}

	rec = c.get("/topics")
	assertStatus(t, rec, http.StatusOK)
	assertContains(t, rec.Body.String(), "Log out")

	// A sweep only prunes expired tokens.
	e.h.sweep(context.Background())
	assertStatus(t, c.get("/topics"), http.StatusOK)

	// The catalog API stays public.
	assertStatus(t, c.get("/api/topics"), http.StatusOK)

	assertStatus(t, c.post("/logout", nil, false), http.StatusSeeOther)
	if _, ok := c.cookies[accessCookieName]; ok {
		t.Error("access cookie not cleared")
	}
	assertStatus(t, c.get("/topics"), http.StatusSeeOther)
}

func TestNoPasscodeHidesLogin(t *testing.T) {
	e := newTestEnv(t, model.AppConfig{})
	c := e.client(t)
	assertStatus(t, c.get("/login"), http.StatusNotFound)
}

func TestBasePath(t *testing.T) {
	e := newTestEnv(t, model.AppConfig{BasePath: "/ielts"})
	c := e.client(t)

	rec := c.post("/practice/"+testTopic+"/0/answer", url.Values{"answer": {"x"}}, false)
	assertStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/ielts/practice/"+testTopic+"?i=0" {
		t.Errorf("redirect = %q", loc)
	}
	assertContains(t, c.get("/").Body.String(), `href="/ielts/topics"`)
	if ck := c.cookies[practiceCookieName]; ck == nil || ck.Path != "/ielts/" {
		t.Errorf("practice cookie = %+v", ck)
	}
}
