package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "IELTS Coach" {
		t.Errorf("T(AppTitle) = %q, want 'IELTS Coach'", got)
	}

	got = T(ctx, "Band7")
	if got != "Band 7.0 Version" {
		t.Errorf("T(Band7) = %q, want 'Band 7.0 Version'", got)
	}
}

func TestTranslateChinese(t *testing.T) {
	ctx := initLang(t, "zh")

	got := T(ctx, "AppTitle")
	if got != "雅思口语教练" {
		t.Errorf("T(AppTitle) = %q, want '雅思口语教练'", got)
	}

	got = T(ctx, "Submit")
	if got != "提交" {
		t.Errorf("T(Submit) = %q, want '提交'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "TopicsCount", 1)
	if got1 != "1 topic" {
		t.Errorf("Tp(TopicsCount, 1) = %q, want '1 topic'", got1)
	}

	got5 := Tp(ctx, "TopicsCount", 5)
	if got5 != "5 topics" {
		t.Errorf("Tp(TopicsCount, 5) = %q, want '5 topics'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "SlideNofM", map[string]any{"N": 2, "Total": 5})
	if got != "Question 2 of 5" {
		t.Errorf("Td(SlideNofM) = %q, want 'Question 2 of 5'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"zh", "zh"},
		{"zh-CN", "zh"},
		{"zh-Hans-CN,zh;q=0.9,en;q=0.8", "zh"},
		{"fr", "en"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := Match(tt.in); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var gotTitle, gotLang string
	h := Middleware("en", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = T(r.Context(), "AppTitle")
		gotLang = Lang(r.Context())
	}))

	t.Run("default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if gotTitle != "IELTS Coach" || gotLang != "en" {
			t.Errorf("title %q lang %q", gotTitle, gotLang)
		}
	})

	t.Run("query switches and sets cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=zh", nil))
		if gotTitle != "雅思口语教练" || gotLang != "zh" {
			t.Errorf("title %q lang %q", gotTitle, gotLang)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != LangCookie || cookies[0].Value != "zh" {
			t.Errorf("cookies = %+v", cookies)
		}
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: LangCookie, Value: "zh"})
		h.ServeHTTP(httptest.NewRecorder(), req)
		if gotLang != "zh" {
			t.Errorf("lang = %q, want zh", gotLang)
		}
	})

	t.Run("unknown cookie ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: LangCookie, Value: "xx"})
		h.ServeHTTP(httptest.NewRecorder(), req)
		if gotLang != "en" {
			t.Errorf("lang = %q, want en", gotLang)
		}
	})
}
