package practice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
)

// fakeGenerator streams a fixed list of chunks. When release is set, it
// waits on it before sending anything.
type fakeGenerator struct {
	chunks    []string
	streamErr error
	startErr  error
	release   chan struct{}

	mu   sync.Mutex
	reqs []llm.FeedbackRequest
}

func (f *fakeGenerator) StreamFeedback(ctx context.Context, req llm.FeedbackRequest) (<-chan llm.Chunk, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		if f.release != nil {
			<-f.release
		}
		for _, c := range f.chunks {
			out <- llm.Chunk{Text: c}
		}
		if f.streamErr != nil {
			out <- llm.Chunk{Err: f.streamErr}
		}
	}()
	return out, nil
}

func (f *fakeGenerator) Define(context.Context, string) (string, error) { return "", nil }
func (f *fakeGenerator) AnalyzeEssay(context.Context, string, string) (string, error) {
	return "", nil
}
func (f *fakeGenerator) AnalyzeReport(context.Context, string, llm.Image) (string, error) {
	return "", nil
}

func (f *fakeGenerator) lastRequest(t *testing.T) llm.FeedbackRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		t.Fatal("generator was not called")
	}
	return f.reqs[len(f.reqs)-1]
}

type recordingLogger struct {
	mu        sync.Mutex
	exchanges []model.Exchange
}

func (r *recordingLogger) LogExchange(_ context.Context, ex model.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges = append(r.exchanges, ex)
	return nil
}

func waitPending(t *testing.T, p *Pending) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		t.Fatal("generation did not finish")
	}
	return err
}

func TestComposerStreamsIntoTurn(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"Good ", "answer. ", "**Band 7.0 Version** Seven"}}
	logger := &recordingLogger{}
	c := NewComposer(gen, logger)
	sess := NewSession()
	topic := part1Topic()
	slides := Sequence(topic)

	p, err := c.Answer(sess, topic, slides[0], "I am a student")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if p.Index != 1 {
		t.Errorf("pending index = %d, want 1", p.Index)
	}
	if err := waitPending(t, p); err != nil {
		t.Fatalf("generation error: %v", err)
	}

	turns := sess.Turns(slides[0].ID)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	want := "Good answer. **Band 7.0 Version** Seven"
	if turns[1].Text != want || turns[1].IsTyping {
		t.Errorf("ai turn = %+v, want text %q not typing", turns[1], want)
	}
	if p.Text() != want {
		t.Errorf("Pending.Text = %q", p.Text())
	}
	if sess.Generating(slides[0].ID) {
		t.Error("slide still marked generating")
	}

	req := gen.lastRequest(t)
	if req.Answer != "I am a student" || req.Question != slides[0].Text || req.TopicTitle != topic.Title {
		t.Errorf("request = %+v", req)
	}
	if len(req.History) != 0 {
		t.Errorf("first answer should have no history, got %+v", req.History)
	}

	if len(logger.exchanges) != 1 || logger.exchanges[0].Feedback != want || logger.exchanges[0].SessionID != sess.ID {
		t.Errorf("logged exchanges = %+v", logger.exchanges)
	}
}

func TestComposerUpdatesAreOrdered(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"a", "b", "c", "d"}}
	c := NewComposer(gen, nil)
	sess := NewSession()
	topic := part1Topic()
	slide := Sequence(topic)[0]

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	p, err := c.Answer(sess, topic, slide, "x")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	waitPending(t, p)

	var texts []string
	for len(events) > 0 {
		ev := <-events
		if ev.Kind == EventUpdate && ev.Index == 1 {
			texts = append(texts, ev.Turn.Text)
		}
	}
	want := []string{"a", "ab", "abc", "abcd"}
	if len(texts) != len(want) {
		t.Fatalf("updates = %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("update %d = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestComposerFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"start error", &fakeGenerator{startErr: errors.New("unavailable")}},
		{"stream error after partial text", &fakeGenerator{chunks: []string{"partial"}, streamErr: errors.New("reset")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			c := NewComposer(tt.gen, logger)
			sess := NewSession()
			topic := part1Topic()
			slide := Sequence(topic)[0]

			p, err := c.Answer(sess, topic, slide, "x")
			if err != nil {
				t.Fatalf("Answer: %v", err)
			}
			if err := waitPending(t, p); err == nil {
				t.Error("expected generation error")
			}
			turns := sess.Turns(slide.ID)
			if turns[1].Text != FeedbackErrorText || turns[1].IsTyping {
				t.Errorf("ai turn = %+v", turns[1])
			}
			if sess.Generating(slide.ID) {
				t.Error("slide still marked generating after failure")
			}
			if len(logger.exchanges) != 0 {
				t.Error("failed exchange was logged")
			}
		})
	}
}

func TestComposerEmptyStreamClearsTyping(t *testing.T) {
	c := NewComposer(&fakeGenerator{}, nil)
	sess := NewSession()
	topic := part1Topic()
	slide := Sequence(topic)[0]

	p, _ := c.Answer(sess, topic, slide, "x")
	if err := waitPending(t, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn := sess.Turns(slide.ID)[1]; turn.IsTyping {
		t.Error("turn still typing after empty stream")
	}
}

func TestComposerBlocksResubmitOnSameSlideOnly(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"done"}, release: make(chan struct{})}
	c := NewComposer(gen, nil)
	sess := NewSession()
	topic := part1Topic()
	slides := Sequence(topic)

	p, err := c.Answer(sess, topic, slides[0], "first")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if _, err := c.Answer(sess, topic, slides[0], "second"); !errors.Is(err, ErrGenerating) {
		t.Errorf("resubmit error = %v, want ErrGenerating", err)
	}
	if _, err := sess.DeletePair(slides[0].ID, 1); !errors.Is(err, ErrGenerating) {
		t.Errorf("DeletePair error = %v, want ErrGenerating", err)
	}
	if err := sess.Clear(slides[0].ID); !errors.Is(err, ErrGenerating) {
		t.Errorf("Clear error = %v, want ErrGenerating", err)
	}

	other, err := c.Answer(sess, topic, slides[1], "other slide")
	if err != nil {
		t.Fatalf("answer on other slide: %v", err)
	}

	close(gen.release)
	waitPending(t, p)
	waitPending(t, other)

	if got := len(sess.Turns(slides[0].ID)); got != 2 {
		t.Errorf("slide 0 has %d turns, want 2", got)
	}
	if _, err := c.Answer(sess, topic, slides[0], "third"); err != nil {
		t.Errorf("answer after completion: %v", err)
	}
	c.Wait()
}

func TestComposerRegenerate(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"fresh"}}
	c := NewComposer(gen, nil)
	sess := NewSession()
	topic := part2Topic()
	slide := Sequence(topic)[0]

	for _, answer := range []string{"first answer", "second answer"} {
		p, err := c.Answer(sess, topic, slide, answer)
		if err != nil {
			t.Fatalf("Answer: %v", err)
		}
		waitPending(t, p)
	}

	if _, err := c.Regenerate(sess, topic, slide, 0); !errors.Is(err, ErrNoAnswer) {
		t.Errorf("Regenerate(0) error = %v, want ErrNoAnswer", err)
	}

	p, err := c.Regenerate(sess, topic, slide, 3)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	waitPending(t, p)

	req := gen.lastRequest(t)
	if req.Answer != "second answer" {
		t.Errorf("regenerate answer = %q, want second answer", req.Answer)
	}
	if len(req.History) != 2 || req.History[0].Text != "first answer" {
		t.Errorf("regenerate history = %+v", req.History)
	}
	if len(req.Bullets) != len(topic.Part2Bullets) {
		t.Errorf("bullets = %v", req.Bullets)
	}
	if turns := sess.Turns(slide.ID); len(turns) != 4 || turns[3].Text != "fresh" {
		t.Errorf("turns after regenerate = %+v", turns)
	}
}

func TestPendingUpdatesCoalesce(t *testing.T) {
	p := &Pending{updates: make(chan string, 1), done: make(chan struct{})}
	p.publish("a")
	p.publish("ab")
	p.publish("abc")
	if got := <-p.Updates(); got != "abc" {
		t.Errorf("latest update = %q, want abc", got)
	}
	p.finish(nil)
	if _, ok := <-p.Updates(); ok {
		t.Error("updates channel not closed after finish")
	}
	select {
	case <-p.Done():
	default:
		t.Error("Done not closed after finish")
	}
}
