package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
)

// FeedbackErrorText replaces a turn whose generation failed.
const FeedbackErrorText = "Error generating response. Please try again."

// DefaultGenerationTimeout bounds one feedback generation.
const DefaultGenerationTimeout = 2 * time.Minute

// ExchangeLogger records completed answer/feedback pairs.
type ExchangeLogger interface {
	LogExchange(ctx context.Context, ex model.Exchange) error
}

// Composer streams examiner feedback into a session's transcript.
type Composer struct {
	gen     llm.Generator
	log     ExchangeLogger
	Timeout time.Duration

	wg sync.WaitGroup
}

// NewComposer creates a composer. log may be nil.
func NewComposer(gen llm.Generator, log ExchangeLogger) *Composer {
	return &Composer{gen: gen, log: log, Timeout: DefaultGenerationTimeout}
}

// Answer records text as the answer on slide and starts generating feedback.
func (c *Composer) Answer(sess *Session, topic model.Topic, slide model.Slide, text string) (*Pending, error) {
	aiIndex, err := sess.Submit(slide.ID, text)
	if err != nil {
		return nil, err
	}
	return c.Start(sess, topic, slide, aiIndex), nil
}

// Regenerate resets the AI turn at aiIndex and generates it again from the
// turns before it.
func (c *Composer) Regenerate(sess *Session, topic model.Topic, slide model.Slide, aiIndex int) (*Pending, error) {
	if err := sess.Regenerate(slide.ID, aiIndex); err != nil {
		return nil, err
	}
	return c.Start(sess, topic, slide, aiIndex), nil
}

// Start generates feedback into the turn at aiIndex, which must already be
// marked generating on sess. The last turn before aiIndex is the answer
// being evaluated; earlier turns are the conversation history. Generation
// runs detached from any request and always clears the generating flag.
func (c *Composer) Start(sess *Session, topic model.Topic, slide model.Slide, aiIndex int) *Pending {
	p := &Pending{
		SlideID: slide.ID,
		Index:   aiIndex,
		updates: make(chan string, 1),
		done:    make(chan struct{}),
	}

	turns := sess.Turns(slide.ID)
	if aiIndex > len(turns) {
		aiIndex = len(turns)
	}
	prefix := turns[:max(aiIndex, 0)]

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.run(sess, topic, slide, p, prefix)
		sess.finishGenerating(slide.ID)
		p.finish(err)
	}()
	return p
}

// Wait blocks until every started generation has finished.
func (c *Composer) Wait() {
	c.wg.Wait()
}

func (c *Composer) run(sess *Session, topic model.Topic, slide model.Slide, p *Pending, prefix []model.Turn) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fail := func(err error) error {
		slog.Error("feedback generation failed", "session", sess.ID, "slide", slide.ID, "error", err)
		sess.UpdateAt(slide.ID, p.Index, Patch(FeedbackErrorText, false))
		p.publish(FeedbackErrorText)
		return err
	}

	if len(prefix) == 0 {
		return fail(ErrNoAnswer)
	}
	answer := prefix[len(prefix)-1].Text
	req := llm.FeedbackRequest{
		TopicTitle: topic.Title,
		Question:   slide.Text,
		Bullets:    slide.Bullets,
		History:    prefix[:len(prefix)-1],
		Answer:     answer,
	}

	start := time.Now()
	chunks, err := c.gen.StreamFeedback(ctx, req)
	if err != nil {
		return fail(fmt.Errorf("start stream: %w", err))
	}

	var acc strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return fail(chunk.Err)
		}
		acc.WriteString(chunk.Text)
		sess.UpdateAt(slide.ID, p.Index, Patch(acc.String(), false))
		p.publish(acc.String())
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	text := acc.String()
	if text == "" {
		// No chunks arrived; the placeholder still has to stop typing.
		sess.UpdateAt(slide.ID, p.Index, Patch("", false))
	}
	slog.Debug("feedback generated", "session", sess.ID, "slide", slide.ID, "len", len(text), "elapsed", time.Since(start))

	if c.log != nil && text != "" {
		ex := model.Exchange{
			SessionID:  sess.ID,
			TopicID:    topic.ID,
			TopicTitle: topic.Title,
			SlideID:    slide.ID,
			Question:   slide.Text,
			Answer:     answer,
			Feedback:   text,
			CreatedAt:  time.Now().UTC(),
		}
		if err := c.log.LogExchange(ctx, ex); err != nil {
			slog.Warn("failed to log exchange", "slide", slide.ID, "error", err)
		}
	}
	return nil
}

// Pending is a feedback generation in progress.
type Pending struct {
	SlideID string
	Index   int

	updates chan string
	done    chan struct{}

	mu   sync.Mutex
	text string
	err  error
}

// Updates delivers the accumulated text as it grows. Intermediate values may
// be skipped when the reader is slow; the channel closes when generation ends.
func (p *Pending) Updates() <-chan string { return p.updates }

// Done is closed when generation has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the generation error once Done is closed.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Text returns the latest accumulated text.
func (p *Pending) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// Wait blocks until generation ends or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) publish(text string) {
	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
	select {
	case p.updates <- text:
	default:
		select {
		case <-p.updates:
		default:
		}
		select {
		case p.updates <- text:
		default:
		}
	}
}

func (p *Pending) finish(err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("feedback generation timed out: %w", err)
	}
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.updates)
	close(p.done)
}
