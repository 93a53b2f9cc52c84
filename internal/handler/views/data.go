package views

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/ielts-coach/internal/i18n"
	"github.com/pavelanni/ielts-coach/internal/model"
)

var tabKeys = map[model.Category]string{
	model.CategoryPart1:  "TabPart1",
	model.CategoryEvents: "TabEvents",
	model.CategoryThings: "TabThings",
	model.CategoryPlaces: "TabPlaces",
	model.CategoryPeople: "TabPeople",
}

var slideLabels = map[model.SlideType]string{
	model.SlidePart1:     "Part1Label",
	model.SlidePart2Card: "Part2Label",
	model.SlidePart3:     "Part3Label",
}

type homeCard struct {
	href, title, desc string
}

var homeCards = []homeCard{
	{"/topics", "NavTopics", "QuestionBankDesc"},
	{"/speaking", "NavSpeaking", "MockExamDesc"},
	{"/writing", "NavWriting", "WritingCheckDesc"},
}

var mockExamParts = []string{"MockExamPart1", "MockExamPart2", "MockExamPart3"}

// TopicsView is the data behind the question bank page.
type TopicsView struct {
	Tab        model.Category
	Query      string
	Categories []model.Category
	Topics     []model.Topic
}

func topicsURL(ctx context.Context, tab model.Category) string {
	return path(ctx, "/topics?tab="+url.QueryEscape(string(tab)))
}

func topicURL(ctx context.Context, topicID string) string {
	return path(ctx, "/practice/"+url.PathEscape(topicID))
}

func slideURL(ctx context.Context, topicID string, index int) string {
	return topicURL(ctx, topicID) + "?i=" + strconv.Itoa(index)
}

func feedURL(ctx context.Context, topicID string) string {
	return path(ctx, "/ws/practice?topic="+url.QueryEscape(topicID))
}

// SlideRef locates a slide for the forms rendered inside a transcript.
type SlideRef struct {
	TopicID string
	Index   int
	SlideID string
}

func (r SlideRef) url(ctx context.Context, suffix string) string {
	return path(ctx, "/practice/"+url.PathEscape(r.TopicID)+"/"+strconv.Itoa(r.Index)+suffix)
}

func (r SlideRef) turnURL(ctx context.Context, index int, action string) string {
	return r.url(ctx, fmt.Sprintf("/turns/%d/%s", index, action))
}

// speechID keys the audio cache entry of one band answer.
func (r SlideRef) speechID(index int, section string) string {
	return fmt.Sprintf("%s:%d:%s", r.SlideID, index, section)
}

// PracticeView is the data behind the practice page.
type PracticeView struct {
	Topic      model.Topic
	Category   model.Category
	Slides     []model.Slide
	Index      int
	Turns      []model.Turn
	Generating bool
}

func (v PracticeView) slide() model.Slide {
	return v.Slides[v.Index]
}

func (v PracticeView) ref() SlideRef {
	return SlideRef{TopicID: v.Topic.ID, Index: v.Index, SlideID: v.slide().ID}
}

func slideCounter(ctx context.Context, index, total int) string {
	return appI18n.Td(ctx, "SlideNofM", map[string]any{"N": index + 1, "Total": total})
}

type bandAnswer struct {
	titleKey, section, text string
}

// bandAnswers lists the model answers present in a parsed response.
func bandAnswers(p model.ParsedResponse) []bandAnswer {
	var out []bandAnswer
	for _, b := range []bandAnswer{
		{"Band7", "band7", p.Band7},
		{"Band8", "band8", p.Band8},
	} {
		if b.text != "" {
			out = append(out, b)
		}
	}
	return out
}

// Rect is the client-side bounding box of a clicked word.
type Rect struct {
	X, Y, W, H float64
}

// style anchors the popup just below the box.
func (r Rect) style() templ.SafeCSS {
	return templ.SafeCSS(fmt.Sprintf("left:%gpx;top:%gpx;min-width:%gpx;", r.X, r.Y+r.H+4, r.W))
}

// WritingView is the data behind the writing check page.
type WritingView struct {
	Task   model.WritingTask
	Topic  string
	Text   string
	Alert  string
	Result *model.WritingReview
	Recent []model.WritingReview
}

func (v WritingView) task() model.WritingTask {
	if v.Task == "" {
		return model.WritingTask2
	}
	return v.Task
}

type taskOption struct {
	task model.WritingTask
	key  string
}

var taskOptions = []taskOption{
	{model.WritingTask1, "Task1"},
	{model.WritingTask2, "Task2"},
}

func taskKey(task model.WritingTask) string {
	if task == model.WritingTask1 {
		return "Task1"
	}
	return "Task2"
}

func reviewURL(ctx context.Context, id int64) string {
	return path(ctx, "/writing?review="+strconv.FormatInt(id, 10))
}
