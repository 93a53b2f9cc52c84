// Package catalog holds the static IELTS speaking question bank.
//
// Topics are read from JSON files embedded under data/, one file per
// category, and are never mutated after Load returns.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/pavelanni/ielts-coach/internal/model"
)

//go:embed data/*.json
var dataFS embed.FS

// ErrUnknownTopic is returned when a topic ID is not in the catalog.
var ErrUnknownTopic = errors.New("unknown topic")

// Catalog is an immutable, indexed question bank.
type Catalog struct {
	byCategory map[model.Category][]model.Topic
	byID       map[string]model.Topic
	categoryOf map[string]model.Category
}

// Load reads the embedded question bank.
func Load() (*Catalog, error) {
	return LoadFS(dataFS, "data")
}

// LoadFS reads <dir>/<category>.json for every category from fsys.
// A missing category file yields an empty category.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	c := &Catalog{
		byCategory: make(map[model.Category][]model.Topic),
		byID:       make(map[string]model.Topic),
		categoryOf: make(map[string]model.Category),
	}
	for _, cat := range model.Categories {
		name := dir + "/" + string(cat) + ".json"
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var topics []model.Topic
		if err := json.Unmarshal(data, &topics); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for _, t := range topics {
			if err := validate(t); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if _, dup := c.byID[t.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate topic id %q", name, t.ID)
			}
			c.byID[t.ID] = t
			c.categoryOf[t.ID] = cat
		}
		c.byCategory[cat] = topics
	}
	return c, nil
}

func validate(t model.Topic) error {
	if t.ID == "" {
		return fmt.Errorf("topic %q has no id", t.Title)
	}
	hasQuestions := len(t.Questions) > 0
	hasCard := t.Part2 != ""
	switch {
	case hasQuestions && hasCard:
		return fmt.Errorf("topic %q has both questions and a part 2 card", t.ID)
	case !hasQuestions && !hasCard:
		return fmt.Errorf("topic %q has neither questions nor a part 2 card", t.ID)
	}
	return nil
}

// Categories returns the categories that have at least one topic, in tab order.
func (c *Catalog) Categories() []model.Category {
	var out []model.Category
	for _, cat := range model.Categories {
		if len(c.byCategory[cat]) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// Topics returns the topics of a category in bank order.
func (c *Catalog) Topics(cat model.Category) []model.Topic {
	out := make([]model.Topic, 0, len(c.byCategory[cat]))
	for _, t := range c.byCategory[cat] {
		out = append(out, clone(t))
	}
	return out
}

// Topic returns a topic by ID.
func (c *Catalog) Topic(id string) (model.Topic, bool) {
	t, ok := c.byID[id]
	if !ok {
		return model.Topic{}, false
	}
	return clone(t), true
}

// CategoryOf returns the category a topic belongs to.
func (c *Catalog) CategoryOf(id string) (model.Category, bool) {
	cat, ok := c.categoryOf[id]
	return cat, ok
}

// Len returns the total number of topics.
func (c *Catalog) Len() int {
	return len(c.byID)
}

// Search returns topics of a category whose title contains query,
// case-insensitively. An empty query returns the whole category.
func (c *Catalog) Search(cat model.Category, query string) []model.Topic {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.Topics(cat)
	}
	var out []model.Topic
	for _, t := range c.byCategory[cat] {
		if strings.Contains(strings.ToLower(t.Title), query) {
			out = append(out, clone(t))
		}
	}
	return out
}

func clone(t model.Topic) model.Topic {
	t.Questions = slices.Clone(t.Questions)
	t.Part2Bullets = slices.Clone(t.Part2Bullets)
	t.Part3 = slices.Clone(t.Part3)
	return t
}
