package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/pavelanni/ielts-coach/internal/model"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("expected a non-empty catalog")
	}
	if got := len(c.Categories()); got != len(model.Categories) {
		t.Errorf("expected %d categories, got %d", len(model.Categories), got)
	}

	for _, cat := range c.Categories() {
		for _, topic := range c.Topics(cat) {
			isPart1 := cat == model.CategoryPart1
			if topic.IsPart1() != isPart1 {
				t.Errorf("topic %s in %s: IsPart1 = %v", topic.ID, cat, topic.IsPart1())
			}
			if !isPart1 && len(topic.Part2Bullets) == 0 {
				t.Errorf("topic %s has a part 2 card without bullets", topic.ID)
			}
		}
	}

	topic, ok := c.Topic("p1_perm1")
	if !ok {
		t.Fatal("expected topic p1_perm1")
	}
	if !strings.Contains(topic.Title, "Work or studies") {
		t.Errorf("unexpected title %q", topic.Title)
	}
	cat, ok := c.CategoryOf("e_new1")
	if !ok || cat != model.CategoryEvents {
		t.Errorf("CategoryOf(e_new1) = %q, %v", cat, ok)
	}
}

func TestTopicReturnsCopy(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	topic, _ := c.Topic("p1_perm1")
	topic.Questions[0] = "mutated"

	again, _ := c.Topic("p1_perm1")
	if again.Questions[0] == "mutated" {
		t.Error("catalog data was mutated through a returned topic")
	}
}

func TestLoadFSValidation(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name: "valid",
			files: map[string]string{
				"data/part1.json":  `[{"id":"a","title":"A","questions":["q1"]}]`,
				"data/events.json": `[{"id":"b","title":"B","part2":"Describe","part2_bullets":["x"],"part3":["y"]}]`,
			},
		},
		{
			name: "both variants",
			files: map[string]string{
				"data/part1.json": `[{"id":"a","title":"A","questions":["q1"],"part2":"Describe"}]`,
			},
			wantErr: "both",
		},
		{
			name: "neither variant",
			files: map[string]string{
				"data/part1.json": `[{"id":"a","title":"A"}]`,
			},
			wantErr: "neither",
		},
		{
			name: "duplicate id across files",
			files: map[string]string{
				"data/part1.json":  `[{"id":"a","title":"A","questions":["q1"]}]`,
				"data/people.json": `[{"id":"a","title":"B","part2":"Describe"}]`,
			},
			wantErr: "duplicate",
		},
		{
			name: "bad json",
			files: map[string]string{
				"data/places.json": `[{`,
			},
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, content := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(content)}
			}
			_, err := LoadFS(fsys, "data")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	fsys := fstest.MapFS{
		"data/part1.json": &fstest.MapFile{Data: []byte(`[
			{"id":"a","title":"Plants (植物)","questions":["q"]},
			{"id":"b","title":"Public places","questions":["q"]},
			{"id":"c","title":"Rules","questions":["q"]}
		]`)},
	}
	c, err := LoadFS(fsys, "data")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"pl", 2},
		{"PUBLIC", 1},
		{"植物", 1},
		{"nothing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := len(c.Search(model.CategoryPart1, tt.query)); got != tt.want {
				t.Errorf("Search(%q) = %d topics, want %d", tt.query, got, tt.want)
			}
		})
	}
}
