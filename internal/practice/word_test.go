package practice

import "testing"

func TestExtractWord(t *testing.T) {
	tests := []struct {
		token  string
		want   string
		wantOK bool
	}{
		{"don't,", "don't", true},
		{"hello.", "hello", true},
		{"(well-known)", "well-known", true},
		{"'quoted'", "quoted", true},
		{"’tis", "tis", true},
		{"--", "", false},
		{"...!?", "", false},
		{"", "", false},
		{"学习。", "学习", true},
		{"co-operate;", "co-operate", true},
		{"snake_case", "snake_case", true},
		{"2024,", "2024", true},
		{"café", "café", true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ExtractWord(tt.token)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractWord(%q) = %q, %v; want %q, %v", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
