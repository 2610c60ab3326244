package indexer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/seanblong/tilindex/pkg/models"
)

func TestRender(t *testing.T) {
	pst := time.FixedZone("PST", -8*60*60)
	late := time.Date(2023, 3, 4, 23, 30, 0, 0, pst)

	tests := []struct {
		name      string
		groups    []models.TopicGroup
		wantText  string
		wantCount int
	}{
		{
			name:      "no topics",
			wantText:  "",
			wantCount: 0,
		},
		{
			name: "single topic",
			groups: []models.TopicGroup{{Topic: "go", Articles: []models.Article{
				{Title: "Beta", URL: "https://x/go/beta.md", Timestamp: at("2023-06-01T10:00:00Z")},
				{Title: "Alpha", URL: "https://x/go/alpha.md", Timestamp: at("2023-01-01T10:00:00Z")},
			}}},
			wantText:  "## go\n\n* [Beta](https://x/go/beta.md) - 2023-06-01\n* [Alpha](https://x/go/alpha.md) - 2023-01-01",
			wantCount: 2,
		},
		{
			name: "separator between topics only",
			groups: []models.TopicGroup{
				{Topic: "go", Articles: []models.Article{{Title: "A", URL: "u1", Timestamp: at("2023-01-01T00:00:00Z")}}},
				{Topic: "sql", Articles: []models.Article{{Title: "B", URL: "u2", Timestamp: at("2022-01-01T00:00:00Z")}}},
			},
			wantText:  "## go\n\n* [A](u1) - 2023-01-01\n\n## sql\n\n* [B](u2) - 2022-01-01",
			wantCount: 2,
		},
		{
			name: "date uses commit zone",
			groups: []models.TopicGroup{{Topic: "tz", Articles: []models.Article{
				{Title: "Late", URL: "u", Timestamp: models.CommitTime{Created: late, CreatedUTC: late.UTC()}},
			}}},
			wantText:  "## tz\n\n* [Late](u) - 2023-03-04",
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, count := Render(tt.groups)
			if diff := cmp.Diff(tt.wantText, text); diff != "" {
				t.Errorf("text mismatch (-want +got):\n%s", diff)
			}
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if got, want := WrapIndex(""), "<!-- index starts -->\n<!-- index ends -->"; got != want {
		t.Errorf("WrapIndex(\"\") = %q, want %q", got, want)
	}
	if got, want := WrapIndex("## go"), "<!-- index starts -->\n## go\n<!-- index ends -->"; got != want {
		t.Errorf("WrapIndex = %q, want %q", got, want)
	}
	if got, want := WrapCount(42), "<!-- count starts -->42<!-- count ends -->"; got != want {
		t.Errorf("WrapCount = %q, want %q", got, want)
	}
}
