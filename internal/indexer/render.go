package indexer

import (
	"fmt"
	"strings"

	"github.com/seanblong/tilindex/pkg/models"
)

// Document markers delimiting the generated regions.
const (
	IndexStart = "<!-- index starts -->"
	IndexEnd   = "<!-- index ends -->"
	CountStart = "<!-- count starts -->"
	CountEnd   = "<!-- count ends -->"
)

const dateLayout = "2006-01-02"

// Render formats groups as Markdown and returns the text together with the
// number of article lines written.
func Render(groups []models.TopicGroup) (string, int) {
	var lines []string
	count := 0
	for i, g := range groups {
		lines = append(lines, "## "+g.Topic, "")
		for _, a := range g.Articles {
			lines = append(lines, fmt.Sprintf("* [%s](%s) - %s", a.Title, a.URL, a.Timestamp.Created.Format(dateLayout)))
			count++
		}
		if i < len(groups)-1 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n"), count
}

// WrapIndex surrounds rendered text with the index markers.
func WrapIndex(text string) string {
	if text == "" {
		return IndexStart + "\n" + IndexEnd
	}
	return IndexStart + "\n" + text + "\n" + IndexEnd
}

// WrapCount formats the article count region.
func WrapCount(count int) string {
	return fmt.Sprintf("%s%d%s", CountStart, count, CountEnd)
}
