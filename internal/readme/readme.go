// Package readme replaces the generated regions of the README document.
package readme

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/tilindex/internal/indexer"
)

var (
	indexRegion = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(indexer.IndexStart) + `.*` + regexp.QuoteMeta(indexer.IndexEnd))
	countRegion = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(indexer.CountStart) + `.*` + regexp.QuoteMeta(indexer.CountEnd))
)

// DocumentFormatError reports a marker pair that is missing or out of order.
type DocumentFormatError struct {
	Path   string
	Marker string
	Reason string
}

func (e *DocumentFormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("marker %s %s", e.Marker, e.Reason)
	}
	return fmt.Sprintf("%s: marker %s %s", e.Path, e.Marker, e.Reason)
}

// Rewrite replaces the index region of doc with the wrapped index text and
// the count region with count. Text outside both regions is kept as is.
func Rewrite(doc, indexText string, count int) (string, error) {
	out, err := replace(doc, indexRegion, indexer.IndexStart, indexer.IndexEnd, indexer.WrapIndex(indexText))
	if err != nil {
		return "", err
	}
	return replace(out, countRegion, indexer.CountStart, indexer.CountEnd, indexer.WrapCount(count))
}

// RewriteFile rewrites the document at path in place. The file is left
// untouched when a region is missing or nothing changed. It reports whether
// the file was written.
func RewriteFile(path, indexText string, count int) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	out, err := Rewrite(string(b), indexText, count)
	if err != nil {
		var fe *DocumentFormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return false, err
	}
	if out == string(b) {
		log.Info().Str("path", path).Msg("document already up to date")
		return false, nil
	}

	if err := os.WriteFile(path, []byte(out), fi.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("articles", count).Msg("document rewritten")
	return true, nil
}

func replace(doc string, region *regexp.Regexp, start, end, with string) (string, error) {
	if region.MatchString(doc) {
		return region.ReplaceAllLiteralString(doc, with), nil
	}

	s := strings.Index(doc, start)
	switch {
	case s < 0:
		return "", &DocumentFormatError{Marker: start, Reason: "not found"}
	case !strings.Contains(doc, end):
		return "", &DocumentFormatError{Marker: end, Reason: "not found"}
	default:
		return "", &DocumentFormatError{Marker: end, Reason: "appears before " + start}
	}
}
