package indexer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/tilindex/pkg/models"
)

// Topic orderings.
const (
	OrderAlpha      = "alpha"
	OrderFilesystem = "filesystem"
)

// MissingTimestampError reports a note file on disk that has no entry in
// history, usually because it was never committed.
type MissingTimestampError struct {
	Path string
}

func (e *MissingTimestampError) Error() string {
	return fmt.Sprintf("no commit found for %s (is it committed?)", e.Path)
}

// TimeSource resolves a root-relative slash path to its creation time.
type TimeSource interface {
	Lookup(path string) (models.CommitTime, bool)
}

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader reads the first line of a note.
type FileReader interface {
	FirstLine(filename string) (string, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) FirstLine(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Options configures a Builder.
type Options struct {
	Root          string
	LinkBase      string
	Extensions    []string
	ExcludeTopics []string
	TopicOrder    string
	Title         TitleFunc
}

// Builder scans a notes root and groups its articles by topic.
type Builder struct {
	Root       string
	LinkBase   string
	Extensions []string
	Exclude    map[string]bool
	Unsorted   bool
	Title      TitleFunc
	Walker     FileSystemWalker
	FileReader FileReader
}

// New creates a Builder backed by the real filesystem.
func New(opts Options) *Builder {
	return NewWithDependencies(opts, &DefaultFileSystemWalker{}, &DefaultFileReader{})
}

// NewWithDependencies creates a Builder with custom dependencies for testing
func NewWithDependencies(opts Options, walker FileSystemWalker, fileReader FileReader) *Builder {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}
	exclude := make(map[string]bool, len(opts.ExcludeTopics))
	for _, name := range opts.ExcludeTopics {
		exclude[name] = true
	}
	title := opts.Title
	if title == nil {
		title = HeadingTitle
	}
	return &Builder{
		Root:       opts.Root,
		LinkBase:   strings.TrimRight(opts.LinkBase, "/"),
		Extensions: exts,
		Exclude:    exclude,
		Unsorted:   opts.TopicOrder == OrderFilesystem,
		Title:      title,
		Walker:     walker,
		FileReader: fileReader,
	}
}

// Build scans every immediate subdirectory of the root and returns one group
// per directory holding at least one note. Groups appear in traversal order;
// articles within a group are sorted newest first.
func (b *Builder) Build(times TimeSource) ([]models.TopicGroup, error) {
	var groups []models.TopicGroup
	byTopic := make(map[string]int)

	err := b.Walker.Walk(b.Root, &godirwalk.Options{
		Unsorted: b.Unsorted,
		Callback: func(path string, de *godirwalk.Dirent) error {
			relPath := rel(b.Root, path)
			if relPath == "." {
				return nil
			}
			parts := strings.Split(relPath, "/")
			isDir := de != nil && de.IsDir()

			switch {
			case isDir && len(parts) == 1:
				if b.shouldSkipTopic(parts[0]) {
					return godirwalk.SkipThis
				}
				return nil
			case isDir:
				return godirwalk.SkipThis
			case len(parts) != 2 || !b.isNote(path):
				return nil
			}

			topic := parts[0]
			if b.shouldSkipTopic(topic) {
				return nil
			}

			article, err := b.article(path, relPath, times)
			if err != nil {
				return err
			}

			i, ok := byTopic[topic]
			if !ok {
				i = len(groups)
				byTopic[topic] = i
				groups = append(groups, models.TopicGroup{Topic: topic})
			}
			groups[i].Articles = append(groups[i].Articles, article)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for i := range groups {
		sortNewestFirst(groups[i].Articles)
		total += len(groups[i].Articles)
	}
	log.Info().Int("topics", len(groups)).Int("articles", total).Msg("built index")
	return groups, nil
}

func (b *Builder) article(path, relPath string, times TimeSource) (models.Article, error) {
	ts, ok := times.Lookup(relPath)
	if !ok {
		return models.Article{}, &MissingTimestampError{Path: relPath}
	}

	line, err := b.FileReader.FirstLine(path)
	if err != nil {
		return models.Article{}, fmt.Errorf("read %s: %w", relPath, err)
	}

	log.Debug().Str("path", relPath).Time("created", ts.Created).Msg("indexing article")
	return models.Article{
		Title:     b.Title(line),
		URL:       b.LinkBase + "/" + relPath,
		Path:      relPath,
		Timestamp: ts,
	}, nil
}

// sortNewestFirst orders articles by UTC creation time, descending; ties keep
// their scan order.
func sortNewestFirst(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Timestamp.CreatedUTC.After(articles[j].Timestamp.CreatedUTC)
	})
}

func (b *Builder) shouldSkipTopic(name string) bool {
	return strings.HasPrefix(name, ".") || b.Exclude[name]
}

func (b *Builder) isNote(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range b.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// rel returns p relative to root using forward slashes, matching the keys
// recorded from history.
func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}
