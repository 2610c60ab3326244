package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/tilindex/internal/config"
	"github.com/seanblong/tilindex/internal/history"
	"github.com/seanblong/tilindex/internal/indexer"
	"github.com/seanblong/tilindex/internal/readme"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitStale = 3
)

// diffContext is the number of unchanged lines shown around each change.
const diffContext = 2

// run builds the index and either prints it, rewrites the readme or shows
// how the readme would change.
func run(ctx context.Context, cfg config.Specification, stdout io.Writer) (int, error) {
	root, err := filepath.Abs(cfg.RepoRoot)
	if err != nil {
		return exitError, fmt.Errorf("resolve repo root: %w", err)
	}
	log.Debug().Str("root", root).Str("ref", cfg.GitRef).Msg("building index")

	times, err := history.Resolve(ctx, root, cfg.GitRef)
	if err != nil {
		return exitError, err
	}

	title, err := indexer.TitleFuncFor(cfg.TitleStyle)
	if err != nil {
		return exitError, err
	}
	b := indexer.New(indexer.Options{
		Root:          root,
		LinkBase:      cfg.LinkBase,
		Extensions:    cfg.NoteExtensions,
		ExcludeTopics: cfg.ExcludeTopics,
		TopicOrder:    cfg.TopicOrder,
		Title:         title,
	})
	groups, err := b.Build(times)
	if err != nil {
		return exitError, err
	}
	text, count := indexer.Render(groups)

	doc := cfg.Readme
	if !filepath.IsAbs(doc) {
		doc = filepath.Join(root, doc)
	}

	switch {
	case cfg.Rewrite:
		if _, err := readme.RewriteFile(doc, text, count); err != nil {
			return exitError, err
		}
		return exitOK, nil

	case cfg.Diff:
		before, err := os.ReadFile(doc)
		if err != nil {
			return exitError, err
		}
		after, err := readme.Rewrite(string(before), text, count)
		if err != nil {
			return exitError, fmt.Errorf("%s: %w", doc, err)
		}
		lines := readme.Diff(string(before), after)
		if !readme.Changed(lines) {
			log.Info().Str("path", doc).Msg("document up to date")
			return exitOK, nil
		}
		if err := readme.WriteDiff(stdout, lines, diffContext); err != nil {
			return exitError, err
		}
		return exitStale, nil

	default:
		if _, err := fmt.Fprintln(stdout, indexer.WrapIndex(text)); err != nil {
			return exitError, err
		}
		return exitOK, nil
	}
}
