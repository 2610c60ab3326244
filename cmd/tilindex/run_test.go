package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/seanblong/tilindex/internal/config"
	"github.com/seanblong/tilindex/internal/gittest"
	"github.com/seanblong/tilindex/internal/history"
	"github.com/seanblong/tilindex/internal/indexer"
	"github.com/seanblong/tilindex/internal/readme"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	color.NoColor = true
}

const (
	base   = "https://github.com/example/til/blob/main"
	readMe = "# TIL\n\n<!-- count starts -->0<!-- count ends --> TILs\n\n<!-- index starts -->\ncoming soon\n<!-- index ends -->\n\nfooter\n"
)

func testConfig(root string) config.Specification {
	return config.Specification{
		RepoRoot:       root,
		GitRef:         "main",
		LinkBase:       base,
		Readme:         "README.md",
		NoteExtensions: []string{".md"},
		TopicOrder:     "alpha",
		TitleStyle:     "heading",
		LogLevel:       "info",
	}
}

// setupRepo commits two notes in one topic plus the readme template.
func setupRepo(t *testing.T) *gittest.Repo {
	t.Helper()
	r := gittest.Init(t, t.TempDir())
	r.Commit(t, time.Date(2022, 12, 31, 9, 0, 0, 0, time.UTC), map[string]string{"README.md": readMe})
	r.Commit(t, time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC), map[string]string{"go/alpha.md": "# Alpha\n"})
	r.Commit(t, time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC), map[string]string{"go/beta.md": "# Beta\n"})
	return r
}

const wantIndex = "<!-- index starts -->\n" +
	"## go\n\n" +
	"* [Beta](" + base + "/go/beta.md) - 2023-06-01\n" +
	"* [Alpha](" + base + "/go/alpha.md) - 2023-01-01\n" +
	"<!-- index ends -->"

func TestRunPrintsIndex(t *testing.T) {
	r := setupRepo(t)

	var out bytes.Buffer
	code, err := run(context.Background(), testConfig(r.Dir), &out)
	if err != nil || code != exitOK {
		t.Fatalf("run = %d, %v", code, err)
	}
	if diff := cmp.Diff(wantIndex+"\n", out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	b, _ := os.ReadFile(filepath.Join(r.Dir, "README.md"))
	if string(b) != readMe {
		t.Error("printing the index must not touch the readme")
	}
}

func TestRunRewrite(t *testing.T) {
	r := setupRepo(t)
	cfg := testConfig(r.Dir)
	cfg.Rewrite = true

	var out bytes.Buffer
	if code, err := run(context.Background(), cfg, &out); err != nil || code != exitOK {
		t.Fatalf("run = %d, %v", code, err)
	}
	if out.Len() != 0 {
		t.Errorf("rewrite should not print, got %q", out.String())
	}

	b, err := os.ReadFile(filepath.Join(r.Dir, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	want := "# TIL\n\n<!-- count starts -->2<!-- count ends --> TILs\n\n" + wantIndex + "\n\nfooter\n"
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("readme mismatch (-want +got):\n%s", diff)
	}

	// a second run is a no-op
	if code, err := run(context.Background(), cfg, &out); err != nil || code != exitOK {
		t.Fatalf("second run = %d, %v", code, err)
	}
	again, _ := os.ReadFile(filepath.Join(r.Dir, "README.md"))
	if string(again) != string(b) {
		t.Error("second rewrite changed the readme")
	}
}

func TestRunDiff(t *testing.T) {
	r := setupRepo(t)
	cfg := testConfig(r.Dir)
	cfg.Diff = true

	var out bytes.Buffer
	code, err := run(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != exitStale {
		t.Errorf("code = %d, want %d", code, exitStale)
	}
	for _, want := range []string{"-<!-- count starts -->0<!-- count ends --> TILs", "+<!-- count starts -->2<!-- count ends --> TILs", "-coming soon", "+## go"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("diff missing %q:\n%s", want, out.String())
		}
	}

	b, _ := os.ReadFile(filepath.Join(r.Dir, "README.md"))
	if string(b) != readMe {
		t.Error("diff must not touch the readme")
	}

	cfg.Diff = false
	cfg.Rewrite = true
	if _, err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	cfg.Rewrite = false
	cfg.Diff = true
	out.Reset()
	if code, err := run(context.Background(), cfg, &out); err != nil || code != exitOK {
		t.Errorf("diff after rewrite = %d, %v; output %q", code, err, out.String())
	}
}

func TestRunRewriteMissingCountMarkers(t *testing.T) {
	r := gittest.Init(t, t.TempDir())
	doc := "# TIL\n<!-- index starts -->\n<!-- index ends -->\n"
	r.Commit(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), map[string]string{
		"README.md":   doc,
		"go/alpha.md": "# Alpha\n",
	})
	cfg := testConfig(r.Dir)
	cfg.Rewrite = true

	code, err := run(context.Background(), cfg, &bytes.Buffer{})
	var fe *readme.DocumentFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *readme.DocumentFormatError", err)
	}
	if code != exitError {
		t.Errorf("code = %d, want %d", code, exitError)
	}
	b, _ := os.ReadFile(filepath.Join(r.Dir, "README.md"))
	if string(b) != doc {
		t.Errorf("readme modified:\n%s", b)
	}
}

func TestRunUncommittedNote(t *testing.T) {
	r := setupRepo(t)
	r.Write(t, "go/gamma.md", "# Gamma\n")

	var out bytes.Buffer
	code, err := run(context.Background(), testConfig(r.Dir), &out)
	var missing *indexer.MissingTimestampError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *indexer.MissingTimestampError", err)
	}
	if missing.Path != "go/gamma.md" {
		t.Errorf("Path = %q, want go/gamma.md", missing.Path)
	}
	if code != exitError || out.Len() != 0 {
		t.Errorf("code = %d, output %q; want failure with no output", code, out.String())
	}
}

func TestRunBadRef(t *testing.T) {
	r := setupRepo(t)
	cfg := testConfig(r.Dir)
	cfg.GitRef = "gh-pages"

	code, err := run(context.Background(), cfg, &bytes.Buffer{})
	var accessErr *history.RepositoryAccessError
	if !errors.As(err, &accessErr) || code != exitError {
		t.Fatalf("run = %d, %v; want RepositoryAccessError", code, err)
	}
}
