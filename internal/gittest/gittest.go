// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a non-bare repository rooted at Dir with "main" as its initial branch.
type Repo struct {
	Dir  string
	Repo *git.Repository
}

// Init creates an empty repository in dir.
func Init(t *testing.T, dir string) *Repo {
	t.Helper()
	r, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return &Repo{Dir: dir, Repo: r}
}

// Write creates or overwrites a file relative to the repository root without staging it.
func (r *Repo) Write(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(r.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Commit writes files, stages them and commits at the given time.
// It returns the commit hash.
func (r *Repo) Commit(t *testing.T, when time.Time, files map[string]string) string {
	t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		r.Write(t, rel, content)
		if _, err := wt.Add(rel); err != nil {
			t.Fatalf("add %s: %v", rel, err)
		}
	}
	return r.commit(t, wt, when)
}

// Remove deletes files from the worktree and commits the removal.
func (r *Repo) Remove(t *testing.T, when time.Time, paths ...string) string {
	t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range paths {
		if _, err := wt.Remove(rel); err != nil {
			t.Fatalf("remove %s: %v", rel, err)
		}
	}
	return r.commit(t, wt, when)
}

// Move renames a tracked file and commits the rename.
func (r *Repo) Move(t *testing.T, when time.Time, from, to string) string {
	t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(r.Dir, filepath.Dir(filepath.FromSlash(to))), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Move(from, to); err != nil {
		t.Fatalf("move %s to %s: %v", from, to, err)
	}
	return r.commit(t, wt, when)
}

// Branch creates a branch at HEAD and checks it out.
func (r *Repo) Branch(t *testing.T, name string) {
	t.Helper()
	r.checkout(t, name, true)
}

// Checkout switches the worktree to an existing branch.
func (r *Repo) Checkout(t *testing.T, name string) {
	t.Helper()
	r.checkout(t, name, false)
}

func (r *Repo) checkout(t *testing.T, name string, create bool) {
	t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: create,
	})
	if err != nil {
		t.Fatalf("checkout %s: %v", name, err)
	}
}

// Merge records a merge commit of branch into the current branch. Files of
// branch overwrite those in the worktree; conflicts are not detected.
// HEAD stays the first parent.
func (r *Repo) Merge(t *testing.T, when time.Time, branch string) string {
	t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	head, err := r.Repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	ref, err := r.Repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		t.Fatalf("resolve %s: %v", branch, err)
	}
	other, err := r.Repo.CommitObject(ref.Hash())
	if err != nil {
		t.Fatal(err)
	}
	files, err := other.Files()
	if err != nil {
		t.Fatal(err)
	}
	err = files.ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return err
		}
		r.Write(t, f.Name, content)
		_, err = wt.Add(f.Name)
		return err
	})
	if err != nil {
		t.Fatalf("merge %s: %v", branch, err)
	}

	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	h, err := wt.Commit("merge "+branch, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
		Parents:   []plumbing.Hash{head.Hash(), ref.Hash()},
	})
	if err != nil {
		t.Fatalf("commit merge: %v", err)
	}
	return h.String()
}

func (r *Repo) commit(t *testing.T, wt *git.Worktree, when time.Time) string {
	t.Helper()
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	h, err := wt.Commit("update notes", &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return h.String()
}
