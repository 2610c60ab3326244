package history

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/tilindex/pkg/models"
)

// DefaultRef is the branch resolved when no ref is given.
const DefaultRef = "main"

// RepositoryAccessError reports a repository that cannot be opened or a ref
// that cannot be resolved or walked.
type RepositoryAccessError struct {
	Path string
	Ref  string
	Err  error
}

func (e *RepositoryAccessError) Error() string {
	return fmt.Sprintf("repository %s (ref %q): %v", e.Path, e.Ref, e.Err)
}

func (e *RepositoryAccessError) Unwrap() error { return e.Err }

// Times maps repository-relative slash paths to the commit that introduced them.
type Times map[string]models.CommitTime

// Lookup returns the creation time recorded for path.
func (t Times) Lookup(path string) (models.CommitTime, bool) {
	ct, ok := t[path]
	return ct, ok
}

// Resolve replays the history of ref from oldest to newest commit and records,
// for every path touched along the way, the committer time of the first
// commit that touched it.
func Resolve(ctx context.Context, repoPath, ref string) (Times, error) {
	if ref == "" {
		ref = DefaultRef
	}
	accessErr := func(err error) error {
		return &RepositoryAccessError{Path: repoPath, Ref: ref, Err: err}
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, accessErr(err)
	}
	head, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, accessErr(err)
	}

	commits, err := collect(repo, *head)
	if err != nil {
		return nil, accessErr(err)
	}
	log.Debug().Str("ref", ref).Int("commits", len(commits)).Msg("replaying history")

	times := make(Times)
	for i := len(commits) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := commits[i]
		paths, err := changedPaths(ctx, c)
		if err != nil {
			return nil, accessErr(fmt.Errorf("diff %s: %w", c.Hash, err))
		}
		when := c.Committer.When
		for _, p := range paths {
			if _, seen := times[p]; seen {
				continue
			}
			times[p] = models.CommitTime{
				Created:    when,
				CreatedUTC: when.UTC(),
				Commit:     c.Hash.String(),
			}
		}
	}

	log.Info().Str("ref", ref).Int("commits", len(commits)).Int("paths", len(times)).Msg("resolved creation times")
	return times, nil
}

// collect returns the commits reachable from head, newest first.
func collect(repo *git.Repository, head plumbing.Hash) ([]*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: head, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c)
		return nil
	})
	return commits, err
}

// changedPaths lists the paths a commit changed relative to its first parent.
// Root commits are compared against the empty tree.
func changedPaths(ctx context.Context, c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeContext(ctx, parentTree, tree)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.From.Name != "" {
			paths = append(paths, ch.From.Name)
		}
		if ch.To.Name != "" && ch.To.Name != ch.From.Name {
			paths = append(paths, ch.To.Name)
		}
	}
	return paths, nil
}
