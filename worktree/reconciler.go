package worktree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// remoteName is the name of the upstream remote.
const remoteName = "origin"

// initialCommitMessage is used for the empty commit that seeds a
// freshly created repository.
const initialCommitMessage = "Initial commit"

// Identity names the author and committer of commits produced during
// reconciliation and publication.
type Identity struct {
	// Name is the commit author name.
	Name string
	// Email is the commit author email.
	Email string
}

// Params describes one working copy to reconcile.
type Params struct {
	// Dir is the filesystem path of the working copy. It is
	// exclusively owned by the caller for the duration of the run.
	Dir string
	// RemoteURL is the transport URL of the remote repository.
	RemoteURL string
	// Branch is the branch to check out.
	Branch string
	// Base is the branch to fork from when Branch does not exist on
	// the remote.
	Base string
	// FreshInit initializes an empty history instead of fetching.
	// Set only when the remote repository was just created.
	FreshInit bool
}

// Reconciler produces and manipulates local working copies.
type Reconciler struct {
	// Auth authenticates transport operations. May be nil for
	// remotes that need none.
	Auth transport.AuthMethod
	// Identity authors the commits this reconciler creates.
	Identity Identity
}

// Reconcile ensures Params.Dir contains a working copy whose HEAD is
// the remote tip of the branch (or of the base branch when the branch
// does not exist remotely), discarding any uncommitted local state.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	p Params,
) (*git.Repository, error) {
	const errCtx = "reconciling working copy"

	if p.FreshInit {
		repo, err := r.initFresh(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return repo, nil
	}

	repo, err := r.openExisting(p)
	if err != nil {
		slog.Info(
			"working copy unusable, cloning",
			"dir", p.Dir,
			"reason", err,
		)

		repo, err = r.clone(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if err := r.syncBranch(ctx, repo, p); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return repo, nil
}

// openExisting opens a repository already present at p.Dir, points
// its origin remote at p.RemoteURL, and discards uncommitted state.
func (r *Reconciler) openExisting(
	p Params,
) (*git.Repository, error) {
	const errCtx = "opening existing working copy"

	repo, err := git.PlainOpen(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := ensureOrigin(repo, p.RemoteURL); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := wt.Reset(&git.ResetOptions{
		Mode: git.HardReset,
	}); err != nil {
		return nil, fmt.Errorf(
			"%s: hard reset: %w", errCtx, err,
		)
	}

	if err := wt.Clean(&git.CleanOptions{
		Dir: true,
	}); err != nil {
		return nil, fmt.Errorf(
			"%s: clean untracked: %w", errCtx, err,
		)
	}

	return repo, nil
}

// clone clones p.RemoteURL into p.Dir. A failed clone deletes the
// partial directory and retries exactly once.
func (r *Reconciler) clone(
	ctx context.Context,
	p Params,
) (*git.Repository, error) {
	const errCtx = "cloning repository"

	if err := os.MkdirAll(
		filepath.Dir(p.Dir), 0o755,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: create parent dirs: %w", errCtx, err,
		)
	}

	opts := &git.CloneOptions{
		URL:  p.RemoteURL,
		Auth: r.Auth,
	}

	repo, err := git.PlainCloneContext(ctx, p.Dir, false, opts)
	if err == nil {
		return repo, nil
	}

	slog.Warn(
		"clone failed, removing working copy and retrying",
		"dir", p.Dir,
		"error", err,
	)

	if err := os.RemoveAll(p.Dir); err != nil {
		return nil, fmt.Errorf(
			"%s: remove partial clone: %w", errCtx, err,
		)
	}

	repo, err = git.PlainCloneContext(ctx, p.Dir, false, opts)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: retry: %w", errCtx, err,
		)
	}

	return repo, nil
}

// syncBranch force-fetches the branch into its remote-tracking ref,
// force-creates the local branch at that ref, checks it out, and
// hard-resets to it. When the branch is absent on the remote the base
// branch's tip is fetched instead, so a not-yet-existing feature
// branch starts from the base.
func (r *Reconciler) syncBranch(
	ctx context.Context,
	repo *git.Repository,
	p Params,
) error {
	const errCtx = "syncing branch"

	ref, err := r.fetchTracking(ctx, repo, p.Branch)
	if errors.Is(err, git.NoMatchingRefSpecError{}) {
		slog.Info(
			"branch missing on remote, starting from base",
			"branch", p.Branch,
			"base", p.Base,
		)

		ref, err = r.fetchTracking(ctx, repo, p.Base)
	}

	if err != nil {
		return fmt.Errorf("%s: fetch: %w", errCtx, err)
	}

	branchRef := plumbing.NewBranchReferenceName(p.Branch)

	if err := repo.Storer.SetReference(
		plumbing.NewHashReference(branchRef, ref.Hash()),
	); err != nil {
		return fmt.Errorf(
			"%s: set branch ref: %w", errCtx, err,
		)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
		Force:  true,
	}); err != nil {
		return fmt.Errorf(
			"%s: checkout: %w", errCtx, err,
		)
	}

	if err := wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: ref.Hash(),
	}); err != nil {
		return fmt.Errorf(
			"%s: hard reset: %w", errCtx, err,
		)
	}

	return nil
}

// fetchTracking force-fetches refs/heads/{name} into the origin
// remote-tracking ref and resolves it. The fetch error is returned
// unwrapped so callers can match git.NoMatchingRefSpecError.
func (r *Reconciler) fetchTracking(
	ctx context.Context,
	repo *git.Repository,
	name string,
) (*plumbing.Reference, error) {
	spec := config.RefSpec(fmt.Sprintf(
		"+refs/heads/%s:refs/remotes/%s/%s",
		name, remoteName, name,
	))

	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       r.Auth,
		Force:      true,
	})
	if err != nil &&
		!errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, err
	}

	return repo.Reference(
		plumbing.NewRemoteReferenceName(remoteName, name),
		true,
	)
}

// initFresh initializes an empty repository with an origin remote, an
// empty initial commit authored by the reconciler's identity, and the
// branch checked out. Used only when the remote repository was just
// created, so there is no history to fetch.
func (r *Reconciler) initFresh(
	p Params,
) (*git.Repository, error) {
	const errCtx = "initializing fresh repository"

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, fmt.Errorf(
			"%s: create dir: %w", errCtx, err,
		)
	}

	repo, err := git.PlainInit(p.Dir, false)
	if err != nil {
		return nil, fmt.Errorf("%s: init: %w", errCtx, err)
	}

	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: remoteName,
		URLs: []string{p.RemoteURL},
	}); err != nil {
		return nil, fmt.Errorf(
			"%s: add origin: %w", errCtx, err,
		)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sig := r.signature()

	hash, err := wt.Commit(
		initialCommitMessage,
		&git.CommitOptions{
			Author:            sig,
			Committer:         sig,
			AllowEmptyCommits: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: initial commit: %w", errCtx, err,
		)
	}

	branchRef := plumbing.NewBranchReferenceName(p.Branch)

	if err := repo.Storer.SetReference(
		plumbing.NewHashReference(branchRef, hash),
	); err != nil {
		return nil, fmt.Errorf(
			"%s: set branch ref: %w", errCtx, err,
		)
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
	}); err != nil {
		return nil, fmt.Errorf(
			"%s: checkout: %w", errCtx, err,
		)
	}

	return repo, nil
}

// Stage stages working tree changes. An empty pattern list stages
// every new, modified, and deleted path; otherwise each glob pattern
// is staged in turn, deletions included.
func (r *Reconciler) Stage(
	repo *git.Repository,
	patterns []string,
) error {
	const errCtx = "staging changes"

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(patterns) == 0 {
		if err := wt.AddWithOptions(&git.AddOptions{
			All: true,
		}); err != nil {
			return fmt.Errorf(
				"%s: add all: %w", errCtx, err,
			)
		}

		return nil
	}

	for _, pattern := range patterns {
		err := wt.AddGlob(pattern)
		if err != nil &&
			!errors.Is(err, git.ErrGlobNoMatches) {
			return fmt.Errorf(
				"%s: add %s: %w", errCtx, pattern, err,
			)
		}
	}

	if err := stageDeletions(wt, patterns); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// stageDeletions stages tracked paths deleted from the working tree
// that match one of the glob patterns. AddGlob walks the filesystem,
// so a deleted file never matches it.
func stageDeletions(
	wt *git.Worktree,
	patterns []string,
) error {
	const errCtx = "staging deletions"

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	for name, st := range status {
		if st.Worktree != git.Deleted {
			continue
		}

		if !matchesAny(name, patterns) {
			continue
		}

		if _, err := wt.Remove(name); err != nil {
			return fmt.Errorf(
				"%s: remove %s: %w", errCtx, name, err,
			)
		}
	}

	return nil
}

// matchesAny reports whether name matches at least one glob pattern.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}

	return false
}

// ChangedPaths returns the sorted list of paths staged for commit,
// and whether the staging area is clean. Untracked paths left
// unstaged by pattern-restricted staging do not count.
func (r *Reconciler) ChangedPaths(
	repo *git.Repository,
) ([]string, bool, error) {
	const errCtx = "checking working tree status"

	wt, err := repo.Worktree()
	if err != nil {
		return nil, false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	paths := make([]string, 0, len(status))

	for path, st := range status {
		if st.Staging == git.Unmodified ||
			st.Staging == git.Untracked {
			continue
		}

		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths, len(paths) == 0, nil
}

// Commit commits the staged changes with the reconciler's identity as
// author and committer.
func (r *Reconciler) Commit(
	repo *git.Repository,
	message string,
) error {
	const errCtx = "committing changes"

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	sig := r.signature()

	if _, err := wt.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	}); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Push pushes the branch to origin. An up-to-date remote is a logged
// no-op, covering the case where a prior interrupted run committed
// but did not push.
func (r *Reconciler) Push(
	ctx context.Context,
	repo *git.Repository,
	branch string,
) error {
	const errCtx = "pushing branch"

	spec := config.RefSpec(fmt.Sprintf(
		"refs/heads/%s:refs/heads/%s", branch, branch,
	))

	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       r.Auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Info(
			"remote already up to date",
			"branch", branch,
		)

		return nil
	}

	if err != nil {
		return fmt.Errorf(
			"%s: %s: %w", errCtx, branch, err,
		)
	}

	return nil
}

// signature builds the commit signature for the reconciler's
// identity.
func (r *Reconciler) signature() *object.Signature {
	return &object.Signature{
		Name:  r.Identity.Name,
		Email: r.Identity.Email,
		When:  time.Now(),
	}
}

// ensureOrigin points the origin remote at url, replacing it when it
// exists with a different URL and adding it when absent.
func ensureOrigin(repo *git.Repository, url string) error {
	const errCtx = "ensuring origin remote"

	rem, err := repo.Remote(remoteName)

	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
		if _, err := repo.CreateRemote(
			&config.RemoteConfig{
				Name: remoteName,
				URLs: []string{url},
			},
		); err != nil {
			return fmt.Errorf(
				"%s: add: %w", errCtx, err,
			)
		}

		return nil

	case err != nil:
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	urls := rem.Config().URLs
	if len(urls) > 0 && urls[0] == url {
		return nil
	}

	if err := repo.DeleteRemote(remoteName); err != nil {
		return fmt.Errorf(
			"%s: delete stale: %w", errCtx, err,
		)
	}

	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: remoteName,
		URLs: []string{url},
	}); err != nil {
		return fmt.Errorf(
			"%s: re-add: %w", errCtx, err,
		)
	}

	return nil
}
