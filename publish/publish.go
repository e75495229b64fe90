package publish

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/byte4ever/repo_publisher/gitauth"
	"github.com/byte4ever/repo_publisher/hosting"
	"github.com/byte4ever/repo_publisher/worktree"
)

// MutateFunc edits the reconciled working tree. It receives the
// session read-write and its result value becomes the return value of
// Run.
type MutateFunc func(*Session) (any, error)

// Config holds all settings for one publication run. Use a Config
// struct instead of many arguments.
type Config struct {
	// Owner is the user or organisation that owns the repository.
	Owner string

	// Repo is the repository name (without owner).
	Repo string

	// Branch is the branch to work on. Empty selects the remote's
	// default branch ("master" when the repository is created by
	// this run).
	Branch string

	// Base is the branch to compare and merge against. Empty
	// selects the remote's default branch.
	Base string

	// WorkDir is the working copy path. Empty selects
	// "{owner}/{repo}/{branch}".
	WorkDir string

	// Platform is the pre-built hosting platform client.
	Platform hosting.Platform

	// Credentials authenticate git transport operations. May be
	// zero for remotes that need none.
	Credentials gitauth.Config

	// DryRun commits locally but skips push, pull request, and
	// metadata updates when true.
	DryRun bool
}

// Run executes one publication: resolve or create the remote
// repository, reconcile the working copy, run the mutation, commit
// and push, reconcile the pull request, and update metadata. The
// mutation's result value is returned.
func Run(
	ctx context.Context,
	cfg Config,
	mutate MutateFunc,
) (any, error) {
	const errCtx = "running publication"

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if mutate == nil {
		return nil, fmt.Errorf(
			"%s: mutation must be set", errCtx,
		)
	}

	me, err := cfg.Platform.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	auth, err := cfg.transportAuth()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	session, err := resolveSession(ctx, cfg, me)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	rec := &worktree.Reconciler{
		Auth: auth,
		Identity: worktree.Identity{
			Name:  me.Login,
			Email: me.Email,
		},
	}

	repo, err := rec.Reconcile(ctx, worktree.Params{
		Dir:       session.WorkingDirectory,
		RemoteURL: session.Remote.CloneURL,
		Branch:    session.BranchName,
		Base:      session.BaseName,
		FreshInit: session.RepoWasCreated,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	session.Local = repo

	result, err := mutate(session)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: mutation: %w", errCtx, err,
		)
	}

	if err := publishChanges(
		ctx, rec, session, cfg.DryRun,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.DryRun {
		return result, nil
	}

	if err := reconcilePullRequest(
		ctx, cfg.Platform, session,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := updateMetadata(
		ctx, cfg.Platform, session,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return result, nil
}

// validate checks the required configuration fields.
func (cfg Config) validate() error {
	if cfg.Owner == "" {
		return fmt.Errorf("owner must be set")
	}

	if cfg.Repo == "" {
		return fmt.Errorf("repo must be set")
	}

	if cfg.Platform == nil {
		return fmt.Errorf("platform must be set")
	}

	return nil
}

// transportAuth resolves the configured credentials into a transport
// auth method. A zero credential configuration means the remote needs
// no authentication.
func (cfg Config) transportAuth() (transport.AuthMethod, error) {
	if cfg.Credentials == (gitauth.Config{}) {
		return nil, nil
	}

	auth, err := gitauth.NewAdapter(cfg.Credentials).BasicAuth()
	if err != nil {
		return nil, err
	}

	return auth, nil
}
