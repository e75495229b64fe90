package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/byte4ever/repo_publisher/hosting"
)

// defaultBranchName seeds a repository created by this run when no
// explicit branch is configured.
const defaultBranchName = "master"

// resolveSession fetches or creates the remote repository record and
// derives the effective branch, base, and working directory. Any
// failure other than the repository being absent is fatal.
func resolveSession(
	ctx context.Context,
	cfg Config,
	me *hosting.User,
) (*Session, error) {
	const errCtx = "resolving repository"

	created := false

	remote, err := cfg.Platform.GetRepository(
		ctx, cfg.Owner, cfg.Repo,
	)

	switch {
	case err == nil:

	case errors.Is(err, hosting.ErrRepositoryNotFound):
		remote, err = createRepository(ctx, cfg, me)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		created = true

	default:
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	branch, base := effectiveBranches(cfg, remote, created)

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(cfg.Owner, cfg.Repo, branch)
	}

	return &Session{
		Remote:           remote,
		BranchName:       branch,
		BaseName:         base,
		WorkingDirectory: workDir,
		RepoWasCreated:   created,
	}, nil
}

// createRepository creates the repository under the organisation, or
// under the caller's own account when the owner name equals the
// caller's login.
func createRepository(
	ctx context.Context,
	cfg Config,
	me *hosting.User,
) (*hosting.Repository, error) {
	const errCtx = "creating repository"

	owner := cfg.Owner
	if owner == me.Login {
		owner = ""
	}

	slog.Info(
		"repository not found, creating",
		"owner", cfg.Owner,
		"repo", cfg.Repo,
	)

	remote, err := cfg.Platform.CreateRepository(
		ctx, owner, cfg.Repo,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return remote, nil
}

// effectiveBranches derives the branch and base names. Explicit
// configuration wins; otherwise the remote's default branch is used,
// except that a repository created by this run starts on "master".
func effectiveBranches(
	cfg Config,
	remote *hosting.Repository,
	created bool,
) (string, string) {
	branch := cfg.Branch
	base := cfg.Base

	if branch == "" {
		if created {
			branch = defaultBranchName
		} else {
			branch = remote.DefaultBranch
		}
	}

	if base == "" {
		base = remote.DefaultBranch
	}

	if base == "" {
		base = branch
	}

	return branch, base
}
