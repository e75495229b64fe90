package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/byte4ever/repo_publisher/commitmsg"
	"github.com/byte4ever/repo_publisher/worktree"
)

// publishChanges stages the session's changes, commits when the tree
// is dirty, and pushes the branch. The push happens even when nothing
// was committed, to cover a prior interrupted run that committed but
// did not push. A dry run stops after the local commit.
func publishChanges(
	ctx context.Context,
	rec *worktree.Reconciler,
	s *Session,
	dryRun bool,
) error {
	const errCtx = "publishing changes"

	if err := rec.Stage(s.Local, s.ChangedFiles); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	paths, clean, err := rec.ChangedPaths(s.Local)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if clean {
		slog.Info("working tree clean, nothing to commit")
	} else {
		message := s.CommitMessage
		if message == "" {
			message = commitmsg.Summarize(paths)
		}

		if err := rec.Commit(s.Local, message); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		slog.Info(
			"committed changes",
			"branch", s.BranchName,
			"files", len(paths),
		)
	}

	if dryRun {
		slog.Info(
			"dry run: skipping push and pull request creation",
			"branch", s.BranchName,
		)

		return nil
	}

	if err := rec.Push(
		ctx, s.Local, s.BranchName,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
