package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/byte4ever/repo_publisher/hosting"
)

// reconcilePullRequest publishes the intent to merge the branch into
// the base without duplicating requests. Equal tips mean there is
// nothing to propose; an unset pull request message means publication
// without a pull request is the intended terminal state.
func reconcilePullRequest(
	ctx context.Context,
	platform hosting.Platform,
	s *Session,
) error {
	const errCtx = "reconciling pull request"

	owner, name := s.Remote.Owner, s.Remote.Name

	branchTip, err := platform.GetBranch(
		ctx, owner, name, s.BranchName,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	baseTip, err := platform.GetBranch(
		ctx, owner, name, s.BaseName,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if branchTip.SHA == baseTip.SHA {
		// Same-branch equality is not noteworthy.
		if s.BranchName != s.BaseName {
			slog.Info(
				"branch matches base, nothing to propose",
				"branch", s.BranchName,
				"base", s.BaseName,
			)
		}

		return nil
	}

	if s.PullRequestMessage == "" {
		return nil
	}

	title, body := splitMessage(s.PullRequestMessage)
	head := owner + ":" + s.BranchName

	existing, err := platform.FindOpenPullRequest(
		ctx, owner, name, head, s.BaseName,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if existing != nil {
		slog.Info(
			"reusing existing pull request",
			"url", existing.URL,
		)

		return nil
	}

	pr, err := platform.CreatePullRequest(
		ctx, owner, name, title, body, head, s.BaseName,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("created pull request", "url", pr.URL)

	return nil
}

// updateMetadata applies the session's effective repository
// description, when one is configured.
func updateMetadata(
	ctx context.Context,
	platform hosting.Platform,
	s *Session,
) error {
	const errCtx = "updating repository metadata"

	description := s.effectiveDescription()
	if description == "" {
		return nil
	}

	if err := platform.SetDescription(
		ctx, s.Remote.Owner, s.Remote.Name, description,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"updated repository description",
		"repo", s.Remote.Owner+"/"+s.Remote.Name,
	)

	return nil
}

// splitMessage splits a pull request message on its first newline
// into title and body.
func splitMessage(message string) (string, string) {
	title, body, _ := strings.Cut(message, "\n")

	return title, body
}
