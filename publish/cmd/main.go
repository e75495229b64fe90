// Command publish reconciles a local working copy of a hosted
// repository, runs an optional command inside it, then commits,
// pushes, and opens or reuses a pull request for the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/byte4ever/repo_publisher/exec"
	"github.com/byte4ever/repo_publisher/gitauth"
	"github.com/byte4ever/repo_publisher/hosting"
	"github.com/byte4ever/repo_publisher/hosting/github"
	"github.com/byte4ever/repo_publisher/hosting/gitlab"
	"github.com/byte4ever/repo_publisher/publish"
)

// sliceFlag implements flag.Value for multi-value string flags
// (repeated --flag=val usage).
type sliceFlag []string

// String returns the flag value as a comma-separated string
// representation.
func (s *sliceFlag) String() string {
	if s == nil {
		return ""
	}

	return strings.Join(*s, ",")
}

// Set appends a value to the slice.
func (s *sliceFlag) Set(val string) error {
	*s = append(*s, val)

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running publish"

	// Repository flags.
	owner := flag.String(
		"owner", "",
		"Repository owner (user or organisation)",
	)
	repo := flag.String(
		"repo", "",
		"Repository name",
	)
	branch := flag.String(
		"branch", "",
		"Branch to work on (default: remote default branch)",
	)
	base := flag.String(
		"base", "",
		"Base branch (default: remote default branch)",
	)
	workDir := flag.String(
		"workdir", "",
		"Working copy path (default: owner/repo/branch)",
	)

	// Hosting platform selection.
	platformName := flag.String(
		"platform", "github",
		"Hosting platform: github or gitlab",
	)

	// GitHub-specific flags.
	ghToken := flag.String(
		"github_access_token", "",
		"GitHub personal access token",
	)
	ghEnterprise := flag.String(
		"github_enterprise_host", "",
		"GitHub Enterprise hostname",
	)

	// GitLab-specific flags.
	glHost := flag.String(
		"gitlab_host", "",
		"GitLab instance URL",
	)
	glToken := flag.String(
		"gitlab_access_token", "",
		"GitLab personal access token",
	)

	// Git transport credential flags.
	gitUsername := flag.String(
		"git_username", "",
		"Git transport username",
	)
	gitPassword := flag.String(
		"git_password", "",
		"Git transport password",
	)
	gitToken := flag.String(
		"git_token", "",
		"Git transport access token",
	)

	// Publication flags.
	commitMessage := flag.String(
		"commit_message", "",
		"Commit message (default: synthesized summary)",
	)
	prTitle := flag.String(
		"pr_title", "",
		"Pull request title; unset skips PR creation",
	)
	prBody := flag.String(
		"pr_body", "",
		"Pull request body",
	)
	description := flag.String(
		"description", "",
		"Repository description to apply",
	)
	newRepoDescription := flag.String(
		"new_repo_description", "",
		"Description applied when the repository is created",
	)
	dryRun := flag.Bool(
		"dry_run", false,
		"Commit locally but skip push and pull request creation",
	)

	var changedFiles sliceFlag

	flag.Var(
		&changedFiles,
		"changed_file",
		"Glob pattern to stage (repeatable; "+
			"default: stage everything)",
	)

	flag.Parse()

	platform, err := newPlatform(*platformName, platformFlags{
		ghToken:      *ghToken,
		ghEnterprise: *ghEnterprise,
		glHost:       *glHost,
		glToken:      *glToken,
	})
	if err != nil {
		return fmt.Errorf(
			"%s: create platform: %w", errCtx, err,
		)
	}

	ctx := context.Background()
	command := flag.Args()

	cfg := publish.Config{
		Owner:    *owner,
		Repo:     *repo,
		Branch:   *branch,
		Base:     *base,
		WorkDir:  *workDir,
		Platform: platform,
		Credentials: gitauth.Config{
			Username: *gitUsername,
			Password: *gitPassword,
			Token:    *gitToken,
		},
		DryRun: *dryRun,
	}

	result, err := publish.Run(ctx, cfg,
		func(s *publish.Session) (any, error) {
			s.CommitMessage = *commitMessage
			s.RepositoryDescription = *description
			s.NewRepositoryDescription = *newRepoDescription
			s.ChangedFiles = changedFiles

			if *prTitle != "" {
				s.PullRequestMessage = *prTitle
				if *prBody != "" {
					s.PullRequestMessage += "\n" + *prBody
				}
			}

			if len(command) == 0 {
				return "", nil
			}

			return exec.Ex(
				ctx,
				s.WorkingDirectory,
				command[0],
				command[1:]...,
			)
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if out, ok := result.(string); ok && out != "" {
		fmt.Print(out)
	}

	return nil
}

// platformFlags bundles platform-specific flag values.
type platformFlags struct {
	ghToken      string
	ghEnterprise string
	glHost       string
	glToken      string
}

// newPlatform creates a hosting.Platform based on the platform name.
// Pattern: Factory -- selects platform implementation at runtime.
func newPlatform(
	name string,
	pf platformFlags,
) (hosting.Platform, error) {
	const errCtx = "creating hosting platform"

	switch name {
	case "github":
		p, err := github.New(github.Config{
			AccessToken:    pf.ghToken,
			EnterpriseHost: pf.ghEnterprise,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case "gitlab":
		p, err := gitlab.New(gitlab.Config{
			Host:        pf.glHost,
			AccessToken: pf.glToken,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown platform %q", errCtx, name,
		)
	}
}
