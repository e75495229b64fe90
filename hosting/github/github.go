package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/repo_publisher/hosting"
)

// Config holds the settings needed to create a GitHub
// platform client.
type Config struct {
	// AccessToken is a personal access token or GitHub
	// App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
}

// Platform talks to the GitHub REST API.
//
// Pattern: Strategy -- implements hosting.Platform.
type Platform struct {
	client *gh.Client
}

// New validates cfg and returns a Platform ready to
// serve hosting requests.
func New(cfg Config) (*Platform, error) {
	const errCtx = "creating github platform"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	if cfg.EnterpriseHost != "" {
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Platform{client: client}, nil
}

// GetRepository fetches the repository record. A 404
// response is reported as hosting.ErrRepositoryNotFound.
func (p *Platform) GetRepository(
	ctx context.Context,
	owner string,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting github repository"

	repo, resp, err := p.client.Repositories.Get(
		ctx, owner, name,
	)
	if err != nil {
		if isNotFound(resp) {
			return nil, fmt.Errorf(
				"%s: %s/%s: %w",
				errCtx, owner, name,
				hosting.ErrRepositoryNotFound,
			)
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return toRepository(repo), nil
}

// CreateRepository creates a repository with default
// visibility. An empty owner creates it under the
// authenticated user's account.
func (p *Platform) CreateRepository(
	ctx context.Context,
	owner string,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "creating github repository"

	repo, _, err := p.client.Repositories.Create(
		ctx, owner, &gh.Repository{
			Name: &name,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created repository",
		"repo", repo.GetFullName(),
	)

	return toRepository(repo), nil
}

// GetBranch fetches a branch tip. A 404 response is
// reported as hosting.ErrBranchNotFound.
func (p *Platform) GetBranch(
	ctx context.Context,
	owner string,
	name string,
	branch string,
) (*hosting.Branch, error) {
	const errCtx = "getting github branch"

	br, resp, err := p.client.Repositories.GetBranch(
		ctx, owner, name, branch, 0,
	)
	if err != nil {
		if isNotFound(resp) {
			return nil, fmt.Errorf(
				"%s: %s: %w",
				errCtx, branch,
				hosting.ErrBranchNotFound,
			)
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &hosting.Branch{
		Name: br.GetName(),
		SHA:  br.GetCommit().GetSHA(),
	}, nil
}

// CurrentUser returns the authenticated caller's login
// and email.
func (p *Platform) CurrentUser(
	ctx context.Context,
) (*hosting.User, error) {
	const errCtx = "getting github user"

	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &hosting.User{
		Login: user.GetLogin(),
		Email: user.GetEmail(),
	}, nil
}

// FindOpenPullRequest returns the first open pull
// request matching head and base, or nil when none
// exists.
func (p *Platform) FindOpenPullRequest(
	ctx context.Context,
	owner string,
	name string,
	head string,
	base string,
) (*hosting.PullRequest, error) {
	const errCtx = "listing github pull requests"

	prs, _, err := p.client.PullRequests.List(
		ctx, owner, name,
		&gh.PullRequestListOptions{
			State: "open",
			Head:  head,
			Base:  base,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(prs) == 0 {
		return nil, nil
	}

	return toPullRequest(prs[0]), nil
}

// CreatePullRequest opens a pull request from head into
// base and returns its record.
func (p *Platform) CreatePullRequest(
	ctx context.Context,
	owner string,
	name string,
	title string,
	body string,
	head string,
	base string,
) (*hosting.PullRequest, error) {
	const errCtx = "creating github pull request"

	pr, _, err := p.client.PullRequests.Create(
		ctx, owner, name, &gh.NewPullRequest{
			Title: &title,
			Head:  &head,
			Base:  &base,
			Body:  &body,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return toPullRequest(pr), nil
}

// SetDescription updates the repository description.
func (p *Platform) SetDescription(
	ctx context.Context,
	owner string,
	name string,
	description string,
) error {
	const errCtx = "updating github repository description"

	_, _, err := p.client.Repositories.Edit(
		ctx, owner, name, &gh.Repository{
			Description: &description,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// isNotFound reports whether resp is an HTTP 404.
func isNotFound(resp *gh.Response) bool {
	return resp != nil &&
		resp.StatusCode == http.StatusNotFound
}

// toRepository converts a go-github repository into the
// hosting record type.
func toRepository(repo *gh.Repository) *hosting.Repository {
	return &hosting.Repository{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		DefaultBranch: repo.GetDefaultBranch(),
		CloneURL:      repo.GetCloneURL(),
		Description:   repo.GetDescription(),
	}
}

// toPullRequest converts a go-github pull request into
// the hosting record type.
func toPullRequest(pr *gh.PullRequest) *hosting.PullRequest {
	return &hosting.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
	}
}
