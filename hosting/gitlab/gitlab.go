package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/repo_publisher/hosting"
)

// Config holds the settings needed to create a GitLab
// platform client.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com"). Leave empty for
	// gitlab.com.
	Host string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
}

// Platform talks to the GitLab REST API.
//
// Pattern: Strategy -- implements hosting.Platform.
type Platform struct {
	client *gl.Client
}

// New validates cfg and returns a Platform ready to
// serve hosting requests.
func New(cfg Config) (*Platform, error) {
	const errCtx = "creating gitlab platform"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Platform{client: client}, nil
}

// GetRepository fetches the project record. A 404
// response is reported as hosting.ErrRepositoryNotFound.
func (p *Platform) GetRepository(
	ctx context.Context,
	owner string,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting gitlab project"

	proj, resp, err := p.client.Projects.GetProject(
		projectPath(owner, name), nil,
		gl.WithContext(ctx),
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

	return toRepository(owner, proj), nil
}

// CreateRepository creates a project with default
// visibility. An empty owner creates it under the
// authenticated user's namespace, otherwise under the
// named group.
func (p *Platform) CreateRepository(
	ctx context.Context,
	owner string,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "creating gitlab project"

	opts := gl.CreateProjectOptions{
		Name: &name,
	}

	if owner != "" {
		group, _, err := p.client.Groups.GetGroup(
			owner, nil, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: resolve group %s: %w",
				errCtx, owner, err,
			)
		}

		opts.NamespaceID = &group.ID
	}

	proj, _, err := p.client.Projects.CreateProject(
		&opts, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created project",
		"project", proj.PathWithNamespace,
	)

	return toRepository(owner, proj), nil
}

// GetBranch fetches a branch tip. A 404 response is
// reported as hosting.ErrBranchNotFound.
func (p *Platform) GetBranch(
	ctx context.Context,
	owner string,
	name string,
	branch string,
) (*hosting.Branch, error) {
	const errCtx = "getting gitlab branch"

	br, resp, err := p.client.Branches.GetBranch(
		projectPath(owner, name), branch,
		gl.WithContext(ctx),
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

	sha := ""
	if br.Commit != nil {
		sha = br.Commit.ID
	}

	return &hosting.Branch{
		Name: br.Name,
		SHA:  sha,
	}, nil
}

// CurrentUser returns the authenticated caller's login
// and email.
func (p *Platform) CurrentUser(
	ctx context.Context,
) (*hosting.User, error) {
	const errCtx = "getting gitlab user"

	user, _, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &hosting.User{
		Login: user.Username,
		Email: user.Email,
	}, nil
}

// FindOpenPullRequest returns the first open merge
// request matching head and base, or nil when none
// exists.
func (p *Platform) FindOpenPullRequest(
	ctx context.Context,
	owner string,
	name string,
	head string,
	base string,
) (*hosting.PullRequest, error) {
	const errCtx = "listing gitlab merge requests"

	source := sourceBranch(head)

	mrs, _, err := p.client.MergeRequests.
		ListProjectMergeRequests(
			projectPath(owner, name),
			&gl.ListProjectMergeRequestsOptions{
				State:        gl.Ptr("opened"),
				SourceBranch: &source,
				TargetBranch: &base,
			},
			gl.WithContext(ctx),
		)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(mrs) == 0 {
		return nil, nil
	}

	return &hosting.PullRequest{
		Number: mrs[0].IID,
		Title:  mrs[0].Title,
		URL:    mrs[0].WebURL,
	}, nil
}

// CreatePullRequest opens a merge request from head into
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
	const errCtx = "creating gitlab merge request"

	source := sourceBranch(head)

	mr, _, err := p.client.MergeRequests.
		CreateMergeRequest(
			projectPath(owner, name),
			&gl.CreateMergeRequestOptions{
				Title:        &title,
				Description:  &body,
				SourceBranch: &source,
				TargetBranch: &base,
			},
			gl.WithContext(ctx),
		)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &hosting.PullRequest{
		Number: mr.IID,
		Title:  mr.Title,
		URL:    mr.WebURL,
	}, nil
}

// SetDescription updates the project description.
func (p *Platform) SetDescription(
	ctx context.Context,
	owner string,
	name string,
	description string,
) error {
	const errCtx = "updating gitlab project description"

	_, _, err := p.client.Projects.EditProject(
		projectPath(owner, name),
		&gl.EditProjectOptions{
			Description: &description,
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// projectPath builds the "owner/name" project path used
// as GitLab project identifier.
func projectPath(owner string, name string) string {
	return owner + "/" + name
}

// sourceBranch strips the "owner:" prefix from the
// GitHub-style head notation.
func sourceBranch(head string) string {
	if idx := strings.IndexByte(head, ':'); idx >= 0 {
		return head[idx+1:]
	}

	return head
}

// isNotFound reports whether resp is an HTTP 404.
func isNotFound(resp *gl.Response) bool {
	return resp != nil &&
		resp.StatusCode == http.StatusNotFound
}

// toRepository converts a GitLab project into the
// hosting record type.
func toRepository(
	owner string,
	proj *gl.Project,
) *hosting.Repository {
	if proj.Namespace != nil {
		owner = proj.Namespace.Path
	}

	return &hosting.Repository{
		Owner:         owner,
		Name:          proj.Path,
		DefaultBranch: proj.DefaultBranch,
		CloneURL:      proj.HTTPURLToRepo,
		Description:   proj.Description,
	}
}
