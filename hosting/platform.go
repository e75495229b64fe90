package hosting

import (
	"context"
	"errors"
)

// Pattern: Strategy -- swap hosting platform without changing the
// publication logic.

// ErrRepositoryNotFound reports that the remote repository does not
// exist. Callers recover by creating it.
var ErrRepositoryNotFound = errors.New("repository not found")

// ErrBranchNotFound reports that a branch does not exist on the
// remote. Callers recover by forking off the base branch.
var ErrBranchNotFound = errors.New("branch not found")

// Repository is the platform's record of a hosted repository.
type Repository struct {
	// Owner is the user or organisation that owns the repository.
	Owner string
	// Name is the repository name (without owner).
	Name string
	// DefaultBranch is the branch the platform considers primary.
	DefaultBranch string
	// CloneURL is the HTTPS transport URL of the repository.
	CloneURL string
	// Description is the repository description, possibly empty.
	Description string
}

// Branch is the platform's record of a single branch tip.
type Branch struct {
	// Name is the branch name.
	Name string
	// SHA is the commit identifier of the branch tip.
	SHA string
}

// User identifies the authenticated caller.
type User struct {
	// Login is the platform account name.
	Login string
	// Email is the account email, possibly empty.
	Email string
}

// PullRequest is the platform's record of a pull or merge request.
type PullRequest struct {
	// Number is the platform-assigned request number.
	Number int
	// Title is the request title.
	Title string
	// URL is the web URL of the request.
	URL string
}

// Platform is the hosting platform API consumed by the publication
// workflow. All operations are synchronous and blocking; failures
// other than the two sentinel errors abort the invocation.
type Platform interface {
	// GetRepository fetches the repository record for owner/name.
	// Returns ErrRepositoryNotFound when it does not exist.
	GetRepository(
		ctx context.Context,
		owner string,
		name string,
	) (*Repository, error)

	// CreateRepository creates a repository with default visibility.
	// An empty owner creates it under the caller's own account,
	// otherwise under the named organisation.
	CreateRepository(
		ctx context.Context,
		owner string,
		name string,
	) (*Repository, error)

	// GetBranch fetches the tip of the named branch. Returns
	// ErrBranchNotFound when the branch does not exist.
	GetBranch(
		ctx context.Context,
		owner string,
		name string,
		branch string,
	) (*Branch, error)

	// CurrentUser returns the authenticated caller's identity.
	CurrentUser(ctx context.Context) (*User, error)

	// FindOpenPullRequest returns the first open pull request with
	// the given head ("owner:branch") and base, or nil when none
	// exists.
	FindOpenPullRequest(
		ctx context.Context,
		owner string,
		name string,
		head string,
		base string,
	) (*PullRequest, error)

	// CreatePullRequest opens a pull request from head into base and
	// returns its record.
	CreatePullRequest(
		ctx context.Context,
		owner string,
		name string,
		title string,
		body string,
		head string,
		base string,
	) (*PullRequest, error)

	// SetDescription updates the repository description.
	SetDescription(
		ctx context.Context,
		owner string,
		name string,
		description string,
	) error
}
