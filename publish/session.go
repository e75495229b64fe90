package publish

import (
	"github.com/go-git/go-git/v5"

	"github.com/byte4ever/repo_publisher/hosting"
)

// Session is the per-invocation state threaded through every
// publication step. It is constructed by Run, handed read-write to
// the caller's mutation, then consumed read-only by the publication
// steps. A Session is single-owner and single-threaded for its whole
// lifetime and is never persisted.
type Session struct {
	// Remote is the resolved or newly created remote repository
	// record.
	Remote *hosting.Repository
	// Local is the reconciled local working copy.
	Local *git.Repository
	// BranchName is the branch being worked on.
	BranchName string
	// BaseName is the branch BranchName is compared and merged
	// against.
	BaseName string
	// WorkingDirectory is the filesystem path of the working copy,
	// exclusively owned by this session for the run.
	WorkingDirectory string
	// RepoWasCreated is true only when the remote repository did not
	// exist before this invocation.
	RepoWasCreated bool

	// CommitMessage overrides the synthesized commit summary when
	// set by the mutation.
	CommitMessage string
	// PullRequestMessage gates pull request creation: the text
	// before the first newline becomes the title, the rest the
	// body. When empty, no pull request is opened.
	PullRequestMessage string
	// NewRepositoryDescription is applied as the repository
	// description when the repository was created by this run.
	NewRepositoryDescription string
	// RepositoryDescription is applied as the repository
	// description when set and the repository already existed.
	RepositoryDescription string
	// ChangedFiles restricts staging to these glob patterns. When
	// empty, every new, modified, and deleted path is staged.
	ChangedFiles []string
}

// effectiveDescription returns the description to apply after
// publication, or empty when none is configured.
func (s *Session) effectiveDescription() string {
	if s.RepoWasCreated && s.NewRepositoryDescription != "" {
		return s.NewRepositoryDescription
	}

	return s.RepositoryDescription
}
