package publish_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repo_publisher/hosting"
	"github.com/byte4ever/repo_publisher/publish"
)

// fakePlatform is an in-memory hosting.Platform backed by local bare
// repositories standing in for the remote end.
type fakePlatform struct {
	t *testing.T

	user  hosting.User
	repos map[string]*hosting.Repository

	prs         []*hosting.PullRequest
	prHeads     []string
	prBases     []string
	searchCalls int

	descriptions map[string]string
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()

	return &fakePlatform{
		t: t,
		user: hosting.User{
			Login: "robot",
			Email: "robot@example.com",
		},
		repos:        map[string]*hosting.Repository{},
		descriptions: map[string]string{},
	}
}

// addRepo registers a repository backed by a seeded bare git
// directory and returns the bare directory path.
func (f *fakePlatform) addRepo(
	owner string,
	name string,
) string {
	f.t.Helper()

	dir, _ := seedBareRemote(f.t)

	f.repos[owner+"/"+name] = &hosting.Repository{
		Owner:         owner,
		Name:          name,
		DefaultBranch: "master",
		CloneURL:      dir,
	}

	return dir
}

func (f *fakePlatform) GetRepository(
	_ context.Context,
	owner string,
	name string,
) (*hosting.Repository, error) {
	repo, ok := f.repos[owner+"/"+name]
	if !ok {
		return nil, hosting.ErrRepositoryNotFound
	}

	return repo, nil
}

func (f *fakePlatform) CreateRepository(
	_ context.Context,
	owner string,
	name string,
) (*hosting.Repository, error) {
	f.t.Helper()

	if owner == "" {
		owner = f.user.Login
	}

	dir := f.t.TempDir()

	_, err := git.PlainInit(dir, true)
	require.NoError(f.t, err)

	repo := &hosting.Repository{
		Owner:         owner,
		Name:          name,
		DefaultBranch: "master",
		CloneURL:      dir,
	}
	f.repos[owner+"/"+name] = repo

	return repo, nil
}

func (f *fakePlatform) GetBranch(
	_ context.Context,
	owner string,
	name string,
	branch string,
) (*hosting.Branch, error) {
	repo, ok := f.repos[owner+"/"+name]
	if !ok {
		return nil, hosting.ErrRepositoryNotFound
	}

	gitRepo, err := git.PlainOpen(repo.CloneURL)
	if err != nil {
		return nil, err
	}

	ref, err := gitRepo.Reference(
		plumbing.NewBranchReferenceName(branch), true,
	)
	if err != nil {
		return nil, hosting.ErrBranchNotFound
	}

	return &hosting.Branch{
		Name: branch,
		SHA:  ref.Hash().String(),
	}, nil
}

func (f *fakePlatform) CurrentUser(
	_ context.Context,
) (*hosting.User, error) {
	user := f.user

	return &user, nil
}

func (f *fakePlatform) FindOpenPullRequest(
	_ context.Context,
	_ string,
	_ string,
	head string,
	base string,
) (*hosting.PullRequest, error) {
	f.searchCalls++

	for i, pr := range f.prs {
		if f.prHeads[i] == head && f.prBases[i] == base {
			return pr, nil
		}
	}

	return nil, nil
}

func (f *fakePlatform) CreatePullRequest(
	_ context.Context,
	owner string,
	name string,
	title string,
	body string,
	head string,
	base string,
) (*hosting.PullRequest, error) {
	pr := &hosting.PullRequest{
		Number: len(f.prs) + 1,
		Title:  title,
		URL: fmt.Sprintf(
			"https://example.test/%s/%s/pull/%d",
			owner, name, len(f.prs)+1,
		),
	}

	f.prs = append(f.prs, pr)
	f.prHeads = append(f.prHeads, head)
	f.prBases = append(f.prBases, base)

	f.descriptions["pr-body-"+title] = body

	return pr, nil
}

func (f *fakePlatform) SetDescription(
	_ context.Context,
	owner string,
	name string,
	description string,
) error {
	f.descriptions[owner+"/"+name] = description

	return nil
}

// seedBareRemote creates a bare repository holding one commit on
// master.
func seedBareRemote(t *testing.T) (string, plumbing.Hash) {
	t.Helper()

	seed := t.TempDir()

	repo, err := git.PlainInit(seed, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(seed, "app.txt"),
		[]byte("v1"), 0o644,
	))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add("app.txt")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Seed",
			Email: "seed@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	bare := t.TempDir()

	_, err = git.PlainClone(bare, true, &git.CloneOptions{
		URL: seed,
	})
	require.NoError(t, err)

	return bare, hash
}

// branchCommit returns the commit at the tip of a branch in the
// given git directory.
func branchCommit(
	t *testing.T,
	gitDir string,
	branch string,
) *object.Commit {
	t.Helper()

	repo, err := git.PlainOpen(gitDir)
	require.NoError(t, err)

	ref, err := repo.Reference(
		plumbing.NewBranchReferenceName(branch), true,
	)
	require.NoError(t, err)

	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)

	return commit
}

func TestRun_commits_pushes_and_creates_pr(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		Base:     "master",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	result, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			err := os.WriteFile(
				filepath.Join(
					s.WorkingDirectory, "widget.txt",
				),
				[]byte("shiny"), 0o644,
			)
			if err != nil {
				return nil, err
			}

			s.PullRequestMessage = "Add widget\nDetails."

			return "done", nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "done", result)

	commit := branchCommit(t, remoteDir, "feature")
	assert.Equal(t, "Changed widget.txt", commit.Message)
	assert.Equal(t, "robot", commit.Author.Name)
	assert.Equal(
		t, "robot@example.com", commit.Author.Email,
	)

	require.Len(t, platform.prs, 1)
	assert.Equal(t, "Add widget", platform.prs[0].Title)
	assert.Equal(
		t, "acme:feature", platform.prHeads[0],
	)
	assert.Equal(t, "master", platform.prBases[0])
	assert.Equal(
		t,
		"Details.",
		platform.descriptions["pr-body-Add widget"],
	)
}

func TestRun_is_idempotent(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		Base:     "master",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	mutate := func(s *publish.Session) (any, error) {
		err := os.WriteFile(
			filepath.Join(
				s.WorkingDirectory, "widget.txt",
			),
			[]byte("shiny"), 0o644,
		)
		if err != nil {
			return nil, err
		}

		s.PullRequestMessage = "Add widget"

		return nil, nil
	}

	_, err := publish.Run(context.Background(), cfg, mutate)
	require.NoError(t, err)

	firstTip := branchCommit(t, remoteDir, "feature").Hash

	_, err = publish.Run(context.Background(), cfg, mutate)
	require.NoError(t, err)

	// No second commit, no duplicate pull request.
	assert.Equal(
		t,
		firstTip,
		branchCommit(t, remoteDir, "feature").Hash,
	)
	assert.Len(t, platform.prs, 1)
}

func TestRun_no_pull_request_without_message(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		Base:     "master",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	_, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			return nil, os.WriteFile(
				filepath.Join(
					s.WorkingDirectory, "widget.txt",
				),
				[]byte("shiny"), 0o644,
			)
		},
	)
	require.NoError(t, err)

	// The push happened, but no PR intent was declared.
	commit := branchCommit(t, remoteDir, "feature")
	assert.Equal(t, "Changed widget.txt", commit.Message)
	assert.Empty(t, platform.prs)
	assert.Zero(t, platform.searchCalls)
}

func TestRun_equal_tips_skip_pull_request(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	_, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			// No tree changes, but PR intent declared.
			s.PullRequestMessage = "Nothing to see"

			return nil, nil
		},
	)
	require.NoError(t, err)

	// Equal tips: no PR created, none even searched for.
	assert.Empty(t, platform.prs)
	assert.Zero(t, platform.searchCalls)
}

func TestRun_creates_missing_repository(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	var created bool

	_, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			created = s.RepoWasCreated
			s.NewRepositoryDescription = "Widget store"

			return nil, os.WriteFile(
				filepath.Join(
					s.WorkingDirectory, "widget.txt",
				),
				[]byte("shiny"), 0o644,
			)
		},
	)
	require.NoError(t, err)

	assert.True(t, created)

	repo, ok := platform.repos["acme/widgets"]
	require.True(t, ok)

	commit := branchCommit(t, repo.CloneURL, "master")
	assert.Equal(t, "Changed widget.txt", commit.Message)

	// Initial empty commit is the parent.
	require.Len(t, commit.ParentHashes, 1)

	parent, err := commit.Parent(0)
	require.NoError(t, err)
	assert.Equal(t, "Initial commit", parent.Message)
	assert.Empty(t, parent.ParentHashes)

	assert.Equal(
		t,
		"Widget store",
		platform.descriptions["acme/widgets"],
	)
}

func TestRun_creates_under_own_account(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)

	cfg := publish.Config{
		Owner:    "robot",
		Repo:     "sandbox",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	_, err := publish.Run(
		context.Background(), cfg,
		func(*publish.Session) (any, error) {
			return nil, nil
		},
	)
	require.NoError(t, err)

	_, ok := platform.repos["robot/sandbox"]
	assert.True(t, ok)
}

func TestRun_commit_message_override(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	_, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			s.CommitMessage = "chore: refresh widgets"

			return nil, os.WriteFile(
				filepath.Join(
					s.WorkingDirectory, "widget.txt",
				),
				[]byte("shiny"), 0o644,
			)
		},
	)
	require.NoError(t, err)

	commit := branchCommit(t, remoteDir, "feature")
	assert.Equal(
		t, "chore: refresh widgets", commit.Message,
	)
}

func TestRun_explicit_changed_files(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	_, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			for _, name := range []string{
				"wanted.yaml", "ignored.txt",
			} {
				err := os.WriteFile(
					filepath.Join(
						s.WorkingDirectory, name,
					),
					[]byte("x"), 0o644,
				)
				if err != nil {
					return nil, err
				}
			}

			s.ChangedFiles = []string{"*.yaml"}

			return nil, nil
		},
	)
	require.NoError(t, err)

	commit := branchCommit(t, remoteDir, "feature")
	assert.Equal(t, "Changed wanted.yaml", commit.Message)

	tree, err := commit.Tree()
	require.NoError(t, err)

	_, err = tree.FindEntry("wanted.yaml")
	assert.NoError(t, err)

	_, err = tree.FindEntry("ignored.txt")
	assert.Error(t, err)
}

func TestRun_dry_run_commits_locally_only(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	workDir := filepath.Join(t.TempDir(), "work")
	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		Base:     "master",
		WorkDir:  workDir,
		Platform: platform,
		DryRun:   true,
	}

	_, err := publish.Run(
		context.Background(), cfg,
		func(s *publish.Session) (any, error) {
			s.PullRequestMessage = "Add widget"
			s.RepositoryDescription = "Widget store"

			return nil, os.WriteFile(
				filepath.Join(
					s.WorkingDirectory, "widget.txt",
				),
				[]byte("shiny"), 0o644,
			)
		},
	)
	require.NoError(t, err)

	// The commit exists locally.
	commit := branchCommit(t, workDir, "feature")
	assert.Equal(t, "Changed widget.txt", commit.Message)

	// Nothing reached the remote or the platform.
	remoteRepo, err := git.PlainOpen(remoteDir)
	require.NoError(t, err)

	_, err = remoteRepo.Reference(
		plumbing.NewBranchReferenceName("feature"), true,
	)
	assert.Error(t, err)

	assert.Empty(t, platform.prs)
	assert.Zero(t, platform.searchCalls)
	assert.Empty(t, platform.descriptions)
}

func TestRun_mutation_error_aborts(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform(t)
	remoteDir := platform.addRepo("acme", "widgets")

	cfg := publish.Config{
		Owner:    "acme",
		Repo:     "widgets",
		Branch:   "feature",
		WorkDir:  filepath.Join(t.TempDir(), "work"),
		Platform: platform,
	}

	boom := errors.New("boom")

	_, err := publish.Run(
		context.Background(), cfg,
		func(*publish.Session) (any, error) {
			return nil, boom
		},
	)
	require.ErrorIs(t, err, boom)

	// Nothing was published.
	repo, err := git.PlainOpen(remoteDir)
	require.NoError(t, err)

	_, err = repo.Reference(
		plumbing.NewBranchReferenceName("feature"), true,
	)
	assert.Error(t, err)
}

func TestRun_defaults(t *testing.T) {
	platform := newFakePlatform(t)
	platform.addRepo("acme", "widgets")

	// The default working directory is relative to the current
	// directory.
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	var session publish.Session

	_, err = publish.Run(
		context.Background(),
		publish.Config{
			Owner:    "acme",
			Repo:     "widgets",
			Platform: platform,
		},
		func(s *publish.Session) (any, error) {
			session = *s

			return nil, nil
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "master", session.BranchName)
	assert.Equal(t, "master", session.BaseName)
	assert.Equal(
		t,
		filepath.Join("acme", "widgets", "master"),
		session.WorkingDirectory,
	)
	assert.False(t, session.RepoWasCreated)
}
