// Package hosting defines the port to a git hosting platform and a
// strategy interface for repository, branch, and pull request CRUD.
//
// The Platform interface abstracts the platform's REST API.
// Implementations exist for GitHub and GitLab in sub-packages. The two
// sentinel errors ErrRepositoryNotFound and ErrBranchNotFound turn the
// expected "absent on the remote" conditions into ordinary control
// flow for callers; every other failure is unexpected and fatal.
package hosting
