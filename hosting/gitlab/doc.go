// Package gitlab implements the hosting.Platform interface on top of
// the GitLab REST API. Merge requests stand in for pull requests and
// the "owner:branch" head notation is mapped to the source branch.
package gitlab
