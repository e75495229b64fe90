// Package worktree reconciles a local working copy against the remote
// tip of a branch and wraps the git primitives needed to publish
// changes from it.
//
// Reconcile guarantees that the working directory holds a checkout of
// the requested branch with no leftover local state, regardless of
// what a previous run left behind: an existing clone is reset in
// place, an unusable directory is re-cloned (with one retry after
// cleanup), a branch absent on the remote is forked off the base
// branch, and a brand-new remote gets a freshly initialized history.
// Idempotence, not preservation, is the contract.
package worktree
