// Package publish orchestrates the publication of working tree
// changes to a hosted git repository. Run resolves or creates the
// remote repository, reconciles a local working copy onto the target
// branch, hands the working tree to a caller-supplied mutation, then
// commits, pushes, and opens or reuses a pull request. Repeated runs
// converge instead of duplicating work.
//
// The main entry point is Run, which accepts a Config struct and a
// MutateFunc and returns the mutation's result value.
package publish
