// Package github implements the hosting.Platform interface on top of
// the GitHub REST API using google/go-github. Supports github.com and
// GitHub Enterprise instances.
package github
