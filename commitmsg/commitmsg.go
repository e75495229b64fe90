// Package commitmsg synthesizes commit messages from lists of changed
// file paths.
package commitmsg

import (
	"fmt"
	"strings"
)

// maxListed is the number of paths spelled out before the remainder
// is collapsed into a count.
const maxListed = 5

// Summarize reduces the changed paths to a commit message. A single
// path is named inline; up to five paths are listed one per line;
// beyond that the first five are listed followed by a remainder
// count.
func Summarize(paths []string) string {
	switch n := len(paths); {
	case n == 0:
		return "No changes"
	case n == 1:
		return "Changed " + paths[0]
	case n <= maxListed:
		return "Changed:\n" + strings.Join(paths, "\n")
	default:
		return fmt.Sprintf(
			"Changed:\n%s\n...and %d files...",
			strings.Join(paths[:maxListed], "\n"),
			n-maxListed,
		)
	}
}
