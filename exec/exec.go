// Package exec runs the caller-supplied mutation command inside a
// reconciled working copy.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Ex executes the named command in dir and returns its stdout, which
// becomes the mutation's result value. Stderr is logged and, on
// failure, folded into the returned error. Pass empty dir to use the
// current working directory.
func Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	slog.Info(
		"executing",
		"cmd", name,
		"args", strings.Join(arg, " "),
		"dir", dir,
	)

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if dir != "" {
		cmd.Dir = dir
	}

	err := cmd.Run()

	if stderr.Len() > 0 {
		slog.Info("stderr", "output", stderr.String())
	}

	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return stdout.String(), fmt.Errorf(
				"%s: %s: %s: %w",
				errCtx, name, detail, err,
			)
		}

		return stdout.String(), fmt.Errorf(
			"%s: %s: %w", errCtx, name, err,
		)
	}

	return stdout.String(), nil
}
