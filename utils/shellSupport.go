package utils

import (
	"bytes"
	"context"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// ExecShellCtx runs a command to completion and captures its output. The
// context bounds the run: on expiry the process is killed and the partial
// output is returned together with the context error.
func ExecShellCtx(ctx context.Context, name string, arg ...string) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	co := exec.CommandContext(ctx, name, arg...)
	co.Stdout = &stdoutBuf
	co.Stderr = &stderrBuf
	log.WithField("cmd", name).Debugf("exec %v", arg)
	err := co.Run()
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return stdoutBuf.String(), stderrBuf.String(), err
}

// ExecShell is ExecShellCtx without a deadline.
func ExecShell(name string, arg ...string) (string, string, error) {
	return ExecShellCtx(context.Background(), name, arg...)
}
