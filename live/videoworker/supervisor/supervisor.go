package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nekomirai/Tik_Record/utils"
	log "github.com/sirupsen/logrus"
)

// ErrEarlyExit reports a capture tool that died within its startup grace
// window, usually a bad URL or missing codec. The wrapped message carries
// the first bytes of the tool's output.
var ErrEarlyExit = errors.New("capture tool exited during startup")

const (
	gracefulWait = 5 * time.Second
	killWait     = 10 * time.Second
	outputLimit  = 4096
	snippetLen   = 100
)

// Process supervises one external capture tool. The child runs in its own
// process group so a kill reaches helpers it spawned, and its combined
// output is kept (bounded) for post-mortem logging.
type Process struct {
	Name string

	cmd      *exec.Cmd
	stdin    io.WriteCloser
	output   *headBuffer
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
}

// Spawn starts the tool detached from our terminal signals.
func Spawn(name string, arg ...string) (*Process, error) {
	cmd := exec.Command(name, arg...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	out := &headBuffer{limit: outputLimit}
	cmd.Stdout = out
	cmd.Stderr = out
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	p := &Process{
		Name:   name,
		cmd:    cmd,
		stdin:  stdin,
		output: out,
		done:   make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	log.WithField("tool", name).Debugf("spawned pid %d", cmd.Process.Pid)
	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done closes once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr is the wait result, nil until the process has exited.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

func (p *Process) Output() string {
	return p.output.String()
}

// OutputSnippet returns the head of the tool's output, enough to name the
// failure without dumping a transcript into the log.
func (p *Process) OutputSnippet() string {
	out := strings.TrimSpace(p.output.String())
	return out[:utils.Min(len(out), snippetLen)]
}

// WaitStarted gives the tool its grace window to fail fast. Any exit inside
// the window counts as a failed start, successful exit included: a capture
// that ends in two seconds captured nothing.
func (p *Process) WaitStarted(grace time.Duration) error {
	select {
	case <-p.done:
		return fmt.Errorf("%w: %s", ErrEarlyExit, p.OutputSnippet())
	case <-time.After(grace):
		return nil
	}
}

// Stop ends the capture: first politely ('q' on stdin ends ffmpeg cleanly,
// SIGINT to the group covers everything else), then SIGKILL to the group
// after gracefulWait, then a bounded wait. Returns once the process is gone
// or the wait expires; concurrent and repeated calls are safe and all block
// until the one teardown finishes.
func (p *Process) Stop() {
	p.stopOnce.Do(p.stop)
}

func (p *Process) stop() {
	if !p.Alive() {
		return
	}
	log.WithField("tool", p.Name).Infof("stopping pid %d", p.Pid())
	if p.stdin != nil {
		_, _ = p.stdin.Write([]byte("q"))
		_ = p.stdin.Close()
	}
	p.signalGroup(syscall.SIGINT)
	select {
	case <-p.done:
		return
	case <-time.After(gracefulWait):
	}
	log.WithField("tool", p.Name).Warnf("pid %d ignored the graceful stop, killing", p.Pid())
	p.signalGroup(syscall.SIGKILL)
	select {
	case <-p.done:
	case <-time.After(killWait):
		log.WithField("tool", p.Name).Errorf("pid %d did not exit after SIGKILL", p.Pid())
	}
}

// signalGroup signals the whole process group, falling back to the direct
// child if the group is already gone.
func (p *Process) signalGroup(sig syscall.Signal) {
	if err := syscall.Kill(-p.Pid(), sig); err != nil {
		_ = p.cmd.Process.Signal(sig)
	}
}

// headBuffer keeps the first limit bytes written and silently drops the
// rest. Writes never fail, so the child never blocks on our bookkeeping.
type headBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func (b *headBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remain := b.limit - b.buf.Len(); remain > 0 {
		if len(p) > remain {
			b.buf.Write(p[:remain])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *headBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
