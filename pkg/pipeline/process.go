package pipeline

import (
	"bytes"
	"log/slog"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// process is one supervised child. It is reaped by its own goroutine as soon
// as it exits, so its stdio must be files owned by the caller, never
// exec-managed pipes that Wait would close underneath a reader.
type process struct {
	name   string
	cmd    *exec.Cmd
	logger *slog.Logger

	// closed once the child has been reaped; err holds the Wait result.
	done chan struct{}
	err  error
}

func newProcess(logger *slog.Logger, name string, argv []string, grace time.Duration) *process {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = grace

	l := logger.With("process", name)
	cmd.Stderr = &lineLogger{logger: l}

	return &process{
		name:   name,
		cmd:    cmd,
		logger: l,
		done:   make(chan struct{}),
	}
}

func (p *process) start() error {
	if err := p.cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", p.name)
	}

	p.logger = p.logger.With("pid", p.cmd.Process.Pid)
	p.logger.Debug("process started", "path", p.cmd.Path, "args", p.cmd.Args[1:])

	go p.reap()

	return nil
}

func (p *process) started() bool {
	return p.cmd.Process != nil
}

func (p *process) pid() int {
	if !p.started() {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) reap() {
	p.err = p.cmd.Wait()

	var eerr *exec.ExitError
	switch {
	case p.err == nil:
		p.logger.Debug("process exited cleanly")
	case errors.As(p.err, &eerr):
		p.logger.Debug("process exited", "status", eerr.String())
	default:
		p.logger.Warn("failed to wait for process", "err", p.err)
	}

	close(p.done)
}

// exited reports whether the child has been reaped.
func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// stop terminates the child's process group, escalates to a kill once grace
// has passed, and returns after the child has been reaped.
func (p *process) stop(grace time.Duration) error {
	if !p.started() || p.exited() {
		return nil
	}

	pid := p.pid()
	if err := terminate(pid); err != nil {
		p.logger.Debug("terminate failed", "err", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}

	p.logger.Warn("grace period expired, killing process group", "grace", grace)
	if err := kill(pid); err != nil {
		p.logger.Error("kill failed", "err", err)
	}

	<-p.done

	return nil
}

const maxLineLength = 4096

// lineLogger logs child stderr one line at a time.
type lineLogger struct {
	logger *slog.Logger
	buf    []byte
}

func (l *lineLogger) Write(b []byte) (int, error) {
	l.buf = append(l.buf, b...)

	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}

	if len(l.buf) > maxLineLength {
		l.emit(l.buf)
		l.buf = l.buf[:0]
	}

	return len(b), nil
}

func (l *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	l.logger.Debug(string(line))
}
