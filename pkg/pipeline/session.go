// Package pipeline runs the capture → encoder process pair behind a stream.
//
// The capture tool's stdout is wired to the encoder's stdin through an OS
// pipe; nothing in this process touches the PCM. The encoder's stdout is
// exposed by Session as an io.Reader. A Session owns both children and Close
// terminates and reaps them.
package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/zachfi/fmstream/pkg/radio"
)

const defaultKillGrace = 3 * time.Second

// Options describes how to launch one session.
type Options struct {
	CaptureBinary string
	EncoderBinary string
	Capture       radio.Config
	Bitrate       int           // kbps
	KillGrace     time.Duration // SIGTERM → SIGKILL delay
}

// Session is a running capture and encoder pair. It is not reused.
type Session struct {
	ID      string
	Started time.Time

	logger    *slog.Logger
	capture   *process
	encoder   *process
	out       *os.File
	killGrace time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Start launches the capture process and the encoder reading from it. On
// error no child is left running.
func Start(opts Options, logger *slog.Logger) (*Session, error) {
	if err := opts.Capture.Validate(); err != nil {
		return nil, err
	}

	grace := opts.KillGrace
	if grace <= 0 {
		grace = defaultKillGrace
	}

	id := uuid.NewString()
	logger = logger.With("session", id)

	pcmR, pcmW, err := os.Pipe()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create pcm pipe")
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeFiles(pcmR, pcmW)
		return nil, pkgerrors.Wrap(err, "failed to create encoder output pipe")
	}

	capture := newProcess(logger, "capture",
		append([]string{opts.CaptureBinary}, radio.CaptureArgs(opts.Capture)...), grace)
	capture.cmd.Stdout = pcmW

	encoder := newProcess(logger, "encoder",
		append([]string{opts.EncoderBinary}, radio.EncoderArgs(opts.Capture.SampleRate, opts.Bitrate)...), grace)
	encoder.cmd.Stdin = pcmR
	encoder.cmd.Stdout = outW

	if err := capture.start(); err != nil {
		closeFiles(pcmR, pcmW, outR, outW)
		return nil, err
	}

	if err := encoder.start(); err != nil {
		closeFiles(pcmR, pcmW, outR, outW)
		_ = capture.stop(grace)
		return nil, err
	}

	// The children hold their own copies now. Keeping ours open would stop
	// either side from seeing EOF or EPIPE when its peer goes away.
	closeFiles(pcmR, pcmW, outW)

	logger.Info("session started", "capture_pid", capture.pid(), "encoder_pid", encoder.pid())

	return &Session{
		ID:        id,
		Started:   time.Now(),
		logger:    logger,
		capture:   capture,
		encoder:   encoder,
		out:       outR,
		killGrace: grace,
	}, nil
}

// Read reads encoder output. It returns io.EOF once the encoder has exited
// and its output is drained.
func (s *Session) Read(p []byte) (int, error) {
	return s.out.Read(p)
}

func (s *Session) CapturePID() int { return s.capture.pid() }
func (s *Session) EncoderPID() int { return s.encoder.pid() }

// EncoderExited is closed once the encoder has been reaped.
func (s *Session) EncoderExited() <-chan struct{} { return s.encoder.done }

// Close stops both processes, waits for them to be reaped and releases the
// output pipe. It is safe to call more than once and from any goroutine,
// including while a Read is blocked.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var g errgroup.Group
		g.Go(func() error { return s.capture.stop(s.killGrace) })
		g.Go(func() error { return s.encoder.stop(s.killGrace) })

		s.closeErr = errors.Join(g.Wait(), s.out.Close())
		s.logger.Debug("session closed", "duration", time.Since(s.Started))
	})

	return s.closeErr
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
