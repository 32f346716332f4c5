// Package pipelinetest provides stand-in capture and encoder tools for tests.
//
// The test binary doubles as every stub: Binary links it under a stub name
// and Main, called from TestMain, runs the stub matching argv[0] instead of
// the tests.
//
//	func TestMain(m *testing.M) { pipelinetest.Main(m) }
//
//	opts.CaptureBinary = pipelinetest.Binary(t, pipelinetest.CaptureEcho)
package pipelinetest

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

const (
	// CaptureEcho prints its arguments space separated on one line and exits.
	CaptureEcho = "capture-echo"
	// CapturePattern writes PatternSize bytes of Pattern and exits.
	CapturePattern = "capture-pattern"
	// CaptureTone writes Pattern until it is stopped.
	CaptureTone = "capture-tone"
	// CaptureStubborn is CaptureTone ignoring SIGTERM.
	CaptureStubborn = "capture-stubborn"
	// CaptureSilent never writes and never exits on its own.
	CaptureSilent = "capture-silent"
	// CaptureFail exits with status 1 without writing, like a busy tuner.
	CaptureFail = "capture-fail"

	// EncoderCat copies stdin to stdout.
	EncoderCat = "encoder-cat"
	// EncoderPID writes "pid=<pid>\n" and then copies stdin to stdout.
	EncoderPID = "encoder-pid"
	// EncoderHead copies HeadSize bytes of stdin to stdout and exits.
	EncoderHead = "encoder-head"

	PatternSize = 1 << 20
	HeadSize    = 4096
)

var stubs = map[string]func(args []string) int{
	CaptureEcho: func(args []string) int {
		fmt.Println(strings.Join(args, " "))
		return 0
	},
	CapturePattern: func([]string) int {
		return write(Pattern(PatternSize))
	},
	CaptureTone: func([]string) int {
		return tone()
	},
	CaptureStubborn: func([]string) int {
		signal.Ignore(syscall.SIGTERM)
		return tone()
	},
	CaptureSilent: func([]string) int {
		time.Sleep(time.Hour)
		return 0
	},
	CaptureFail: func([]string) int {
		fmt.Fprintln(os.Stderr, "usb_claim_interface error -6")
		return 1
	},
	EncoderCat: func([]string) int {
		return copyStdin(-1)
	},
	EncoderPID: func([]string) int {
		fmt.Printf("pid=%d\n", os.Getpid())
		return copyStdin(-1)
	},
	EncoderHead: func([]string) int {
		return copyStdin(HeadSize)
	},
}

// Main runs the stub named by argv[0], or the tests when there is none.
func Main(m *testing.M) {
	if stub, ok := stubs[filepath.Base(os.Args[0])]; ok {
		os.Exit(stub(os.Args[1:]))
	}

	os.Exit(m.Run())
}

// Binary returns the path of a link to the test binary that runs the named
// stub.
func Binary(t testing.TB, name string) string {
	t.Helper()

	if _, ok := stubs[name]; !ok {
		t.Fatalf("unknown stub %q", name)
	}

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to find test binary: %v", err)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.Symlink(exe, path); err != nil {
		t.Fatalf("failed to link stub %s: %v", name, err)
	}

	return path
}

// Missing returns a path that does not exist.
func Missing(t testing.TB) string {
	return filepath.Join(t.TempDir(), "missing")
}

// WaitExited fails t unless every pid has exited and been reaped within
// timeout.
func WaitExited(t testing.TB, timeout time.Duration, pids ...int) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		var alive []int
		for _, pid := range pids {
			if exists, err := process.PidExists(int32(pid)); err != nil || exists {
				alive = append(alive, pid)
			}
		}
		if len(alive) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("processes still running after %s: %v", timeout, alive)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Pattern returns n deterministic bytes that are not periodic on any power
// of two.
func Pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func write(b []byte) int {
	if _, err := os.Stdout.Write(b); err != nil {
		return 1
	}
	return 0
}

func tone() int {
	chunk := Pattern(251 * 64)
	for {
		if _, err := os.Stdout.Write(chunk); err != nil {
			return 1
		}
		time.Sleep(time.Millisecond)
	}
}

func copyStdin(limit int64) int {
	var r io.Reader = os.Stdin
	if limit >= 0 {
		r = io.LimitReader(os.Stdin, limit)
	}

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return 1
			}
		}
		if err == io.EOF {
			return 0
		}
		if err != nil {
			return 1
		}
	}
}
