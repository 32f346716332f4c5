package gateway

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zachfi/fmstream/pkg/pipeline"
)

// streamState follows a request from receipt to close.
type streamState int32

const (
	stateIdle streamState = iota
	stateCapturing
	stateStreaming
	stateClosed
)

func (s streamState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCapturing:
		return "capturing"
	case stateStreaming:
		return "streaming"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// stream is the record of one in-flight stream request.
type stream struct {
	remote  string
	session *pipeline.Session

	state atomic.Int32
	bytes atomic.Int64
}

func (s *stream) setState(st streamState) {
	s.state.Store(int32(st))
}

func (s *stream) getState() streamState {
	return streamState(s.state.Load())
}

// registry tracks running streams for status and shutdown.
type registry struct {
	mu      sync.Mutex
	streams map[string]*stream
}

func newRegistry() *registry {
	return &registry{streams: make(map[string]*stream)}
}

func (r *registry) add(s *stream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.streams[s.session.ID] = s
	metricActiveSessions.Inc()
}

func (r *registry) remove(s *stream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[s.session.ID]; ok {
		delete(r.streams, s.session.ID)
		metricActiveSessions.Dec()
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.streams)
}

// snapshot returns the running streams, oldest first.
func (r *registry) snapshot() []*stream {
	r.mu.Lock()
	out := make([]*stream, 0, len(r.streams))
	for _, s := range r.streams {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].session.Started.Before(out[j].session.Started)
	})

	return out
}

// closeAll tears down every running session. Their handlers finish on their
// own once the relay sees the closed pipe.
func (r *registry) closeAll() error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, s := range r.snapshot() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.session.Close(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}
