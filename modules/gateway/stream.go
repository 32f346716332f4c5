package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zachfi/zkit/pkg/tracing"

	"github.com/zachfi/fmstream/pkg/mp3"
	"github.com/zachfi/fmstream/pkg/pipeline"
	"github.com/zachfi/fmstream/pkg/shoutcast"
	"github.com/zachfi/fmstream/pkg/units"
)

var (
	errFirstByteTimeout = errors.New("no audio before first byte timeout")
	errNoAudio          = errors.New("encoder ended without audio")
)

func (g *Gateway) streamHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := g.tracer.Start(r.Context(), "Gateway.Stream")

	outcome, err := g.serveStream(ctx, w, r, g.logger.With("remote", r.RemoteAddr))

	metricSessions.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))
	_ = tracing.ErrHandler(span, err, "stream failed", nil)
}

// serveStream runs one stream request to completion and reports how it
// ended. The error is set for outcomes that are failures of the gateway or
// the tuner, not for ordinary disconnects and end of stream.
func (g *Gateway) serveStream(ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, error) {
	start := time.Now()

	release, err := g.admission.acquire(ctx)
	if err != nil {
		if errors.Is(err, errBusy) {
			logger.Warn("rejecting stream request", "reason", err, "policy", g.cfg.Policy)
			w.WriteHeader(http.StatusServiceUnavailable)
			return outcomeRejected, err
		}
		logger.Info("client went away while waiting for the tuner")
		return outcomeClientGone, nil
	}
	defer release()

	sess, err := pipeline.Start(g.pipelineOptions(), logger)
	if err != nil {
		logger.Error("failed to start pipeline", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return outcomeSpawnFailed, err
	}

	logger = logger.With("session", sess.ID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("session", sess.ID))

	s := &stream{remote: r.RemoteAddr, session: sess}
	s.setState(stateCapturing)
	g.streams.add(s)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("failed to close session", "err", err)
		}
		s.setState(stateClosed)
		g.streams.remove(s)
	}()

	// A disconnect closes the session, which unblocks the pending read.
	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer stop()

	buf := make([]byte, g.cfg.ReadBufferSize)
	n, err := g.readFirst(sess, buf)
	if n == 0 {
		switch {
		case ctx.Err() != nil:
			logger.Info("client disconnected before audio started")
			return outcomeClientGone, nil
		case errors.Is(err, errFirstByteTimeout):
			logger.Warn("no audio from encoder", "timeout", g.cfg.FirstByteTimeout)
			w.WriteHeader(http.StatusGatewayTimeout)
			return outcomeTimeout, err
		default:
			logger.Warn("encoder ended without audio, tuner unavailable or busy", "err", err)
			w.WriteHeader(http.StatusBadGateway)
			return outcomeNoAudio, errNoAudio
		}
	}

	s.setState(stateStreaming)
	dst := g.writeStreamHeader(w, r)
	rc := http.NewResponseController(w)
	logger.Info("streaming", "startup", time.Since(start))

	var (
		frames   mp3.SyncScanner
		sawFrame bool
		chunk    = buf[:n]
	)

	for {
		if len(chunk) > 0 {
			if !sawFrame && frames.Scan(chunk) {
				sawFrame = true
				metricFirstFrame.Observe(time.Since(start).Seconds())
				logger.Debug("first mp3 frame", "offset", frames.Offset())
			}

			if _, err := dst.Write(chunk); err != nil {
				logger.Info("client disconnected", "relayed", units.ByteCountIEC(s.bytes.Load()), "err", err)
				return outcomeClientGone, nil
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				logger.Info("client disconnected", "relayed", units.ByteCountIEC(s.bytes.Load()), "err", err)
				return outcomeClientGone, nil
			}

			s.bytes.Add(int64(len(chunk)))
			metricRelayedBytes.Add(float64(len(chunk)))
		}

		n, err := sess.Read(buf)
		chunk = buf[:n]
		if n == 0 && err != nil {
			if ctx.Err() != nil {
				logger.Info("client disconnected", "relayed", units.ByteCountIEC(s.bytes.Load()))
				return outcomeClientGone, nil
			}
			if !errors.Is(err, io.EOF) {
				logger.Debug("encoder read ended", "err", err)
			}
			logger.Info("encoder stream ended", "relayed", units.ByteCountIEC(s.bytes.Load()), "duration", time.Since(start))
			return outcomeEOF, nil
		}
	}
}

// readFirst blocks until the encoder produces output. It gives up with
// errFirstByteTimeout, closing the session, if that takes longer than the
// configured timeout.
func (g *Gateway) readFirst(sess *pipeline.Session, buf []byte) (int, error) {
	var timedOut atomic.Bool
	if d := g.cfg.FirstByteTimeout; d > 0 {
		t := time.AfterFunc(d, func() {
			timedOut.Store(true)
			_ = sess.Close()
		})
		defer t.Stop()
	}

	for {
		n, err := sess.Read(buf)
		if n > 0 {
			return n, nil
		}
		if err != nil {
			if timedOut.Load() {
				return 0, errFirstByteTimeout
			}
			return 0, err
		}
	}
}

// writeStreamHeader sends the 200 and returns the writer the audio goes
// through: w itself, or an ICY metadata interleaver if the client asked for
// metadata and it is enabled.
func (g *Gateway) writeStreamHeader(w http.ResponseWriter, r *http.Request) io.Writer {
	// Streams are unbounded; lift any server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Cache-Control", "no-cache, no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("icy-name", g.cfg.station())
	if g.cfg.Bitrate > 0 {
		h.Set("icy-br", strconv.Itoa(g.cfg.Bitrate))
	}

	var dst io.Writer = w
	if g.cfg.ICYMetaint > 0 && r.Header.Get("Icy-MetaData") == "1" {
		h.Set("icy-metaint", strconv.Itoa(g.cfg.ICYMetaint))
		dst = shoutcast.NewMetadataWriter(w, g.cfg.ICYMetaint, &shoutcast.Metadata{StreamTitle: g.cfg.station()})
	}

	w.WriteHeader(http.StatusOK)

	return dst
}
