package gateway

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"os/exec"

	"github.com/gorilla/mux"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zachfi/fmstream/pkg/pipeline"
)

const module = "gateway"

//go:embed templates/*.html
var templates embed.FS

// Gateway serves the live capture as an MP3 stream over HTTP.
type Gateway struct {
	services.Service

	cfg    *Config
	logger *slog.Logger
	tracer trace.Tracer

	admission *admission
	streams   *registry
	index     *template.Template
}

// New creates and returns a new Gateway.
func New(cfg Config, logger slog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid gateway config")
	}

	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}

	index, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse index template")
	}

	g := &Gateway{
		cfg:       &cfg,
		logger:    logger.With("module", module),
		tracer:    otel.Tracer(module),
		admission: newAdmission(cfg.Policy),
		streams:   newRegistry(),
		index:     index,
	}

	g.Service = services.NewBasicService(g.starting, g.running, g.stopping)

	return g, nil
}

// RegisterRoutes adds the gateway endpoints to r.
func (g *Gateway) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", g.indexHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/stream", g.streamHandler).Methods(http.MethodGet)
	r.HandleFunc("/listen.m3u", g.m3uHandler).Methods(http.MethodGet)
	r.HandleFunc("/listen.pls", g.plsHandler).Methods(http.MethodGet)
	r.HandleFunc("/status", g.statusHandler).Methods(http.MethodGet)
}

// starting only warns about missing tools. A missing binary is reported to
// each stream request as a spawn failure.
func (g *Gateway) starting(_ context.Context) error {
	for _, bin := range []string{g.cfg.CaptureBinary, g.cfg.EncoderBinary} {
		if _, err := exec.LookPath(bin); err != nil {
			g.logger.Warn("tool not found, stream requests will fail", "binary", bin, "err", err)
		}
	}

	g.logger.Info("tuned",
		"station", g.cfg.station(),
		"frequency", g.cfg.Capture.Frequency,
		"sample_rate", g.cfg.Capture.SampleRate,
		"gain", g.cfg.Capture.Gain,
		"policy", g.cfg.Policy,
	)

	return nil
}

func (g *Gateway) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (g *Gateway) stopping(_ error) error {
	g.logger.Info("stopping", "active_sessions", g.streams.len())
	return g.streams.closeAll()
}

func (g *Gateway) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		CaptureBinary: g.cfg.CaptureBinary,
		EncoderBinary: g.cfg.EncoderBinary,
		Capture:       g.cfg.Capture,
		Bitrate:       g.cfg.Bitrate,
		KillGrace:     g.cfg.KillGrace,
	}
}
