package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/zachfi/fmstream/pkg/radio"
	"github.com/zachfi/fmstream/pkg/shoutcast"
)

type indexData struct {
	Station string
	Capture radio.Config
	Bitrate int
}

func (g *Gateway) indexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := g.index.Execute(w, indexData{
		Station: g.cfg.station(),
		Capture: g.cfg.Capture,
		Bitrate: g.cfg.Bitrate,
	})
	if err != nil {
		g.logger.Error("failed to render index", "err", err)
	}
}

func (g *Gateway) m3uHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", shoutcast.ContentTypeM3U)
	if err := shoutcast.WriteM3U(w, g.cfg.station(), streamURL(r)); err != nil {
		g.logger.Error("failed to write playlist", "err", err)
	}
}

func (g *Gateway) plsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", shoutcast.ContentTypePLS)
	if err := shoutcast.WritePLS(w, g.cfg.station(), streamURL(r)); err != nil {
		g.logger.Error("failed to write playlist", "err", err)
	}
}

// streamURL is the absolute URL of the stream endpoint as seen by the client.
func streamURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}

	return scheme + "://" + r.Host + "/stream"
}

type statusResponse struct {
	Station  string          `json:"station"`
	Capture  radio.Config    `json:"capture"`
	Bitrate  int             `json:"bitrate_kbps"`
	Policy   Policy          `json:"policy"`
	Sessions []sessionStatus `json:"sessions"`
}

type sessionStatus struct {
	ID           string        `json:"id"`
	Remote       string        `json:"remote"`
	State        string        `json:"state"`
	Started      time.Time     `json:"started"`
	Uptime       string        `json:"uptime"`
	BytesRelayed int64         `json:"bytes_relayed"`
	Capture      processStatus `json:"capture"`
	Encoder      processStatus `json:"encoder"`
}

type processStatus struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

func (g *Gateway) statusHandler(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Station:  g.cfg.station(),
		Capture:  g.cfg.Capture,
		Bitrate:  g.cfg.Bitrate,
		Policy:   g.cfg.Policy,
		Sessions: []sessionStatus{},
	}

	for _, s := range g.streams.snapshot() {
		resp.Sessions = append(resp.Sessions, sessionStatus{
			ID:           s.session.ID,
			Remote:       s.remote,
			State:        s.getState().String(),
			Started:      s.session.Started,
			Uptime:       time.Since(s.session.Started).Round(time.Second).String(),
			BytesRelayed: s.bytes.Load(),
			Capture:      sampleProcess(s.session.CapturePID()),
			Encoder:      sampleProcess(s.session.EncoderPID()),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Error("failed to write status", "err", err)
	}
}

// sampleProcess reads the resource usage of pid. Fields stay zero for a
// process that is gone or unreadable.
func sampleProcess(pid int) processStatus {
	st := processStatus{PID: pid}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return st
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}

	return st
}
