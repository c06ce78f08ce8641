// Package metrics exposes capture counters in the prometheus format.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slog "github.com/vearne/simplelog"
)

const namespace = "lwsniffer"

type Metrics struct {
	registry *prometheus.Registry

	PacketsRead    *prometheus.CounterVec
	RecordsWritten *prometheus.CounterVec
	Rotations      *prometheus.CounterVec
	Restarts       *prometheus.CounterVec
	PcapDropped    *prometheus.GaugeVec
}

func New() *Metrics {
	var m Metrics
	m.registry = prometheus.NewRegistry()

	m.PacketsRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_read_total",
		Help:      "Frames read from the capture handle.",
	}, []string{"interface"})
	m.RecordsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "HTTP request records written to the output file.",
	}, []string{"interface"})
	m.Rotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "file_rotations_total",
		Help:      "Output file rotations.",
	}, []string{"interface"})
	m.Restarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_restarts_total",
		Help:      "Capture worker restarts after a failure.",
	}, []string{"interface"})
	m.PcapDropped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pcap_packets_dropped",
		Help:      "Packets dropped by the kernel capture buffer, as reported by pcap.",
	}, []string{"interface"})

	m.registry.MustRegister(m.PacketsRead, m.RecordsWritten, m.Rotations, m.Restarts, m.PcapDropped)
	return &m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Listen binds addr up front so that a bad address fails at startup
// instead of inside the serving goroutine.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "metrics listener %v", addr)
	}
	return ln, nil
}

// Serve blocks serving /metrics on ln until ctx is done. A nil error means
// the server was shut down by ctx.
func (m *Metrics) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("metrics listening on %v", ln.Addr())

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "metrics server %v", ln.Addr())
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
