package biz

import (
	"context"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vearne/lwsniffer/capture"
	"github.com/vearne/lwsniffer/config"
	"github.com/vearne/lwsniffer/decode"
	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/metrics"
	"github.com/vearne/lwsniffer/plugin"
	slog "github.com/vearne/simplelog"
)

const statsInterval = time.Second

// SourceOpener opens the packet source of a target.
type SourceOpener func(target capture.Target) (gopacket.PacketDataSource, error)

// PcapOpener opens live pcap handles with the capture settings.
func PcapOpener(settings *config.AppSettings) SourceOpener {
	opts := capture.PcapOptions{
		Snaplen:       capture.DefaultSnaplen,
		Promiscuous:   true,
		BufferTimeout: settings.Sniffer.CaptureTimeout,
		BPF:           settings.Sniffer.CaptureBPF,
		Ports:         settings.Sniffer.Ports,
	}
	return func(target capture.Target) (gopacket.PacketDataSource, error) {
		handle, err := capture.OpenHandle(target, opts)
		if err != nil {
			return nil, err
		}
		return handle, nil
	}
}

// Worker runs the capture loop of one interface. Its log file is opened on
// Run and owned by that call only.
type Worker struct {
	target      capture.Target
	settings    *config.AppSettings
	open        SourceOpener
	decoder     *decode.Decoder
	filterChain filter.Filter
	mirrors     []PluginWriter
	metrics     *metrics.Metrics
}

func NewWorker(target capture.Target, settings *config.AppSettings, open SourceOpener,
	decoder *decode.Decoder, f filter.Filter, mirrors []PluginWriter, m *metrics.Metrics) *Worker {
	return &Worker{
		target:      target,
		settings:    settings,
		open:        open,
		decoder:     decoder,
		filterChain: f,
		mirrors:     mirrors,
		metrics:     m,
	}
}

// Run reads packets until ctx is done, the source is exhausted, or an
// output fails. A nil error means a clean stop.
func (w *Worker) Run(ctx context.Context) error {
	name := w.target.Name
	session := uuid.NewString()

	src, err := w.open(w.target)
	if err != nil {
		return errors.Wrapf(err, "open capture on %v", w.target)
	}
	defer closeSource(src)

	file, err := plugin.NewFileOutput(&plugin.FileOutputConfig{
		Folder:        w.settings.Server.OutputFolder,
		ComponentName: w.settings.ComponentName,
		MaxSize:       w.settings.Sniffer.Log.MaxSizeBytes(),
		Ctx:           ctx,
		OnRotate: func(_, _ string) {
			w.metrics.Rotations.WithLabelValues(name).Inc()
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Error("[%v] close %v, error:%v", session, file, cerr)
		}
	}()

	processor := NewProcessor(w.decoder, w.target.IP, w.filterChain, NewRateLimit(w.settings),
		file, w.mirrors...)

	slog.Info("[%v] listening on %v, output:%v", session, w.target, file.CurrentName())

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("[%v] capture on %v cancelled", session, name)
			return nil
		case <-ticker.C:
			if h, ok := src.(capture.PcapStatProvider); ok {
				if s, err := h.Stats(); err == nil {
					w.metrics.PcapDropped.WithLabelValues(name).Set(float64(s.PacketsDropped))
				}
			}
		default:
			data, _, err := src.ReadPacketData()
			if err == nil {
				w.metrics.PacketsRead.WithLabelValues(name).Inc()
				pkt, err := processor.Process(data)
				if err != nil {
					// rotation refused after cancellation
					if ctx.Err() != nil {
						slog.Info("[%v] capture on %v cancelled", session, name)
						return nil
					}
					return errors.Wrapf(err, "capture on %v", name)
				}
				if pkt != nil {
					w.metrics.RecordsWritten.WithLabelValues(name).Inc()
				}
				continue
			}
			if isTemporary(err) {
				continue
			}
			if err == io.EOF {
				slog.Info("[%v] stopped reading from %v: %v", session, name, err)
				return nil
			}
			return errors.Wrapf(err, "read packets from %v", name)
		}
	}
}

func isTemporary(err error) bool {
	if enext, ok := err.(pcap.NextError); ok && enext == pcap.NextErrorTimeoutExpired {
		return true
	}
	if eno, ok := err.(syscall.Errno); ok && eno.Temporary() {
		return true
	}
	if enet, ok := err.(*net.OpError); ok && enet.Timeout() {
		return true
	}
	return false
}

func closeSource(src gopacket.PacketDataSource) {
	switch c := src.(type) {
	case interface{ Close() }:
		c.Close()
	case io.Closer:
		c.Close()
	}
}
