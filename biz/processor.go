package biz

import (
	"github.com/vearne/lwsniffer/decode"
	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/model"
	slog "github.com/vearne/simplelog"
)

// Processor handles the frames of one interface. It is not safe for concurrent use.
type Processor struct {
	decoder     *decode.Decoder
	serverIP    string
	filterChain filter.Filter
	limiter     Limiter

	// output errors stop the capture; mirror errors are only logged
	output  PluginWriter
	mirrors []PluginWriter
}

func NewProcessor(decoder *decode.Decoder, serverIP string, f filter.Filter, lim Limiter,
	output PluginWriter, mirrors ...PluginWriter) *Processor {
	var p Processor
	p.decoder = decoder
	p.serverIP = serverIP
	p.filterChain = f
	p.limiter = lim
	p.output = output
	p.mirrors = mirrors
	return &p
}

// Process decodes frame and writes the record if it is admitted.
// It returns the written record, or nil when the frame was dropped.
func (p *Processor) Process(frame []byte) (*model.Packet, error) {
	pkt, ok := p.decoder.DecodeFrame(frame)
	if !ok {
		return nil, nil
	}
	pkt.AssignDirection(p.serverIP)

	if p.filterChain != nil {
		if _, ok = p.filterChain.Filter(pkt); !ok {
			slog.Debug("filtered out:%v", pkt)
			return nil, nil
		}
	}
	if p.limiter != nil && !p.limiter.Allow() {
		slog.Debug("rate limited:%v", pkt)
		return nil, nil
	}

	if err := p.output.Write(pkt); err != nil {
		return nil, err
	}
	for _, dst := range p.mirrors {
		if err := dst.Write(pkt); err != nil {
			slog.Error("dst.Write:%v", err)
		}
	}
	return pkt, nil
}
