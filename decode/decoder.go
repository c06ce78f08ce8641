/*
Package decode turns raw link-layer frames into model.Packet records.

Only Ethernet II carrying IPv4 carrying TCP is understood. Anything else,
and anything truncated or malformed, yields no result: most captured traffic
is not interesting and is dropped without noise.
*/
package decode

import (
	"time"

	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/model"
	"github.com/vearne/lwsniffer/proto"
)

// Decoder holds the read-only inputs needed to admit a packet.
// It keeps no per-packet state and is safe for concurrent use.
type Decoder struct {
	ports     filter.PortSet
	linkedKey *proto.LinkedKey
	identity  model.Identity

	// Now samples the record timestamp.
	Now func() time.Time
}

func NewDecoder(ports filter.PortSet, linkedKey string, identity model.Identity) *Decoder {
	var d Decoder
	d.ports = ports
	d.linkedKey = proto.NewLinkedKey(linkedKey)
	d.identity = identity
	d.Now = time.Now
	return &d
}

// assemble builds the record once every gate has passed.
func (d *Decoder) assemble(h *ipv4Header, srcPort, dstPort uint16,
	resource, linkedKey string) *model.Packet {
	return &model.Packet{
		Version:       h.version,
		HeaderLength:  uint8(h.length),
		TotalLength:   h.totalLength,
		TTL:           h.ttl,
		Protocol:      h.protocol,
		SourceIP:      h.srcIP(),
		DestinationIP: h.dstIP(),
		SourcePort:    srcPort,
		DestPort:      dstPort,
		HTTPResource:  resource,
		LinkedKey:     linkedKey,
		Time:          d.Now(),
		Identity:      d.identity,
	}
}
