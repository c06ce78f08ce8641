package decode

import (
	"encoding/binary"

	"github.com/google/gopacket/layers"
	"github.com/vearne/lwsniffer/model"
	"github.com/vearne/lwsniffer/proto"
	"github.com/vearne/lwsniffer/util"
)

const (
	MinIPv4HeaderLen = 20
	MinTCPHeaderLen  = 20
)

type ipv4Header struct {
	raw         []byte
	version     uint8
	length      int
	totalLength uint16
	ttl         uint8
	protocol    uint8
}

func (h *ipv4Header) srcIP() string {
	return util.DottedQuad(h.raw[12:16])
}

func (h *ipv4Header) dstIP() string {
	return util.DottedQuad(h.raw[16:20])
}

// HeaderLength returns IHL*4 when it describes a header that is at least
// 20 bytes long and fits in b.
func HeaderLength(b []byte) (int, bool) {
	if len(b) < MinIPv4HeaderLen {
		return 0, false
	}
	length := int(b[0]&0x0f) * 4
	if length < MinIPv4HeaderLen || length > len(b) {
		return 0, false
	}
	return length, true
}

func readIPv4Header(b []byte) (*ipv4Header, bool) {
	if len(b) < MinIPv4HeaderLen {
		return nil, false
	}
	if b[0]>>4 != 4 {
		return nil, false
	}
	length, ok := HeaderLength(b)
	if !ok {
		return nil, false
	}
	return &ipv4Header{
		raw:         b,
		version:     4,
		length:      length,
		totalLength: binary.BigEndian.Uint16(b[2:4]),
		ttl:         b[8],
		protocol:    b[9],
	}, true
}

// tcpPayload skips the TCP header of segment using its data offset.
func tcpPayload(segment []byte) ([]byte, bool) {
	if len(segment) < MinTCPHeaderLen {
		return nil, false
	}
	offset := int(segment[12]>>4) * 4
	if offset < MinTCPHeaderLen || offset > len(segment) {
		return nil, false
	}
	return segment[offset:], true
}

// DecodeIPv4 admits b when it is an IPv4 TCP packet on an allowed port whose
// payload starts an HTTP request.
func (d *Decoder) DecodeIPv4(b []byte) (*model.Packet, bool) {
	h, ok := readIPv4Header(b)
	if !ok {
		return nil, false
	}
	if layers.IPProtocol(h.protocol) != layers.IPProtocolTCP {
		return nil, false
	}

	segment := b[h.length:]
	if len(segment) < 4 {
		return nil, false
	}
	srcPort := binary.BigEndian.Uint16(segment[0:2])
	dstPort := binary.BigEndian.Uint16(segment[2:4])
	if !d.ports.Match(srcPort, dstPort) {
		return nil, false
	}

	payload, ok := tcpPayload(segment)
	if !ok {
		return nil, false
	}
	resource, err := proto.ExtractResource(payload)
	if err != nil || resource == "" {
		return nil, false
	}

	return d.assemble(h, srcPort, dstPort, resource, d.linkedKey.Extract(payload)), true
}
