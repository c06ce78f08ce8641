package decode

import (
	"encoding/binary"

	"github.com/google/gopacket/layers"
	"github.com/vearne/lwsniffer/model"
)

// EthernetHeaderLen is the size of an untagged Ethernet II header.
const EthernetHeaderLen = 14

// DecodeFrame reads the EtherType of an Ethernet frame and hands the
// payload to the matching network-layer decoder.
func (d *Decoder) DecodeFrame(frame []byte) (*model.Packet, bool) {
	if len(frame) < EthernetHeaderLen {
		return nil, false
	}

	switch layers.EthernetType(binary.BigEndian.Uint16(frame[12:14])) {
	case layers.EthernetTypeIPv4:
		return d.DecodeIPv4(frame[EthernetHeaderLen:])
	case layers.EthernetTypeIPv6:
		// not supported yet
		return nil, false
	default:
		return nil, false
	}
}
