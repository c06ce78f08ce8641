package biz

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
	"github.com/vearne/lwsniffer/config"
	"github.com/vearne/lwsniffer/decode"
	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/model"
)

var fixed = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestDecoder() *decode.Decoder {
	d := decode.NewDecoder(filter.NewPortSet(80), "X-Trace", model.Identity{
		ComponentName: "orders",
		Environment:   "prod",
		HostHTTP:      "orders.local",
	})
	d.Now = func() time.Time { return fixed }
	return d
}

func httpFrame(t *testing.T, src, dst net.IP, srcPort, dstPort uint16, payload string) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    src,
		DstIP:    dst,
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     1,
		ACK:     true,
		PSH:     true,
		Window:  65535,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))
	return buf.Bytes()
}

var (
	clientIP = net.IPv4(10, 0, 0, 5)
	serverIP = net.IPv4(10, 0, 0, 9)
)

func requestFrame(t *testing.T, resource string) []byte {
	return httpFrame(t, clientIP, serverIP, 51000, 80,
		"GET "+resource+" HTTP/1.1\r\nHost: x\r\nX-Trace: t1\r\n\r\n")
}

func newTestSettings() *config.AppSettings {
	return &config.AppSettings{
		ComponentName: "orders",
		Sniffer: config.SnifferSettings{
			Active: true,
			Ports:  filter.NewPortSet(80),
		},
	}
}
