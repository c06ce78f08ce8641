package capture

import (
	"net"
	"testing"

	"github.com/google/gopacket/pcap"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/vearne/lwsniffer/filter"
)

func testDevices() ([]pcap.Interface, []psnet.InterfaceStat) {
	devs := []pcap.Interface{
		{
			Name: "eth0",
			Addresses: []pcap.InterfaceAddress{
				{IP: net.ParseIP("fe80::1")},
				{IP: net.IPv4(10, 0, 0, 5)},
			},
		},
		{
			Name:      "eth1",
			Addresses: []pcap.InterfaceAddress{{IP: net.IPv4(192, 168, 1, 20)}},
		},
		// pcap sees no address, the OS does
		{Name: "eth2"},
		{
			Name:      "eth3",
			Addresses: []pcap.InterfaceAddress{{IP: net.IPv4(172, 16, 0, 1)}},
		},
		{Name: "any"},
	}
	stats := []psnet.InterfaceStat{
		{Name: "eth0", Flags: []string{"up", "broadcast"}},
		{Name: "eth1", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}, {Addr: "192.168.1.21/24"}}},
		{Name: "eth2", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.9.9.9/8"}}},
		{Name: "eth3", Flags: []string{"broadcast"}},
	}
	return devs, stats
}

func TestSelectTargets(t *testing.T) {
	devs, stats := testDevices()

	cases := []struct {
		name, ifname, ip string
		expected         []Target
	}{
		{"all interfaces first address", "", "", []Target{
			{Name: "eth0", IP: "10.0.0.5"},
			{Name: "eth1", IP: "192.168.1.20"},
			{Name: "eth2", IP: "10.9.9.9"},
		}},
		{"all interfaces by ip", "", "192.168.1.21", []Target{{Name: "eth1", IP: "192.168.1.21"}}},
		{"named interface", "eth0", "", []Target{{Name: "eth0", IP: "10.0.0.5"}}},
		{"named interface with ip", "eth0", "10.0.0.5", []Target{{Name: "eth0", IP: "10.0.0.5"}}},
		{"named interface wrong ip", "eth0", "192.168.1.20", nil},
		{"os addresses", "eth2", "10.9.9.9", []Target{{Name: "eth2", IP: "10.9.9.9"}}},
		// a named interface is used even when the OS reports it down
		{"named down interface", "eth3", "", []Target{{Name: "eth3", IP: "172.16.0.1"}}},
		{"unknown interface", "wlan0", "", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, selectTargets(devs, stats, c.ifname, c.ip))
		})
	}
}

func TestSelectTargetsWithoutOSStats(t *testing.T) {
	devs, _ := testDevices()
	got := selectTargets(devs, nil, "", "172.16.0.1")
	assert.Equal(t, []Target{{Name: "eth3", IP: "172.16.0.1"}}, got)
}

func TestFilter(t *testing.T) {
	assert.Equal(t, "ip and (tcp port 80 or tcp port 443)", Filter(filter.NewPortSet(443, 80)))
	assert.Equal(t, "ip and (tcp portrange 0-65535)", Filter(filter.NewPortSet()))
	assert.Equal(t, "tcp dst port 8080", portsFilter("tcp", "dst", []uint16{8080}))
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "eth0(10.0.0.5)", Target{Name: "eth0", IP: "10.0.0.5"}.String())
}
